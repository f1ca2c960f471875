package utils

import (
	"sync"

	"vaultd/logs"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// KeyManager 用于保存本节点运营者的私钥和地址
type KeyManager struct {
	privateKey string // 私钥hex字符串
	address    string // 由私钥推导出的地址
	priv       *secp256k1.PrivateKey
}

// 单例相关
var (
	keyManagerInstance *KeyManager
	keyManagerOnce     sync.Once
)

// GetKeyManager 获取全局唯一的 KeyManager 实例
func GetKeyManager() *KeyManager {
	keyManagerOnce.Do(func() {
		keyManagerInstance = &KeyManager{}
	})
	return keyManagerInstance
}

// InitKey 解析私钥并推导地址
func (km *KeyManager) InitKey(priKey string) error {
	priv, err := ParseSecp256k1PrivateKey(priKey)
	if err != nil {
		return err
	}

	km.priv = priv
	km.privateKey = priKey
	km.address = DeriveEthereumAddress(priv)

	logs.Debug("[KeyManager] InitKey success. Address=%s", km.address)
	return nil
}

// GenerateKey 生成新私钥（没有 -key 参数时用）
func (km *KeyManager) GenerateKey() error {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return err
	}
	km.priv = priv
	km.privateKey = ""
	km.address = DeriveEthereumAddress(priv)
	return nil
}

// GetAddress 返回当前节点的推导地址
func (km *KeyManager) GetAddress() string {
	return km.address
}

// GetPrivateKeyObj 返回解析后的私钥对象
func (km *KeyManager) GetPrivateKeyObj() *secp256k1.PrivateKey {
	return km.priv
}

// Sign 用运营者私钥签名载荷
func (km *KeyManager) Sign(payload string) (string, error) {
	return SignPayload(km.priv, payload)
}
