package utils

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"
)

// DeriveEthereumAddress 以太坊式地址推导: keccak256(pubUncompressed[1:]) 最后20字节
func DeriveEthereumAddress(privKey *secp256k1.PrivateKey) string {
	return DeriveAddressFromPubKey(privKey.PubKey())
}

// DeriveAddressFromPubKey 从公钥推导 0x 地址
func DeriveAddressFromPubKey(pubKey *secp256k1.PublicKey) string {
	// 先获取 uncompressed 公钥 (首字节0x04 + 32字节X + 32字节Y = 65字节)
	pubUncompressed := pubKey.SerializeUncompressed()

	// keccak-256，跳过首字节 0x04，剩余 64 字节是 X、Y
	hash := sha3.NewLegacyKeccak256()
	hash.Write(pubUncompressed[1:])
	digest := hash.Sum(nil)

	// 取后20字节作为地址
	return "0x" + hex.EncodeToString(digest[12:])
}

// DeriveCustodyAddress 推导金库托管地址
// keccak256(seed || programID) 最后20字节，没有对应私钥：
// 任何人都能重新计算并核对，但只有状态机自身能以它为转出权限
func DeriveCustodyAddress(seed, programID string) string {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(seed))
	hash.Write([]byte(programID))
	digest := hash.Sum(nil)
	return "0x" + hex.EncodeToString(digest[12:])
}

// ParseSecp256k1PrivateKey 解析32字节hex私钥
func ParseSecp256k1PrivateKey(keyStr string) (*secp256k1.PrivateKey, error) {
	s := strings.TrimPrefix(strings.TrimSpace(keyStr), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(raw) != 32 {
		return nil, errors.New("private key must be 32 bytes")
	}
	return secp256k1.PrivKeyFromBytes(raw), nil
}

// IsHexAddress 校验 0x 开头的20字节hex地址
func IsHexAddress(addr string) bool {
	if !strings.HasPrefix(addr, "0x") || len(addr) != 42 {
		return false
	}
	_, err := hex.DecodeString(addr[2:])
	return err == nil
}
