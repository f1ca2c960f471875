package utils

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrSignerMismatch   = errors.New("recovered signer does not match from_address")
)

// SignPayload 用私钥对规范化载荷做可恢复签名
// 返回 65 字节 [R || S || V] 的 hex 编码
func SignPayload(privKey *secp256k1.PrivateKey, payload string) (string, error) {
	digest := crypto.Keccak256([]byte(payload))
	// crypto.Sign (pure-Go build) rejects keys whose Curve is not its own S256
	// instance, so rebuild the ecdsa key from the raw bytes via geth's converter.
	ecdsaKey, err := crypto.ToECDSA(privKey.Serialize())
	if err != nil {
		return "", err
	}
	sig, err := crypto.Sign(digest, ecdsaKey)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig), nil
}

// RecoverSigner 从签名恢复签名者地址
func RecoverSigner(payload, sigHex string) (string, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return "", ErrInvalidSignature
	}
	if len(sig) != 65 {
		return "", ErrInvalidSignature
	}

	digest := crypto.Keccak256([]byte(payload))
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", ErrInvalidSignature
	}
	addr := crypto.PubkeyToAddress(*pub)
	return "0x" + hex.EncodeToString(addr.Bytes()), nil
}

// VerifySignature 校验签名者是否为期望地址
func VerifySignature(payload, sigHex, expectedAddr string) error {
	signer, err := RecoverSigner(payload, sigHex)
	if err != nil {
		return err
	}
	if !strings.EqualFold(signer, expectedAddr) {
		return ErrSignerMismatch
	}
	return nil
}
