package utils

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndRecover(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	addr := DeriveEthereumAddress(priv)

	payload := "deposit|tx-1|" + addr + "|1700000000|1000"
	sig, err := SignPayload(priv, payload)
	require.NoError(t, err)

	recovered, err := RecoverSigner(payload, sig)
	require.NoError(t, err)
	assert.True(t, strings.EqualFold(addr, recovered))

	assert.NoError(t, VerifySignature(payload, sig, addr))
}

func TestVerifySignatureMismatch(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	other, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	payload := "claim|tx-2|0xabc|0|500"
	sig, err := SignPayload(priv, payload)
	require.NoError(t, err)

	// 换一个期望地址
	err = VerifySignature(payload, sig, DeriveEthereumAddress(other))
	assert.ErrorIs(t, err, ErrSignerMismatch)

	// 篡改内容后恢复出的地址对不上
	err = VerifySignature(payload+"x", sig, DeriveEthereumAddress(priv))
	assert.Error(t, err)
}

func TestVerifySignatureMalformed(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	addr := DeriveEthereumAddress(priv)

	assert.Error(t, VerifySignature("payload", "", addr))
	assert.Error(t, VerifySignature("payload", "not-hex", addr))
	assert.Error(t, VerifySignature("payload", "deadbeef", addr))
}

func TestDeriveEthereumAddress(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	addr := DeriveEthereumAddress(priv)
	assert.True(t, IsHexAddress(addr), "address %q", addr)
	assert.Equal(t, addr, DeriveAddressFromPubKey(priv.PubKey()))
}

func TestDeriveCustodyAddress(t *testing.T) {
	a := DeriveCustodyAddress("VAULT_SEED", "vaultd/v1")
	b := DeriveCustodyAddress("VAULT_SEED", "vaultd/v1")
	assert.Equal(t, a, b)
	assert.True(t, IsHexAddress(a))

	// 种子或程序标识变化时派生地址不同
	assert.NotEqual(t, a, DeriveCustodyAddress("OTHER_SEED", "vaultd/v1"))
	assert.NotEqual(t, a, DeriveCustodyAddress("VAULT_SEED", "vaultd/v2"))
}

func TestParseSecp256k1PrivateKey(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	parsed, err := ParseSecp256k1PrivateKey(hex.EncodeToString(priv.Serialize()))
	require.NoError(t, err)
	assert.Equal(t, DeriveEthereumAddress(priv), DeriveEthereumAddress(parsed))

	_, err = ParseSecp256k1PrivateKey("zz")
	assert.Error(t, err)
	_, err = ParseSecp256k1PrivateKey("")
	assert.Error(t, err)
}

func TestIsHexAddress(t *testing.T) {
	assert.True(t, IsHexAddress("0x"+strings.Repeat("a", 40)))
	assert.False(t, IsHexAddress(""))
	assert.False(t, IsHexAddress("0x123"))
	assert.False(t, IsHexAddress(strings.Repeat("a", 42)))
	assert.False(t, IsHexAddress("0x"+strings.Repeat("g", 40)))
}
