package keys

import (
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestFromMnemonic_Deterministic(t *testing.T) {
	k1, err := FromMnemonic(testMnemonic)
	require.NoError(t, err)
	k2, err := FromMnemonic(testMnemonic)
	require.NoError(t, err)
	assert.Equal(t, k1.Serialize(), k2.Serialize())

	k3, err := FromMnemonic("legal winner thank year wave sausage worth useful legal winner thank yellow")
	require.NoError(t, err)
	assert.NotEqual(t, k1.Serialize(), k3.Serialize())
}

func TestFromMnemonic_WhitespaceNormalized(t *testing.T) {
	k1, err := FromMnemonic(testMnemonic)
	require.NoError(t, err)
	k2, err := FromMnemonic("  " + strings.ReplaceAll(testMnemonic, " ", "   ") + " ")
	require.NoError(t, err)
	assert.Equal(t, k1.Serialize(), k2.Serialize())
}

func TestFromMnemonic_Empty(t *testing.T) {
	_, err := FromMnemonic("   ")
	assert.Error(t, err)
}

func TestAddress(t *testing.T) {
	k, err := FromMnemonic(testMnemonic)
	require.NoError(t, err)

	addr, err := Address(k.PubKey(), "neutron")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(addr, "neutron1"), "got %s", addr)
	// 20-byte payload: hrp + separator + 32 data chars + 6 checksum chars.
	assert.Len(t, addr, len("neutron")+1+32+6)

	cosmosAddr, err := Address(k.PubKey(), "cosmos")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cosmosAddr, "cosmos1"))
}

func TestSignRecover(t *testing.T) {
	k, err := FromMnemonic(testMnemonic)
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("sign doc bytes"))
	sig := ecdsa.SignCompact(k, digest[:], true)
	require.Len(t, sig, 65)

	pub, compressed, err := ecdsa.RecoverCompact(sig, digest[:])
	require.NoError(t, err)
	assert.True(t, compressed)
	assert.True(t, pub.IsEqual(k.PubKey()))
}
