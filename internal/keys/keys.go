// Package keys derives Cosmos account keys from a BIP-39 mnemonic and
// renders bech32 account addresses.
package keys

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/ripemd160"
)

const hardened = uint32(0x80000000)

// CosmosHDPath is the standard Cosmos derivation path m/44'/118'/0'/0/0.
var CosmosHDPath = []uint32{
	44 | hardened,
	118 | hardened,
	0 | hardened,
	0,
	0,
}

// Seed computes the BIP-39 seed for a mnemonic. The mnemonic is not
// validated against a wordlist; callers own that responsibility.
func Seed(mnemonic, passphrase string) []byte {
	m := strings.Join(strings.Fields(mnemonic), " ")
	return pbkdf2.Key([]byte(m), []byte("mnemonic"+passphrase), 2048, 64, sha512.New)
}

// Derive walks a BIP-32 path from the master key of the given seed.
func Derive(seed []byte, path []uint32) (*secp256k1.PrivateKey, error) {
	mac := hmac.New(sha512.New, []byte("Bitcoin seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)

	var key secp256k1.ModNScalar
	if overflow := key.SetByteSlice(sum[:32]); overflow || key.IsZero() {
		return nil, fmt.Errorf("invalid master key material")
	}
	chainCode := sum[32:]

	for _, index := range path {
		var data []byte
		priv := secp256k1.NewPrivateKey(&key)
		if index >= hardened {
			data = append([]byte{0x00}, priv.Serialize()...)
		} else {
			data = priv.PubKey().SerializeCompressed()
		}
		var idx [4]byte
		binary.BigEndian.PutUint32(idx[:], index)
		data = append(data, idx[:]...)

		mac = hmac.New(sha512.New, chainCode)
		mac.Write(data)
		sum = mac.Sum(nil)

		var il secp256k1.ModNScalar
		if overflow := il.SetByteSlice(sum[:32]); overflow {
			return nil, fmt.Errorf("derived key out of range at index %d", index)
		}
		il.Add(&key)
		if il.IsZero() {
			return nil, fmt.Errorf("derived zero key at index %d", index)
		}
		key = il
		chainCode = sum[32:]
	}
	return secp256k1.NewPrivateKey(&key), nil
}

// FromMnemonic derives the account key at the standard Cosmos path.
func FromMnemonic(mnemonic string) (*secp256k1.PrivateKey, error) {
	if strings.TrimSpace(mnemonic) == "" {
		return nil, fmt.Errorf("empty mnemonic")
	}
	return Derive(Seed(mnemonic, ""), CosmosHDPath)
}

// Address renders the bech32 account address for a public key:
// bech32(hrp, ripemd160(sha256(compressed pubkey))).
func Address(pub *secp256k1.PublicKey, hrp string) (string, error) {
	sh := sha256.Sum256(pub.SerializeCompressed())
	rh := ripemd160.New()
	rh.Write(sh[:])
	conv, err := bech32.ConvertBits(rh.Sum(nil), 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert bits: %w", err)
	}
	addr, err := bech32.Encode(hrp, conv)
	if err != nil {
		return "", fmt.Errorf("bech32 encode: %w", err)
	}
	return addr, nil
}
