// Package nip19 implements the bech32 entity encoding for keys: npub for
// public keys, nsec for secret keys.
package nip19

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	PubHRP = "npub"
	SecHRP = "nsec"
)

// EncodePrivateKey wraps a hex secret key as an nsec string.
func EncodePrivateKey(privateKeyHex string) (string, error) {
	return encode(SecHRP, privateKeyHex)
}

// EncodePublicKey wraps a hex public key as an npub string.
func EncodePublicKey(publicKeyHex string) (string, error) {
	return encode(PubHRP, publicKeyHex)
}

func encode(prefix string, keyHex string) (string, error) {
	b, err := hex.DecodeString(keyHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode key hex: %w", err)
	}

	bits5, err := bech32.ConvertBits(b, 8, 5, true)
	if err != nil {
		return "", err
	}

	return bech32.Encode(prefix, bits5)
}

// Decode unwraps a bech32 entity, returning its prefix and the raw key
// hex-encoded. DecodeNoLimit is used so any 32-byte key round-trips,
// regardless of the 90-character ceiling of the bech32 spec.
func Decode(bech32string string) (prefix string, value string, err error) {
	prefix, bits5, err := bech32.DecodeNoLimit(bech32string)
	if err != nil {
		return "", "", err
	}

	data, err := bech32.ConvertBits(bits5, 5, 8, false)
	if err != nil {
		return prefix, "", fmt.Errorf("failed translating data into 8 bits: %w", err)
	}

	if len(data) < 32 {
		return prefix, "", fmt.Errorf("data is less than 32 bytes (%d)", len(data))
	}

	return prefix, hex.EncodeToString(data[0:32]), nil
}

// TranslateKey turns an npub or nsec into its hex form. Anything else is
// passed through unchanged, treated as already-raw hex.
func TranslateKey(bech32orHexKey string) string {
	if strings.HasPrefix(bech32orHexKey, PubHRP+"1") || strings.HasPrefix(bech32orHexKey, SecHRP+"1") {
		if _, value, err := Decode(bech32orHexKey); err == nil {
			return value
		}
	}

	// just return what we got
	return bech32orHexKey
}
