package nostr

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// GeneratePrivateKey creates a fresh secp256k1 secret key and returns it
// hex-encoded.
func GeneratePrivateKey() string {
	sk, err := btcec.NewPrivateKey()
	if err != nil {
		return ""
	}
	return hex.EncodeToString(sk.Serialize())
}

// GetPublicKey derives the BIP-340 x-only public key for the given
// hex-encoded secret key. The same input always yields the same output.
func GetPublicKey(sk string) (string, error) {
	b, err := hex.DecodeString(sk)
	if err != nil {
		return "", fmt.Errorf("private key '%s' is invalid hex: %w", sk, err)
	}

	_, pk := btcec.PrivKeyFromBytes(b)
	return hex.EncodeToString(schnorr.SerializePubKey(pk)), nil
}

// IsValidPublicKey checks whether pk looks like a 32-byte lowercase hex
// public key.
func IsValidPublicKey(pk string) bool {
	if len(pk) != 64 {
		return false
	}
	for _, c := range pk {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
