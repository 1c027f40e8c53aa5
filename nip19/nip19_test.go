package nip19

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sampleHex  = "3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d"
	sampleNpub = "npub180cvv07tjdrrgpa0j7j7tmnyl2yr6yr7l8j4s3evf6u64th6gkwsyjh6w6"
	sampleNsec = "nsec180cvv07tjdrrgpa0j7j7tmnyl2yr6yr7l8j4s3evf6u64th6gkwsgyumg0"
)

func TestEncodePublicKey(t *testing.T) {
	npub, err := EncodePublicKey(sampleHex)
	require.NoError(t, err)
	assert.Equal(t, sampleNpub, npub)
}

func TestEncodePrivateKey(t *testing.T) {
	nsec, err := EncodePrivateKey(sampleHex)
	require.NoError(t, err)
	assert.Equal(t, sampleNsec, nsec)
}

func TestDecode(t *testing.T) {
	prefix, value, err := Decode(sampleNpub)
	require.NoError(t, err)
	assert.Equal(t, PubHRP, prefix)
	assert.Equal(t, sampleHex, value)

	prefix, value, err = Decode(sampleNsec)
	require.NoError(t, err)
	assert.Equal(t, SecHRP, prefix)
	assert.Equal(t, sampleHex, value)
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	damaged := sampleNpub[:len(sampleNpub)-1] + "p"
	_, _, err := Decode(damaged)
	assert.Error(t, err)
}

func TestEncodeRejectsOddHex(t *testing.T) {
	_, err := EncodePublicKey("zz")
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	npub, err := EncodePublicKey(sampleHex)
	require.NoError(t, err)

	_, value, err := Decode(npub)
	require.NoError(t, err)
	assert.Equal(t, sampleHex, value)
}

func TestTranslateKey(t *testing.T) {
	assert.Equal(t, sampleHex, TranslateKey(sampleNpub))
	assert.Equal(t, sampleHex, TranslateKey(sampleNsec))

	// anything that is not npub/nsec passes through untouched
	assert.Equal(t, sampleHex, TranslateKey(sampleHex))
	assert.Equal(t, "garbage", TranslateKey("garbage"))
}
