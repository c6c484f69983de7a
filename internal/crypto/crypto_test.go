package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeypairRoundTrip(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)

	restored, err := KeypairFromSeedHex(kp.SeedHex())
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKeyHex(), restored.PublicKeyHex())

	addr1, err := kp.Address()
	require.NoError(t, err)
	addr2, err := restored.Address()
	require.NoError(t, err)
	assert.Equal(t, addr1, addr2)
}

func TestSignVerify(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)

	msg := []byte(`{"amount":"1000000000","from":"a","nonce":0}`)
	sigHex := kp.Sign(msg)
	require.Len(t, sigHex, SignatureHexLen)

	sig, err := DecodeSignatureHex(sigHex)
	require.NoError(t, err)
	assert.True(t, Verify(kp.PublicKey(), msg, sig))

	// Flipping any single bit of the signature must break verification.
	for i := range sig {
		tampered := make([]byte, len(sig))
		copy(tampered, sig)
		tampered[i] ^= 0x01
		assert.False(t, Verify(kp.PublicKey(), msg, tampered), "bit flip at byte %d", i)
	}

	// Flipping a message byte must break verification.
	badMsg := append([]byte(nil), msg...)
	badMsg[0] ^= 0x01
	assert.False(t, Verify(kp.PublicKey(), badMsg, sig))
}

func TestDeriveAddressKnownVector(t *testing.T) {
	// Address derivation is SHA256(pubkey)[:20] under bech32 hrp "sultan";
	// recompute the expectation from primitives to pin the scheme.
	pubHex := "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a"
	pub, err := DecodePublicKeyHex(pubHex)
	require.NoError(t, err)

	digest := sha256.Sum256(pub)
	conv, err := bech32.ConvertBits(digest[:20], 8, 5, true)
	require.NoError(t, err)
	want, err := bech32.Encode("sultan", conv)
	require.NoError(t, err)

	got, err := DeriveAddress(pub)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, strings.HasPrefix(got, "sultan1"))
	assert.NoError(t, ValidateAddress(got))
}

func TestValidateAddressRejects(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)
	addr, err := kp.Address()
	require.NoError(t, err)

	assert.Error(t, ValidateAddress(""))
	assert.Error(t, ValidateAddress("sultan1"))
	assert.Error(t, ValidateAddress(addr[:len(addr)-1]+"x"))

	// Same payload, wrong prefix.
	digest := sha256.Sum256(kp.PublicKey())
	conv, err := bech32.ConvertBits(digest[:20], 8, 5, true)
	require.NoError(t, err)
	other, err := bech32.Encode("cosmos", conv)
	require.NoError(t, err)
	assert.Error(t, ValidateAddress(other))
}

func TestDecodeWireFieldLengths(t *testing.T) {
	_, err := DecodePublicKeyHex(strings.Repeat("ab", 31))
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
	_, err = DecodePublicKeyHex(strings.Repeat("zz", 32))
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = DecodeSignatureHex(strings.Repeat("ab", 63))
	assert.ErrorIs(t, err, ErrInvalidSignature)
	_, err = DecodeSignatureHex(strings.Repeat("ab", 65))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	ok := hex.EncodeToString(make([]byte, 64))
	_, err = DecodeSignatureHex(ok)
	assert.NoError(t, err)
}
