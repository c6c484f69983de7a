// Package crypto provides the signing primitives for the network: Ed25519
// keypairs and the bech32 account addresses derived from public keys.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// Hex-encoded lengths of the wire fields. Requests carrying fields of any
// other length are rejected before signature verification is attempted.
const (
	SignatureHexLen = 2 * ed25519.SignatureSize // 128
	PublicKeyHexLen = 2 * ed25519.PublicKeySize // 64
)

var (
	ErrInvalidPrivateKey = errors.New("invalid private key format")
	ErrInvalidPublicKey  = errors.New("invalid public key format")
	ErrInvalidSignature  = errors.New("invalid signature format")
)

// Keypair holds an Ed25519 keypair. The private key is the 32-byte seed form
// used by the SDKs.
type Keypair struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// GenerateKeypair creates a new random keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Keypair{priv: priv, pub: pub}, nil
}

// KeypairFromSeedHex reconstructs a keypair from a 64-char hex seed.
func KeypairFromSeedHex(seedHex string) (*Keypair, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, ErrInvalidPrivateKey
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Keypair{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

// PublicKey returns the raw 32-byte public key.
func (k *Keypair) PublicKey() ed25519.PublicKey {
	return k.pub
}

// PublicKeyHex returns the public key in the 64-char hex wire form.
func (k *Keypair) PublicKeyHex() string {
	return hex.EncodeToString(k.pub)
}

// SeedHex returns the private key seed as hex. Keep secret.
func (k *Keypair) SeedHex() string {
	return hex.EncodeToString(k.priv.Seed())
}

// Address returns the bech32 account address for this keypair.
func (k *Keypair) Address() (string, error) {
	return DeriveAddress(k.pub)
}

// Sign signs a message, returning the 128-char hex signature.
func (k *Keypair) Sign(message []byte) string {
	return hex.EncodeToString(ed25519.Sign(k.priv, message))
}

// DecodePublicKeyHex parses and length-checks a hex public key.
func DecodePublicKeyHex(pubHex string) (ed25519.PublicKey, error) {
	if len(pubHex) != PublicKeyHexLen {
		return nil, ErrInvalidPublicKey
	}
	raw, err := hex.DecodeString(pubHex)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	return ed25519.PublicKey(raw), nil
}

// DecodeSignatureHex parses and length-checks a hex signature.
func DecodeSignatureHex(sigHex string) ([]byte, error) {
	if len(sigHex) != SignatureHexLen {
		return nil, ErrInvalidSignature
	}
	raw, err := hex.DecodeString(sigHex)
	if err != nil {
		return nil, ErrInvalidSignature
	}
	return raw, nil
}

// Verify checks an Ed25519 signature over message.
func Verify(pub ed25519.PublicKey, message, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, message, sig)
}
