package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// AddressHRP is the bech32 human-readable prefix of account addresses.
const AddressHRP = "sultan"

// addressBytes is the length of the raw address payload:
// SHA256(public key) truncated to 20 bytes.
const addressBytes = 20

var ErrInvalidAddress = errors.New("invalid address")

// DeriveAddress computes the account address for a public key:
// bech32("sultan", SHA256(pubkey)[:20]).
func DeriveAddress(pub ed25519.PublicKey) (string, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", ErrInvalidPublicKey
	}
	digest := sha256.Sum256(pub)
	conv, err := bech32.ConvertBits(digest[:addressBytes], 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(AddressHRP, conv)
}

// ValidateAddress checks that s is a well-formed account address.
func ValidateAddress(s string) error {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return ErrInvalidAddress
	}
	if hrp != AddressHRP {
		return ErrInvalidAddress
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil || len(raw) != addressBytes {
		return ErrInvalidAddress
	}
	return nil
}
