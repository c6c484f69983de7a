package tx

import (
	"fmt"
	"time"

	"github.com/sultan-labs/sultand/internal/codec/canonical"
	"github.com/sultan-labs/sultand/internal/crypto"
)

// universalFields must be present in every signing payload regardless of
// request type; replay protection depends on both.
var universalFields = []string{"nonce", "timestamp"}

// SigningBytes canonically encodes the request's signing payload. These are
// the exact bytes a client must sign.
func SigningBytes(req Request) ([]byte, error) {
	b, err := canonical.EncodeRequired(req.SigningPayload(), universalFields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return b, nil
}

// VerifyEnvelope authenticates a request. Hex field lengths are checked
// before any curve operation runs, the public key must independently derive
// to the request's claimed signer address, and the signature must verify
// over the canonical signing bytes. window bounds how far the embedded
// timestamp may drift from now; zero disables the check.
func VerifyEnvelope(req Request, env Envelope, signingBytes []byte, now time.Time, window time.Duration) error {
	pub, err := crypto.DecodePublicKeyHex(env.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	sig, err := crypto.DecodeSignatureHex(env.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	derived, err := crypto.DeriveAddress(pub)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if derived != req.SignerAddress() {
		return ErrSignerMismatch
	}

	if window > 0 {
		drift := now.Unix() - req.Timestamp()
		if drift < 0 {
			drift = -drift
		}
		if drift > int64(window/time.Second) {
			return ErrExpiredRequest
		}
	}

	if !crypto.Verify(pub, signingBytes, sig) {
		return ErrInvalidSignature
	}
	return nil
}
