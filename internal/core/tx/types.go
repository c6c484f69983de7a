package tx

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/sultan-labs/sultand/internal/core/amount"
	"github.com/sultan-labs/sultand/internal/crypto"
)

// Type identifies the kind of state transition a signed request performs.
type Type string

const (
	TypeTransfer        Type = "transfer"
	TypeCreateToken     Type = "create_token"
	TypeMint            Type = "mint"
	TypeBurn            Type = "burn"
	TypeCreatePair      Type = "create_pair"
	TypeSwap            Type = "swap"
	TypeAddLiquidity    Type = "add_liquidity"
	TypeRemoveLiquidity Type = "remove_liquidity"
)

var (
	ErrEncoding         = errors.New("malformed request payload")
	ErrInvalidSignature = errors.New("signature verification failed")
	ErrSignerMismatch   = errors.New("public key does not bind to signer address")
	ErrExpiredRequest   = errors.New("request timestamp outside accepted window")
)

// Request is a signable state transition. SigningPayload returns the exact
// field set that gets canonically encoded; the same bytes are what clients
// sign, so adding a field here is a wire-format change.
type Request interface {
	Type() Type
	SignerAddress() string
	Nonce() uint64
	Timestamp() int64
	SigningPayload() map[string]any
	Validate() error
}

// Envelope carries the authentication material alongside a request.
// Both fields are lowercase hex as transmitted on the wire.
type Envelope struct {
	Signature string `json:"signature"`
	PublicKey string `json:"public_key"`
}

func validateAddress(field, addr string) error {
	if err := crypto.ValidateAddress(addr); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncoding, field, err)
	}
	return nil
}

func validateAmountField(field string, v *uint256.Int) error {
	if v == nil || v.IsZero() || !amount.FitsU128(v) {
		return fmt.Errorf("%w: %s must be a positive 128-bit amount", ErrEncoding, field)
	}
	return nil
}

// validateOptionalAmount accepts nil (bound absent) but rejects oversized
// values.
func validateOptionalAmount(field string, v *uint256.Int) error {
	if v != nil && !amount.FitsU128(v) {
		return fmt.Errorf("%w: %s exceeds 128-bit range", ErrEncoding, field)
	}
	return nil
}
