package tx

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/sultan-labs/sultand/internal/core/denom"
)

// Transfer moves Amount of Denom from From to To. Denom defaults to the
// native token when empty, which keeps the signing payload byte-compatible
// with first-generation wallets that predate factory tokens.
type Transfer struct {
	From    string
	To      string
	Denom   string
	Amount  *uint256.Int
	Memo    string
	TxNonce uint64
	Time    int64
}

func (t *Transfer) Type() Type            { return TypeTransfer }
func (t *Transfer) SignerAddress() string { return t.From }
func (t *Transfer) Nonce() uint64         { return t.TxNonce }
func (t *Transfer) Timestamp() int64      { return t.Time }

func (t *Transfer) EffectiveDenom() string {
	if t.Denom == "" {
		return denom.Native
	}
	return t.Denom
}

func (t *Transfer) SigningPayload() map[string]any {
	p := map[string]any{
		"amount":    t.Amount,
		"from":      t.From,
		"memo":      t.Memo,
		"nonce":     t.TxNonce,
		"timestamp": t.Time,
		"to":        t.To,
	}
	if t.Denom != "" {
		p["denom"] = t.Denom
	}
	return p
}

func (t *Transfer) Validate() error {
	if err := validateAddress("from", t.From); err != nil {
		return err
	}
	if err := validateAddress("to", t.To); err != nil {
		return err
	}
	if err := validateAmountField("amount", t.Amount); err != nil {
		return err
	}
	if t.Denom != "" {
		if _, err := denom.Parse(t.Denom); err != nil {
			return fmt.Errorf("%w: denom: %v", ErrEncoding, err)
		}
	}
	if len(t.Memo) > 256 {
		return fmt.Errorf("%w: memo exceeds 256 bytes", ErrEncoding)
	}
	return nil
}
