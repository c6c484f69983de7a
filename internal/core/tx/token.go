package tx

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/sultan-labs/sultand/internal/core/denom"
)

// CreateToken registers a factory token and credits the initial supply to
// the creator.
type CreateToken struct {
	Creator       string
	Name          string
	Symbol        string
	Decimals      uint8
	InitialSupply *uint256.Int
	Mintable      bool
	Burnable      bool
	TxNonce       uint64
	Time          int64
}

func (c *CreateToken) Type() Type            { return TypeCreateToken }
func (c *CreateToken) SignerAddress() string { return c.Creator }
func (c *CreateToken) Nonce() uint64         { return c.TxNonce }
func (c *CreateToken) Timestamp() int64      { return c.Time }

func (c *CreateToken) SigningPayload() map[string]any {
	return map[string]any{
		"burnable":       c.Burnable,
		"creator":        c.Creator,
		"decimals":       c.Decimals,
		"initial_supply": c.InitialSupply,
		"mintable":       c.Mintable,
		"name":           c.Name,
		"nonce":          c.TxNonce,
		"symbol":         c.Symbol,
		"timestamp":      c.Time,
	}
}

func (c *CreateToken) Validate() error {
	if err := validateAddress("creator", c.Creator); err != nil {
		return err
	}
	if err := denom.ValidateSymbol(c.Symbol); err != nil {
		return fmt.Errorf("%w: symbol: %v", ErrEncoding, err)
	}
	if c.Name == "" || len(c.Name) > 64 {
		return fmt.Errorf("%w: name must be 1-64 bytes", ErrEncoding)
	}
	if c.Decimals > 18 {
		return fmt.Errorf("%w: decimals must be at most 18", ErrEncoding)
	}
	return validateAmountField("initial_supply", c.InitialSupply)
}

// Mint credits freshly created supply of a mintable factory token.
type Mint struct {
	Denom     string
	Minter    string
	Recipient string
	Amount    *uint256.Int
	TxNonce   uint64
	Time      int64
}

func (m *Mint) Type() Type            { return TypeMint }
func (m *Mint) SignerAddress() string { return m.Minter }
func (m *Mint) Nonce() uint64         { return m.TxNonce }
func (m *Mint) Timestamp() int64      { return m.Time }

func (m *Mint) SigningPayload() map[string]any {
	return map[string]any{
		"amount":    m.Amount,
		"denom":     m.Denom,
		"minter":    m.Minter,
		"nonce":     m.TxNonce,
		"recipient": m.Recipient,
		"timestamp": m.Time,
	}
}

func (m *Mint) Validate() error {
	if err := validateAddress("minter", m.Minter); err != nil {
		return err
	}
	if err := validateAddress("recipient", m.Recipient); err != nil {
		return err
	}
	if _, err := denom.Parse(m.Denom); err != nil {
		return fmt.Errorf("%w: denom: %v", ErrEncoding, err)
	}
	return validateAmountField("amount", m.Amount)
}

// Burn destroys supply of a burnable factory token from the burner's own
// balance.
type Burn struct {
	Denom   string
	Burner  string
	Amount  *uint256.Int
	TxNonce uint64
	Time    int64
}

func (b *Burn) Type() Type            { return TypeBurn }
func (b *Burn) SignerAddress() string { return b.Burner }
func (b *Burn) Nonce() uint64         { return b.TxNonce }
func (b *Burn) Timestamp() int64      { return b.Time }

func (b *Burn) SigningPayload() map[string]any {
	return map[string]any{
		"amount":    b.Amount,
		"burner":    b.Burner,
		"denom":     b.Denom,
		"nonce":     b.TxNonce,
		"timestamp": b.Time,
	}
}

func (b *Burn) Validate() error {
	if err := validateAddress("burner", b.Burner); err != nil {
		return err
	}
	if _, err := denom.Parse(b.Denom); err != nil {
		return fmt.Errorf("%w: denom: %v", ErrEncoding, err)
	}
	return validateAmountField("amount", b.Amount)
}
