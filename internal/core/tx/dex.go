package tx

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/sultan-labs/sultand/internal/core/amm"
	"github.com/sultan-labs/sultand/internal/core/denom"
)

func validateDexDenom(field, d string) error {
	if _, err := denom.Parse(d); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncoding, field, err)
	}
	return nil
}

// CreatePair bootstraps a new constant-product pool funded by the creator.
// FeeBps may be nil, in which case the engine's configured default applies.
type CreatePair struct {
	Creator string
	TokenA  string
	TokenB  string
	AmountA *uint256.Int
	AmountB *uint256.Int
	FeeBps  *uint32
	TxNonce uint64
	Time    int64
}

func (c *CreatePair) Type() Type            { return TypeCreatePair }
func (c *CreatePair) SignerAddress() string { return c.Creator }
func (c *CreatePair) Nonce() uint64         { return c.TxNonce }
func (c *CreatePair) Timestamp() int64      { return c.Time }

func (c *CreatePair) SigningPayload() map[string]any {
	p := map[string]any{
		"amount_a":  c.AmountA,
		"amount_b":  c.AmountB,
		"creator":   c.Creator,
		"nonce":     c.TxNonce,
		"timestamp": c.Time,
		"token_a":   c.TokenA,
		"token_b":   c.TokenB,
	}
	if c.FeeBps != nil {
		p["fee_bps"] = *c.FeeBps
	}
	return p
}

func (c *CreatePair) Validate() error {
	if err := validateAddress("creator", c.Creator); err != nil {
		return err
	}
	if err := validateDexDenom("token_a", c.TokenA); err != nil {
		return err
	}
	if err := validateDexDenom("token_b", c.TokenB); err != nil {
		return err
	}
	if err := validateAmountField("amount_a", c.AmountA); err != nil {
		return err
	}
	if err := validateAmountField("amount_b", c.AmountB); err != nil {
		return err
	}
	if c.FeeBps != nil && *c.FeeBps >= amm.FeeDenominator {
		return fmt.Errorf("%w: fee_bps out of range", ErrEncoding)
	}
	return nil
}

// Swap trades InputAmount of InputDenom for the pool's other side, rejecting
// execution below MinOutput. MinOutput may be nil (no bound).
type Swap struct {
	User        string
	InputDenom  string
	OutputDenom string
	InputAmount *uint256.Int
	MinOutput   *uint256.Int
	TxNonce     uint64
	Time        int64
}

func (s *Swap) Type() Type            { return TypeSwap }
func (s *Swap) SignerAddress() string { return s.User }
func (s *Swap) Nonce() uint64         { return s.TxNonce }
func (s *Swap) Timestamp() int64      { return s.Time }

func (s *Swap) SigningPayload() map[string]any {
	p := map[string]any{
		"input_amount": s.InputAmount,
		"input_denom":  s.InputDenom,
		"nonce":        s.TxNonce,
		"output_denom": s.OutputDenom,
		"timestamp":    s.Time,
		"user":         s.User,
	}
	if s.MinOutput != nil {
		p["min_output"] = s.MinOutput
	}
	return p
}

func (s *Swap) Validate() error {
	if err := validateAddress("user", s.User); err != nil {
		return err
	}
	if err := validateDexDenom("input_denom", s.InputDenom); err != nil {
		return err
	}
	if err := validateDexDenom("output_denom", s.OutputDenom); err != nil {
		return err
	}
	if err := validateAmountField("input_amount", s.InputAmount); err != nil {
		return err
	}
	return validateOptionalAmount("min_output", s.MinOutput)
}

// AddLiquidity deposits both sides of a pool for LP tokens.
type AddLiquidity struct {
	User        string
	PairID      string
	AmountA     *uint256.Int
	AmountB     *uint256.Int
	MinLPTokens *uint256.Int
	TxNonce     uint64
	Time        int64
}

func (a *AddLiquidity) Type() Type            { return TypeAddLiquidity }
func (a *AddLiquidity) SignerAddress() string { return a.User }
func (a *AddLiquidity) Nonce() uint64         { return a.TxNonce }
func (a *AddLiquidity) Timestamp() int64      { return a.Time }

func (a *AddLiquidity) SigningPayload() map[string]any {
	p := map[string]any{
		"amount_a":  a.AmountA,
		"amount_b":  a.AmountB,
		"nonce":     a.TxNonce,
		"pair_id":   a.PairID,
		"timestamp": a.Time,
		"user":      a.User,
	}
	if a.MinLPTokens != nil {
		p["min_lp_tokens"] = a.MinLPTokens
	}
	return p
}

func (a *AddLiquidity) Validate() error {
	if err := validateAddress("user", a.User); err != nil {
		return err
	}
	if a.PairID == "" {
		return fmt.Errorf("%w: pair_id is required", ErrEncoding)
	}
	if err := validateAmountField("amount_a", a.AmountA); err != nil {
		return err
	}
	if err := validateAmountField("amount_b", a.AmountB); err != nil {
		return err
	}
	return validateOptionalAmount("min_lp_tokens", a.MinLPTokens)
}

// RemoveLiquidity burns LP tokens for the proportional share of both
// reserves.
type RemoveLiquidity struct {
	User       string
	PairID     string
	LPTokens   *uint256.Int
	MinAmountA *uint256.Int
	MinAmountB *uint256.Int
	TxNonce    uint64
	Time       int64
}

func (r *RemoveLiquidity) Type() Type            { return TypeRemoveLiquidity }
func (r *RemoveLiquidity) SignerAddress() string { return r.User }
func (r *RemoveLiquidity) Nonce() uint64         { return r.TxNonce }
func (r *RemoveLiquidity) Timestamp() int64      { return r.Time }

func (r *RemoveLiquidity) SigningPayload() map[string]any {
	p := map[string]any{
		"lp_tokens": r.LPTokens,
		"nonce":     r.TxNonce,
		"pair_id":   r.PairID,
		"timestamp": r.Time,
		"user":      r.User,
	}
	if r.MinAmountA != nil {
		p["min_amount_a"] = r.MinAmountA
	}
	if r.MinAmountB != nil {
		p["min_amount_b"] = r.MinAmountB
	}
	return p
}

func (r *RemoveLiquidity) Validate() error {
	if err := validateAddress("user", r.User); err != nil {
		return err
	}
	if r.PairID == "" {
		return fmt.Errorf("%w: pair_id is required", ErrEncoding)
	}
	if err := validateAmountField("lp_tokens", r.LPTokens); err != nil {
		return err
	}
	if err := validateOptionalAmount("min_amount_a", r.MinAmountA); err != nil {
		return err
	}
	return validateOptionalAmount("min_amount_b", r.MinAmountB)
}
