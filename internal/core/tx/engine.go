package tx

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sultan-labs/sultand/internal/core/amm"
	"github.com/sultan-labs/sultand/internal/core/amount"
	"github.com/sultan-labs/sultand/internal/core/ledger"
	"github.com/sultan-labs/sultand/internal/core/registry"
)

// Options tune request processing. The zero value is safe for production:
// signatures are verified and timestamps are unchecked.
type Options struct {
	// DefaultFeeBps is the pool fee assigned at pair creation.
	DefaultFeeBps uint32
	// TimestampWindow bounds request timestamp drift; zero disables it.
	TimestampWindow time.Duration
	// SkipSignatureVerification bypasses envelope authentication. Test
	// harnesses only.
	SkipSignatureVerification bool
	// Clock overrides time.Now for timestamp checks.
	Clock func() time.Time
}

// Engine applies signed requests to the ledger, token registry and pool
// engine. All state-changing requests funnel through a single mutex, so
// the nonce check, the balance mutation and the nonce advance observe one
// consistent view. Reads bypass the mutex entirely.
type Engine struct {
	mu       sync.Mutex
	ledger   *ledger.Ledger
	registry *registry.Registry
	pools    *amm.Engine
	opts     Options
	log      zerolog.Logger
}

// NewEngine wires a request engine over the core state components.
func NewEngine(l *ledger.Ledger, r *registry.Registry, p *amm.Engine, opts Options, log zerolog.Logger) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Engine{ledger: l, registry: r, pools: p, opts: opts, log: log}
}

// Applied reports the outcome of one request.
type Applied struct {
	Hash     string
	Result   Result
	Response map[string]any
}

// ComputeHash derives the transaction hash from the canonical signing bytes
// and the signature hex. Two submissions of the same signed payload hash
// identically.
func ComputeHash(signingBytes []byte, signatureHex string) string {
	h := sha256.New()
	h.Write(signingBytes)
	h.Write([]byte(signatureHex))
	return hex.EncodeToString(h.Sum(nil))
}

// Apply runs the full pipeline for one signed request: stateless preflight
// (payload validation, envelope authentication), a nonce preclaim against
// current state, and the state transition itself. On any rejection no state
// changes and the returned error classifies via FromError.
func (e *Engine) Apply(req Request, env Envelope) (Applied, error) {
	if err := req.Validate(); err != nil {
		return Applied{Result: FromError(err)}, err
	}
	signingBytes, err := SigningBytes(req)
	if err != nil {
		return Applied{Result: FromError(err)}, err
	}
	hash := ComputeHash(signingBytes, env.Signature)

	if !e.opts.SkipSignatureVerification {
		if err := VerifyEnvelope(req, env, signingBytes, e.opts.Clock(), e.opts.TimestampWindow); err != nil {
			e.log.Debug().Str("tx", hash).Str("type", string(req.Type())).Err(err).Msg("envelope rejected")
			return Applied{Hash: hash, Result: FromError(err)}, err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	signer := req.SignerAddress()
	if current := e.ledger.Nonce(signer); current != req.Nonce() {
		err := fmt.Errorf("%w: have %d, request carries %d", ledger.ErrNonceMismatch, current, req.Nonce())
		return Applied{Hash: hash, Result: FromError(err)}, err
	}

	response, err := e.dispatch(req)
	if err != nil {
		e.log.Debug().Str("tx", hash).Str("type", string(req.Type())).Err(err).Msg("request rejected")
		return Applied{Hash: hash, Result: FromError(err)}, err
	}

	// Cannot fail: the preclaim ran under the same mutex and no apply path
	// touches nonces.
	if err := e.ledger.CheckAndIncrementNonce(signer, req.Nonce()); err != nil {
		return Applied{Hash: hash, Result: Internal}, err
	}

	e.log.Info().Str("tx", hash).Str("type", string(req.Type())).Str("from", signer).Msg("applied")
	return Applied{Hash: hash, Result: Success, Response: response}, nil
}

func (e *Engine) dispatch(req Request) (map[string]any, error) {
	switch r := req.(type) {
	case *Transfer:
		return e.applyTransfer(r)
	case *CreateToken:
		d, err := e.registry.CreateToken(r.Creator, r.Name, r.Symbol, r.Decimals, r.InitialSupply, r.Mintable, r.Burnable)
		if err != nil {
			return nil, err
		}
		return map[string]any{"denom": d}, nil
	case *Mint:
		if err := e.registry.Mint(r.Denom, r.Minter, r.Recipient, r.Amount); err != nil {
			return nil, err
		}
		return map[string]any{"denom": r.Denom, "amount": amount.Format(r.Amount)}, nil
	case *Burn:
		if err := e.registry.Burn(r.Denom, r.Burner, r.Amount); err != nil {
			return nil, err
		}
		return map[string]any{"denom": r.Denom, "amount": amount.Format(r.Amount)}, nil
	case *CreatePair:
		feeBps := e.opts.DefaultFeeBps
		if r.FeeBps != nil {
			feeBps = *r.FeeBps
		}
		st, err := e.pools.CreatePair(r.Creator, r.TokenA, r.TokenB, r.AmountA, r.AmountB, feeBps)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"pair_id":   st.PairID,
			"lp_tokens": st.TotalLP,
			"reserve_a": st.ReserveA,
			"reserve_b": st.ReserveB,
			"fee_bps":   st.FeeBps,
		}, nil
	case *Swap:
		res, err := e.pools.Swap(r.User, r.InputDenom, r.OutputDenom, r.InputAmount, r.MinOutput)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"output_amount": amount.Format(res.OutputAmount),
			"fee":           amount.Format(res.Fee),
			"price_impact":  res.PriceImpact,
		}, nil
	case *AddLiquidity:
		res, err := e.pools.AddLiquidity(r.User, r.PairID, r.AmountA, r.AmountB, r.MinLPTokens)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"lp_tokens_minted": amount.Format(res.LPTokensMinted),
			"share_of_pool":    res.ShareOfPool,
		}, nil
	case *RemoveLiquidity:
		res, err := e.pools.RemoveLiquidity(r.User, r.PairID, r.LPTokens, r.MinAmountA, r.MinAmountB)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"amount_a": amount.Format(res.AmountA),
			"amount_b": amount.Format(res.AmountB),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown request type %q", ErrEncoding, req.Type())
	}
}

func (e *Engine) applyTransfer(t *Transfer) (map[string]any, error) {
	d := t.EffectiveDenom()
	err := e.ledger.NewBatch().
		Debit(t.From, d, t.Amount).
		Credit(t.To, d, t.Amount).
		Apply()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"denom":  d,
		"amount": amount.Format(t.Amount),
		"to":     t.To,
	}, nil
}
