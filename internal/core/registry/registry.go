// Package registry owns denom metadata and supply accounting for the native
// token and factory-created tokens. Denoms are globally unique and immutable
// once created; total supply always equals the sum of holder balances, which
// the registry maintains by crediting and debiting the ledger in the same
// operation that moves supply.
package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/holiman/uint256"

	"github.com/sultan-labs/sultand/internal/core/amount"
	"github.com/sultan-labs/sultand/internal/core/denom"
	"github.com/sultan-labs/sultand/internal/core/ledger"
)

var (
	ErrDuplicateDenom = errors.New("denom already exists")
	ErrUnknownDenom   = errors.New("unknown denom")
	ErrNotMintable    = errors.New("denom is not mintable")
	ErrNotBurnable    = errors.New("denom is not burnable")
	ErrUnauthorized   = errors.New("not the denom creator")
	ErrInvalidAmount  = errors.New("invalid amount")
)

// Token is the metadata record of one denom.
type Token struct {
	Denom       string       `json:"denom"`
	Name        string       `json:"name"`
	Symbol      string       `json:"symbol"`
	Decimals    uint8        `json:"decimals"`
	Creator     string       `json:"creator"` // empty for the native token
	Mintable    bool         `json:"mintable"`
	Burnable    bool         `json:"burnable"`
	TotalSupply *uint256.Int `json:"-"`
}

// Registry holds all token metadata. Supply-moving operations take the
// registry lock and then apply a ledger batch, so metadata and balances can
// never disagree.
type Registry struct {
	mu     sync.RWMutex
	tokens map[string]*Token
	ledger *ledger.Ledger
}

// New creates a registry with the native token pre-registered. The native
// supply is fixed at genesis; genesisSupply is whatever the genesis
// allocations credit in total.
func New(l *ledger.Ledger, genesisSupply *uint256.Int) *Registry {
	r := &Registry{tokens: make(map[string]*Token), ledger: l}
	r.tokens[denom.Native] = &Token{
		Denom:       denom.Native,
		Name:        "Sultan",
		Symbol:      "SLTN",
		Decimals:    denom.NativeDecimals,
		Mintable:    false,
		Burnable:    false,
		TotalSupply: new(uint256.Int).Set(genesisSupply),
	}
	return r
}

// Get returns a copy of a token's metadata.
func (r *Registry) Get(d string) (Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tok, ok := r.tokens[d]
	if !ok {
		return Token{}, ErrUnknownDenom
	}
	out := *tok
	out.TotalSupply = new(uint256.Int).Set(tok.TotalSupply)
	return out, nil
}

// Exists reports whether a denom is registered.
func (r *Registry) Exists(d string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tokens[d]
	return ok
}

// List returns all tokens sorted by denom.
func (r *Registry) List() []Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Token, 0, len(r.tokens))
	for _, tok := range r.tokens {
		cp := *tok
		cp.TotalSupply = new(uint256.Int).Set(tok.TotalSupply)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Denom < out[j].Denom })
	return out
}

// CreateToken registers factory/{creator}/{symbol} and credits the initial
// supply to the creator.
func (r *Registry) CreateToken(creator, name, symbol string, decimals uint8, initialSupply *uint256.Int, mintable, burnable bool) (string, error) {
	if err := denom.ValidateSymbol(symbol); err != nil {
		return "", err
	}
	if initialSupply == nil || !amount.FitsU128(initialSupply) {
		return "", ErrInvalidAmount
	}
	d := denom.Factory(creator, symbol)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[d]; ok {
		return "", ErrDuplicateDenom
	}
	if !initialSupply.IsZero() {
		if err := r.ledger.Credit(creator, d, initialSupply); err != nil {
			return "", err
		}
	}
	r.tokens[d] = &Token{
		Denom:       d,
		Name:        name,
		Symbol:      symbol,
		Decimals:    decimals,
		Creator:     creator,
		Mintable:    mintable,
		Burnable:    burnable,
		TotalSupply: new(uint256.Int).Set(initialSupply),
	}
	return d, nil
}

// Mint credits amt of d to recipient and grows the supply. Only the creator
// of a mintable denom may mint.
func (r *Registry) Mint(d, minter, recipient string, amt *uint256.Int) error {
	if amt == nil || amt.IsZero() || !amount.FitsU128(amt) {
		return ErrInvalidAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.tokens[d]
	if !ok {
		return ErrUnknownDenom
	}
	if !tok.Mintable {
		return ErrNotMintable
	}
	if minter != tok.Creator {
		return ErrUnauthorized
	}
	newSupply, err := amount.Add(tok.TotalSupply, amt)
	if err != nil {
		return ledger.ErrOverflow
	}
	if err := r.ledger.Credit(recipient, d, amt); err != nil {
		return err
	}
	tok.TotalSupply = newSupply
	return nil
}

// Burn debits amt of d from burner and shrinks the supply. Any holder of a
// burnable denom may burn their own balance.
func (r *Registry) Burn(d, burner string, amt *uint256.Int) error {
	if amt == nil || amt.IsZero() || !amount.FitsU128(amt) {
		return ErrInvalidAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.tokens[d]
	if !ok {
		return ErrUnknownDenom
	}
	if !tok.Burnable {
		return ErrNotBurnable
	}
	if err := r.ledger.Debit(burner, d, amt); err != nil {
		return err
	}
	tok.TotalSupply = new(uint256.Int).Sub(tok.TotalSupply, amt)
	return nil
}

// TokenState is the snapshot form of one token record.
type TokenState struct {
	Token
	TotalSupplyDec string `json:"total_supply"`
}

// Snapshot exports all token metadata sorted by denom.
func (r *Registry) Snapshot() []TokenState {
	toks := r.List()
	out := make([]TokenState, 0, len(toks))
	for _, tok := range toks {
		out = append(out, TokenState{Token: tok, TotalSupplyDec: amount.Format(tok.TotalSupply)})
	}
	return out
}

// Restore replaces the registry contents with a snapshot.
func (r *Registry) Restore(states []TokenState) error {
	tokens := make(map[string]*Token, len(states))
	for _, st := range states {
		supply, err := amount.Parse(st.TotalSupplyDec)
		if err != nil {
			return err
		}
		tok := st.Token
		tok.TotalSupply = supply
		tokens[st.Denom] = &tok
	}
	r.mu.Lock()
	r.tokens = tokens
	r.mu.Unlock()
	return nil
}
