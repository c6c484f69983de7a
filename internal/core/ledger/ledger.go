// Package ledger is the single source of truth for balances and nonces.
// Accounts are created implicitly on first credit and never deleted; a zero
// balance is a valid terminal state. All mutations go through methods that
// hold the ledger lock, and multi-entry operations go through a Batch so a
// partially applied transfer can never be observed.
package ledger

import (
	"errors"
	"sort"
	"sync"

	"github.com/holiman/uint256"

	"github.com/sultan-labs/sultand/internal/core/amount"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNonceMismatch       = errors.New("nonce mismatch")
	ErrOverflow            = errors.New("balance overflow")
	ErrInvalidAmount       = errors.New("invalid amount")
)

type account struct {
	nonce    uint64
	balances map[string]*uint256.Int // denom -> balance
}

// Ledger holds all account state behind a single RWMutex. State-changing
// callers are serialized by the transaction engine above this package, so a
// plain mutex is sufficient and keeps the atomicity reasoning simple; reads
// take the shared lock and copy out.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[string]*account
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{accounts: make(map[string]*account)}
}

// Balance returns a copy of the balance of (address, denom). Missing
// accounts and denoms read as zero.
func (l *Ledger) Balance(address, denom string) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if acct, ok := l.accounts[address]; ok {
		if b, ok := acct.balances[denom]; ok {
			return new(uint256.Int).Set(b)
		}
	}
	return new(uint256.Int)
}

// Nonce returns the next expected nonce for an address. Missing accounts
// read as zero.
func (l *Ledger) Nonce(address string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if acct, ok := l.accounts[address]; ok {
		return acct.nonce
	}
	return 0
}

// Credit atomically increases a balance, creating the account entry if
// absent. Fails only on a zero-ish invalid amount or 128-bit overflow.
func (l *Ledger) Credit(address, denom string, amt *uint256.Int) error {
	return l.NewBatch().Credit(address, denom, amt).Apply()
}

// Debit atomically decreases a balance, failing with ErrInsufficientBalance
// if the holder cannot cover it.
func (l *Ledger) Debit(address, denom string, amt *uint256.Int) error {
	return l.NewBatch().Debit(address, denom, amt).Apply()
}

// CheckAndIncrementNonce verifies that supplied equals the current nonce and
// advances it by one, atomically.
func (l *Ledger) CheckAndIncrementNonce(address string, supplied uint64) error {
	return l.NewBatch().RequireNonce(address, supplied).Apply()
}

// Account returns the snapshot form of one address. Missing accounts read
// as a zero-nonce account with no balances.
func (l *Ledger) Account(address string) AccountState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	st := AccountState{Address: address, Balances: map[string]string{}}
	if acct, ok := l.accounts[address]; ok {
		st.Nonce = acct.nonce
		for d, b := range acct.balances {
			st.Balances[d] = amount.Format(b)
		}
	}
	return st
}

// TotalBalance sums all holder balances of a denom. Used by the registry's
// supply-conservation checks and by tests.
func (l *Ledger) TotalBalance(denom string) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := new(uint256.Int)
	for _, acct := range l.accounts {
		if b, ok := acct.balances[denom]; ok {
			total.Add(total, b)
		}
	}
	return total
}

// AccountState is the exported snapshot form of one account.
type AccountState struct {
	Address  string            `json:"address"`
	Nonce    uint64            `json:"nonce"`
	Balances map[string]string `json:"balances"` // denom -> decimal amount
}

// Snapshot exports the full ledger state, sorted by address for determinism.
func (l *Ledger) Snapshot() []AccountState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]AccountState, 0, len(l.accounts))
	for addr, acct := range l.accounts {
		st := AccountState{Address: addr, Nonce: acct.nonce, Balances: make(map[string]string, len(acct.balances))}
		for d, b := range acct.balances {
			st.Balances[d] = amount.Format(b)
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Restore replaces the ledger contents with a snapshot.
func (l *Ledger) Restore(states []AccountState) error {
	accounts := make(map[string]*account, len(states))
	for _, st := range states {
		acct := &account{nonce: st.Nonce, balances: make(map[string]*uint256.Int, len(st.Balances))}
		for d, s := range st.Balances {
			v, err := amount.Parse(s)
			if err != nil {
				return err
			}
			acct.balances[d] = v
		}
		accounts[st.Address] = acct
	}
	l.mu.Lock()
	l.accounts = accounts
	l.mu.Unlock()
	return nil
}
