package ledger

import (
	"github.com/holiman/uint256"

	"github.com/sultan-labs/sultand/internal/core/amount"
)

type entryKind int

const (
	entryDebit entryKind = iota
	entryCredit
)

type entry struct {
	kind    entryKind
	address string
	denom   string
	amount  *uint256.Int
}

type nonceCheck struct {
	address  string
	supplied uint64
}

// Batch stages a set of debits, credits and an optional nonce check that are
// validated and applied as one unit under the ledger lock. If any staged
// entry fails validation, nothing is applied.
type Batch struct {
	l       *Ledger
	entries []entry
	nonce   *nonceCheck
}

// NewBatch starts an empty batch.
func (l *Ledger) NewBatch() *Batch {
	return &Batch{l: l}
}

// Debit stages a balance decrease.
func (b *Batch) Debit(address, denom string, amt *uint256.Int) *Batch {
	b.entries = append(b.entries, entry{entryDebit, address, denom, amt})
	return b
}

// Credit stages a balance increase.
func (b *Batch) Credit(address, denom string, amt *uint256.Int) *Batch {
	b.entries = append(b.entries, entry{entryCredit, address, denom, amt})
	return b
}

// RequireNonce stages a check that the address's current nonce equals
// supplied; on success the nonce advances by one.
func (b *Batch) RequireNonce(address string, supplied uint64) *Batch {
	b.nonce = &nonceCheck{address: address, supplied: supplied}
	return b
}

type balanceKey struct {
	address string
	denom   string
}

// Apply validates every staged entry against working copies of the touched
// balances, in staging order, then writes the final values back. Either all
// of it lands or none of it does.
func (b *Batch) Apply() error {
	for _, e := range b.entries {
		if e.amount == nil || !amount.FitsU128(e.amount) {
			return ErrInvalidAmount
		}
	}

	b.l.mu.Lock()
	defer b.l.mu.Unlock()

	if b.nonce != nil {
		current := uint64(0)
		if acct, ok := b.l.accounts[b.nonce.address]; ok {
			current = acct.nonce
		}
		if b.nonce.supplied != current {
			return ErrNonceMismatch
		}
	}

	// Stage against working copies so a later failure leaves no trace.
	staged := make(map[balanceKey]*uint256.Int, len(b.entries))
	working := func(k balanceKey) *uint256.Int {
		if v, ok := staged[k]; ok {
			return v
		}
		v := new(uint256.Int)
		if acct, ok := b.l.accounts[k.address]; ok {
			if cur, ok := acct.balances[k.denom]; ok {
				v.Set(cur)
			}
		}
		staged[k] = v
		return v
	}

	for _, e := range b.entries {
		k := balanceKey{e.address, e.denom}
		bal := working(k)
		switch e.kind {
		case entryDebit:
			if bal.Cmp(e.amount) < 0 {
				return ErrInsufficientBalance
			}
			bal.Sub(bal, e.amount)
		case entryCredit:
			bal.Add(bal, e.amount)
			if !amount.FitsU128(bal) {
				return ErrOverflow
			}
		}
	}

	// Commit point: nothing below can fail.
	for k, v := range staged {
		acct, ok := b.l.accounts[k.address]
		if !ok {
			acct = &account{balances: make(map[string]*uint256.Int)}
			b.l.accounts[k.address] = acct
		}
		acct.balances[k.denom] = v
	}
	if b.nonce != nil {
		acct, ok := b.l.accounts[b.nonce.address]
		if !ok {
			acct = &account{balances: make(map[string]*uint256.Int)}
			b.l.accounts[b.nonce.address] = acct
		}
		acct.nonce++
	}
	return nil
}
