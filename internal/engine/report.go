package engine

import (
	"fmt"

	"github.com/sc-pool/payout-rpc-client/internal/store"
)

// UnpaidLocked returns every LOCKED row (spec.md §4.4.6).
func (e *Engine) UnpaidLocked() ([]*store.Payout, error) {
	return e.readOnlyQuery(func(tx *store.Tx) ([]*store.Payout, error) {
		return tx.QueryUnpaidLocked(e.currencyCode)
	})
}

// UnpaidUnlocked returns every PULLED row.
func (e *Engine) UnpaidUnlocked() ([]*store.Payout, error) {
	return e.readOnlyQuery(func(tx *store.Tx) ([]*store.Payout, error) {
		return tx.QueryUnpaidUnlocked(e.currencyCode)
	})
}

// PaidUnassociated returns every PAID-but-unassociated row.
func (e *Engine) PaidUnassociated() ([]*store.Payout, error) {
	return e.readOnlyQuery(func(tx *store.Tx) ([]*store.Payout, error) {
		return tx.QueryPaidUnassociated(e.currencyCode)
	})
}

// DumpIncomplete returns every row that has not reached ASSOCIATED:
// PULLED, LOCKED, and PAID-but-unassociated rows together.
func (e *Engine) DumpIncomplete() ([]*store.Payout, error) {
	unlocked, err := e.UnpaidUnlocked()
	if err != nil {
		return nil, err
	}
	locked, err := e.UnpaidLocked()
	if err != nil {
		return nil, err
	}
	paid, err := e.PaidUnassociated()
	if err != nil {
		return nil, err
	}
	out := make([]*store.Payout, 0, len(unlocked)+len(locked)+len(paid))
	out = append(out, unlocked...)
	out = append(out, locked...)
	out = append(out, paid...)
	return out, nil
}

// DumpComplete returns every ASSOCIATED row (txid set, associated=true).
func (e *Engine) DumpComplete() ([]*store.Payout, error) {
	return e.readOnlyQuery(func(tx *store.Tx) ([]*store.Payout, error) {
		return tx.QueryAssociated(e.currencyCode)
	})
}

// InitDB drops and recreates this currency's payout table. Destructive;
// never invoked by the scheduler.
func (e *Engine) InitDB() error {
	return e.store.DropAndCreate()
}

func (e *Engine) readOnlyQuery(f func(tx *store.Tx) ([]*store.Payout, error)) ([]*store.Payout, error) {
	tx, err := e.store.Begin()
	if err != nil {
		return nil, fmt.Errorf("engine: report: %w", err)
	}
	defer tx.Rollback()
	return f(tx)
}
