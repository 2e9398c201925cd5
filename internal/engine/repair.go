package engine

import (
	"fmt"
	"time"

	"github.com/sc-pool/payout-rpc-client/internal/store"
)

// ResetLockedAll flips every LOCKED row back to unlocked (spec.md §4.4.5).
// The caller asserts no in-flight send_many and no mid-send funds movement
// for this currency; this is never invoked by the scheduler.
func (e *Engine) ResetLockedAll(simulate bool) (int64, error) {
	tx, err := e.store.Begin()
	if err != nil {
		return 0, fmt.Errorf("engine: reset locked: %w", err)
	}
	defer tx.Rollback()

	n, err := tx.ResetLockedAll(e.currencyCode)
	if err != nil {
		return 0, fmt.Errorf("engine: reset locked: %w", err)
	}
	if simulate {
		return n, nil
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("engine: reset locked: %w", err)
	}
	return n, nil
}

// LocalAssociateLocked attaches a known txid to a single LOCKED row and
// clears its lock, the narrow exit from LOCKED∞ when the operator has
// confirmed, out of band, which transaction actually paid it.
func (e *Engine) LocalAssociateLocked(pid string, txid string, simulate bool) error {
	tx, err := e.store.Begin()
	if err != nil {
		return fmt.Errorf("engine: local associate: %w", err)
	}
	defer tx.Rollback()

	row, err := tx.QueryByPID(pid)
	if err != nil {
		return fmt.Errorf("engine: local associate: %w", err)
	}
	if row.CurrencyCode != e.currencyCode {
		return fmt.Errorf("engine: local associate: pid %s belongs to currency %s, not %s", pid, row.CurrencyCode, e.currencyCode)
	}

	now := time.Now().UTC()
	row.Locked = false
	row.Txid = txid
	row.PaidTime = &now

	if simulate {
		return nil
	}
	if err := tx.UpdateRows([]*store.Payout{row}); err != nil {
		return fmt.Errorf("engine: local associate: %w", err)
	}
	return tx.Commit()
}

// LocalAssociateAllLocked applies LocalAssociateLocked's txid to every
// LOCKED row of this currency in one transaction.
func (e *Engine) LocalAssociateAllLocked(txid string, simulate bool) (int64, error) {
	tx, err := e.store.Begin()
	if err != nil {
		return 0, fmt.Errorf("engine: local associate all: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryLocked(e.currencyCode)
	if err != nil {
		return 0, fmt.Errorf("engine: local associate all: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	for _, row := range rows {
		row.Locked = false
		row.Txid = txid
		row.PaidTime = &now
	}

	if simulate {
		return int64(len(rows)), nil
	}
	if err := tx.UpdateRows(rows); err != nil {
		return 0, fmt.Errorf("engine: local associate all: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("engine: local associate all: %w", err)
	}
	return int64(len(rows)), nil
}
