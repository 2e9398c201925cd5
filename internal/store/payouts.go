package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sc-pool/payout-rpc-client/internal/money"
)

// Sentinel errors, grouped per the error taxonomy the core must distinguish
// (spec.md §7), in the same style as the teacher's storage.ErrOrderNotFound.
var (
	ErrNotFound     = errors.New("store: payout not found")
	ErrDuplicatePID = errors.New("store: pid already exists")
)

// Payout is a durable obligation to pay amount of currencyCode to address on
// behalf of user, per spec.md §3.1. State is derived from Txid/Locked/
// Associated, never stored explicitly.
type Payout struct {
	ID           int64
	PID          string
	User         string
	Address      string
	Amount       money.Amount
	CurrencyCode string
	Txid         string // empty means absent
	Locked       bool
	Associated   bool
	LockTime     *time.Time
	PaidTime     *time.Time
	AssocTime    *time.Time
	PullTime     time.Time
}

// DisplayTxID mirrors the original's Payout.trans_id display-only property:
// "NULL" when no on-chain transaction has been recorded yet.
func (p *Payout) DisplayTxID() string {
	if p.Txid == "" {
		return "NULL"
	}
	return p.Txid
}

// Tx is an exclusive transaction against one currency's payouts table. The
// caller decides when to Commit or Rollback; this lets the Settlement
// Engine hold the lock across multiple steps of a single logical operation
// (read, mutate in memory, decide, then commit or roll back), exactly as
// send (spec.md §4.4.2) requires.
type Tx struct {
	tx *sql.Tx
}

// Begin opens a new exclusive transaction (BEGIN EXCLUSIVE, forced by the
// store's _txlock=exclusive DSN parameter).
func (s *Store) Begin() (*Tx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback rolls back the transaction. Calling Rollback after a successful
// Commit is a no-op error from database/sql and is safe to ignore via defer.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// Insert adds a new PULLED row. Fails with ErrDuplicatePID if the pid
// already exists in this store.
func (t *Tx) Insert(p *Payout) error {
	_, err := t.tx.Exec(`
		INSERT INTO payouts (pid, user, address, amount, currency_code, pull_time)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.PID, p.User, p.Address, p.Amount.String(), p.CurrencyCode, p.PullTime.Unix())
	if err != nil {
		if isUniqueConstraint(err) {
			return ErrDuplicatePID
		}
		return fmt.Errorf("store: insert payout: %w", err)
	}
	return nil
}

// QueryByPID looks up a single payout by its coordinator-assigned pid.
func (t *Tx) QueryByPID(pid string) (*Payout, error) {
	row := t.tx.QueryRow(payoutSelect+" WHERE pid = ?", pid)
	return scanPayout(row)
}

// QueryUnpaidUnlocked returns all PULLED rows (txid empty, not locked) for
// currencyCode — the rows send (spec.md §4.4.2 step 2) groups and pays.
func (t *Tx) QueryUnpaidUnlocked(currencyCode string) ([]*Payout, error) {
	return t.queryRows(payoutSelect+` WHERE currency_code = ? AND (txid IS NULL OR txid = '') AND locked = 0`, currencyCode)
}

// QueryUnpaidLocked returns all LOCKED rows (txid empty, locked) for
// currencyCode.
func (t *Tx) QueryUnpaidLocked(currencyCode string) ([]*Payout, error) {
	return t.queryRows(payoutSelect+` WHERE currency_code = ? AND (txid IS NULL OR txid = '') AND locked = 1`, currencyCode)
}

// QueryPaidUnassociated returns all PAID rows (txid set, not yet
// associated) for currencyCode — the rows associate (spec.md §4.4.3) buckets
// by txid.
func (t *Tx) QueryPaidUnassociated(currencyCode string) ([]*Payout, error) {
	return t.queryRows(payoutSelect+` WHERE currency_code = ? AND txid IS NOT NULL AND txid != '' AND associated = 0`, currencyCode)
}

// QueryLocked returns every LOCKED row for currencyCode, regardless of how
// it got there — used by the repair reporting operations.
func (t *Tx) QueryLocked(currencyCode string) ([]*Payout, error) {
	return t.queryRows(payoutSelect+` WHERE currency_code = ? AND locked = 1`, currencyCode)
}

// QueryAssociated returns every ASSOCIATED row (txid set, associated=true)
// for currencyCode — the dump_complete reporting operation.
func (t *Tx) QueryAssociated(currencyCode string) ([]*Payout, error) {
	return t.queryRows(payoutSelect+` WHERE currency_code = ? AND associated = 1`, currencyCode)
}

func (t *Tx) queryRows(query string, args ...interface{}) ([]*Payout, error) {
	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()

	var out []*Payout
	for rows.Next() {
		p, err := scanPayoutRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateRows commits all in-memory mutations of rows (locked, txid,
// associated, and their timestamps) back to the store. This is the single
// write path send/associate/repair use to flip a row's derived state.
func (t *Tx) UpdateRows(rows []*Payout) error {
	stmt, err := t.tx.Prepare(`
		UPDATE payouts SET
			locked = ?, txid = ?, associated = ?,
			lock_time = ?, paid_time = ?, assoc_time = ?
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("store: prepare update: %w", err)
	}
	defer stmt.Close()

	for _, p := range rows {
		var txid interface{}
		if p.Txid != "" {
			txid = p.Txid
		}
		locked := 0
		if p.Locked {
			locked = 1
		}
		associated := 0
		if p.Associated {
			associated = 1
		}
		if _, err := stmt.Exec(
			locked, txid, associated,
			unixPtr(p.LockTime), unixPtr(p.PaidTime), unixPtr(p.AssocTime),
			p.ID,
		); err != nil {
			return fmt.Errorf("store: update payout %d: %w", p.ID, err)
		}
	}
	return nil
}

// ResetLockedAll flips every locked row of currencyCode back to unlocked,
// clearing lock_time. This is the repair sub-operation reset_locked_all
// (spec.md §4.4.5): the only sanctioned bulk exit from LOCKED short of
// attaching a txid, and the caller asserts no in-flight send_many exists.
func (t *Tx) ResetLockedAll(currencyCode string) (int64, error) {
	res, err := t.tx.Exec(`UPDATE payouts SET locked = 0, lock_time = NULL WHERE currency_code = ? AND locked = 1`, currencyCode)
	if err != nil {
		return 0, fmt.Errorf("store: reset locked: %w", err)
	}
	return res.RowsAffected()
}

const payoutSelect = `SELECT id, pid, user, address, amount, currency_code, txid, locked, associated, lock_time, paid_time, assoc_time, pull_time FROM payouts`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayout(row *sql.Row) (*Payout, error) {
	p, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func scanPayoutRows(rows *sql.Rows) (*Payout, error) {
	return scan(rows)
}

func scan(s rowScanner) (*Payout, error) {
	var p Payout
	var amountStr string
	var txid sql.NullString
	var lockTime, paidTime, assocTime sql.NullInt64
	var pullTime int64
	var locked, associated int

	err := s.Scan(
		&p.ID, &p.PID, &p.User, &p.Address, &amountStr, &p.CurrencyCode,
		&txid, &locked, &associated,
		&lockTime, &paidTime, &assocTime, &pullTime,
	)
	if err != nil {
		return nil, err
	}

	amount, err := money.Parse(amountStr)
	if err != nil {
		return nil, fmt.Errorf("store: corrupt amount for pid %s: %w", p.PID, err)
	}
	p.Amount = amount
	p.Locked = locked != 0
	p.Associated = associated != 0
	if txid.Valid {
		p.Txid = txid.String
	}
	p.PullTime = time.Unix(pullTime, 0).UTC()
	if lockTime.Valid {
		t := time.Unix(lockTime.Int64, 0).UTC()
		p.LockTime = &t
	}
	if paidTime.Valid {
		t := time.Unix(paidTime.Int64, 0).UTC()
		p.PaidTime = &t
	}
	if assocTime.Valid {
		t := time.Unix(assocTime.Int64, 0).UTC()
		p.AssocTime = &t
	}
	return &p, nil
}

func unixPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func isUniqueConstraint(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint")
}
