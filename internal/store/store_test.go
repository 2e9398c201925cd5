package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sc-pool/payout-rpc-client/internal/money"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(Config{Path: filepath.Join(dir, "rpc_LTC.sqlite")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertPayout(t *testing.T, s *Store, pid, addr, amount string) {
	t.Helper()
	tx, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer tx.Rollback()

	p := &Payout{
		PID:          pid,
		User:         "u1",
		Address:      addr,
		Amount:       money.MustParse(amount),
		CurrencyCode: "LTC",
		PullTime:     time.Now().UTC(),
	}
	if err := tx.Insert(p); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestInsertAndQueryUnpaidUnlocked(t *testing.T) {
	s := openTestStore(t)
	insertPayout(t, s, "p1", "addrA", "0.3")
	insertPayout(t, s, "p2", "addrA", "0.4")

	tx, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryUnpaidUnlocked("LTC")
	if err != nil {
		t.Fatalf("QueryUnpaidUnlocked: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 PULLED rows, got %d", len(rows))
	}
}

func TestDuplicatePIDRejected(t *testing.T) {
	s := openTestStore(t)
	insertPayout(t, s, "p1", "addrA", "0.3")

	tx, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer tx.Rollback()

	err = tx.Insert(&Payout{PID: "p1", User: "u1", Address: "addrB", Amount: money.MustParse("0.1"), CurrencyCode: "LTC", PullTime: time.Now()})
	if err != ErrDuplicatePID {
		t.Fatalf("expected ErrDuplicatePID, got %v", err)
	}
}

func TestLockThenPayTransitionsState(t *testing.T) {
	s := openTestStore(t)
	insertPayout(t, s, "p1", "addrA", "0.3")

	tx, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	rows, err := tx.QueryUnpaidUnlocked("LTC")
	if err != nil {
		t.Fatalf("QueryUnpaidUnlocked: %v", err)
	}
	now := time.Now().UTC()
	for _, p := range rows {
		p.Locked = true
		p.LockTime = &now
	}
	if err := tx.UpdateRows(rows); err != nil {
		t.Fatalf("UpdateRows: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	tx2, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer tx2.Rollback()

	locked, err := tx2.QueryUnpaidLocked("LTC")
	if err != nil {
		t.Fatalf("QueryUnpaidLocked: %v", err)
	}
	if len(locked) != 1 {
		t.Fatalf("expected 1 LOCKED row, got %d", len(locked))
	}

	paidTime := time.Now().UTC()
	locked[0].Locked = false
	locked[0].Txid = "txABC"
	locked[0].PaidTime = &paidTime
	if err := tx2.UpdateRows(locked); err != nil {
		t.Fatalf("UpdateRows: %v", err)
	}
	if err := tx2.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	tx3, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer tx3.Rollback()
	paid, err := tx3.QueryPaidUnassociated("LTC")
	if err != nil {
		t.Fatalf("QueryPaidUnassociated: %v", err)
	}
	if len(paid) != 1 || paid[0].Txid != "txABC" {
		t.Fatalf("expected 1 PAID row with txid txABC, got %+v", paid)
	}
}

func TestRollbackDiscardsMutation(t *testing.T) {
	s := openTestStore(t)
	insertPayout(t, s, "p1", "addrA", "0.3")

	tx, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	rows, _ := tx.QueryUnpaidUnlocked("LTC")
	rows[0].Locked = true
	if err := tx.UpdateRows(rows); err != nil {
		t.Fatalf("UpdateRows: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	tx2, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer tx2.Rollback()
	unlocked, err := tx2.QueryUnpaidUnlocked("LTC")
	if err != nil {
		t.Fatalf("QueryUnpaidUnlocked: %v", err)
	}
	if len(unlocked) != 1 {
		t.Fatalf("expected rollback to discard the lock, got %d unlocked rows", len(unlocked))
	}
}

func TestResetLockedAll(t *testing.T) {
	s := openTestStore(t)
	insertPayout(t, s, "p1", "addrA", "0.3")

	tx, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	rows, _ := tx.QueryUnpaidUnlocked("LTC")
	now := time.Now().UTC()
	rows[0].Locked = true
	rows[0].LockTime = &now
	if err := tx.UpdateRows(rows); err != nil {
		t.Fatalf("UpdateRows: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	tx2, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	n, err := tx2.ResetLockedAll("LTC")
	if err != nil {
		t.Fatalf("ResetLockedAll: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row reset, got %d", n)
	}
	if err := tx2.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	tx3, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer tx3.Rollback()
	locked, err := tx3.QueryUnpaidLocked("LTC")
	if err != nil {
		t.Fatalf("QueryUnpaidLocked: %v", err)
	}
	if len(locked) != 0 {
		t.Fatalf("expected no locked rows after reset, got %d", len(locked))
	}
}

func TestDropAndCreate(t *testing.T) {
	s := openTestStore(t)
	insertPayout(t, s, "p1", "addrA", "0.3")

	if err := s.DropAndCreate(); err != nil {
		t.Fatalf("DropAndCreate: %v", err)
	}

	tx, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer tx.Rollback()
	rows, err := tx.QueryUnpaidUnlocked("LTC")
	if err != nil {
		t.Fatalf("QueryUnpaidUnlocked: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty table after DropAndCreate, got %d rows", len(rows))
	}
}
