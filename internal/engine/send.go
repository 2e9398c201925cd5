package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sc-pool/payout-rpc-client/internal/money"
	"github.com/sc-pool/payout-rpc-client/internal/store"
	"github.com/sc-pool/payout-rpc-client/internal/wallet"
)

// SendResult reports the outcome of a successful Send.
type SendResult struct {
	// Simulated is true when no transaction was actually broadcast.
	Simulated bool
	Txid      string
	Fee       money.Amount
	Pids      []string
	Addresses []string
	TotalOut  money.Amount
}

// Send is the critical section of the engine (spec.md §4.4.2): it groups
// unpaid, unlocked payouts by address, locks them, verifies the wallet can
// cover the total, and broadcasts one transaction paying every recipient.
//
// Ordering guarantees: the commit of locked=true strictly precedes
// send_many; the commit of txid=... strictly precedes returning success.
// If the process crashes between the wallet call and the final commit, the
// affected rows are left LOCKED with a moved balance — LOCKED∞, recoverable
// only through repair (spec.md §4.4.5).
func (e *Engine) Send(ctx context.Context, simulate bool) (SendResult, error) {
	if err := e.wallet.Poke(); err != nil {
		e.log.Warn("send: wallet unreachable", "error", err)
		return SendResult{}, err
	}

	tx, err := e.store.Begin()
	if err != nil {
		return SendResult{}, fmt.Errorf("engine: send: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	rows, err := tx.QueryUnpaidUnlocked(e.currencyCode)
	if err != nil {
		return SendResult{}, fmt.Errorf("engine: send: query unpaid unlocked: %w", err)
	}
	if len(rows) == 0 {
		return SendResult{}, nil
	}

	byAddress := make(map[string][]*store.Payout)
	for _, row := range rows {
		byAddress[row.Address] = append(byAddress[row.Address], row)
	}

	now := time.Now().UTC()
	for _, row := range rows {
		row.Locked = true
		row.LockTime = &now
	}

	recipients := make(map[string]money.Amount, len(byAddress))
	for addr, group := range byAddress {
		amounts := make([]money.Amount, len(group))
		for i, row := range group {
			amounts[i] = row.Amount
		}
		total := money.Sum(amounts)
		// Amount already carries exactly 8 fractional digits, so the
		// "round to 8 fractional digits" step of the spec is a no-op here.
		if total.LessThan(e.minOutput) {
			e.log.Warn("send: address below minimum output, deferring", "address", addr, "amount", total.String())
			for _, row := range group {
				row.Locked = false
				row.LockTime = nil
			}
			continue
		}
		recipients[addr] = total
	}

	if len(recipients) == 0 {
		return SendResult{}, nil
	}

	totals := make([]money.Amount, 0, len(recipients))
	for _, a := range recipients {
		totals = append(totals, a)
	}
	totalOut := money.Sum(totals)
	if totalOut.IsZero() {
		return SendResult{}, nil
	}

	balanceBefore, err := e.wallet.Balance(e.account)
	if err != nil {
		return SendResult{}, fmt.Errorf("engine: send: balance: %w", err)
	}
	if balanceBefore.LessThan(totalOut) {
		e.log.Warn("send: insufficient balance", "balance", balanceBefore.String(), "needed", totalOut.String())
		return SendResult{}, ErrFundsInsufficient
	}

	if err := tx.UpdateRows(rows); err != nil {
		return SendResult{}, fmt.Errorf("engine: send: commit locks: %w", err)
	}

	if simulate {
		return SendResult{Simulated: true, TotalOut: totalOut, Addresses: addressList(recipients)}, nil
	}

	if err := tx.Commit(); err != nil {
		return SendResult{}, fmt.Errorf("engine: send: commit locks: %w", err)
	}
	committed = true

	txid, meta, sendErr := e.wallet.SendMany(e.account, recipients)
	if sendErr != nil {
		return e.recoverFromFailedSend(byAddress, recipients, balanceBefore, sendErr)
	}

	return e.finalizeSend(byAddress, recipients, txid, meta, totalOut)
}

// recoverFromFailedSend implements spec.md §4.4.2 step 9: a failed
// send_many is not proof that nothing moved, so the wallet balance after
// the attempt is the arbiter.
func (e *Engine) recoverFromFailedSend(byAddress map[string][]*store.Payout, recipients map[string]money.Amount, balanceBefore money.Amount, sendErr error) (SendResult, error) {
	balanceAfter, balErr := e.wallet.Balance(e.account)
	if balErr != nil {
		// We cannot tell whether funds moved; treat conservatively as
		// LOCKED∞ rather than silently unlocking rows that might have paid.
		return SendResult{}, &LockedForeverError{
			CurrencyCode:  e.currencyCode,
			Addresses:     addressList(recipients),
			BalanceBefore: balanceBefore.String(),
			BalanceAfter:  "unknown: " + balErr.Error(),
		}
	}

	if balanceAfter.Cmp(balanceBefore) == 0 {
		tx, err := e.store.Begin()
		if err != nil {
			return SendResult{}, fmt.Errorf("engine: send: recover: %w", err)
		}
		defer tx.Rollback()

		var rows []*store.Payout
		for addr := range recipients {
			for _, row := range byAddress[addr] {
				row.Locked = false
				row.LockTime = nil
				rows = append(rows, row)
			}
		}
		if err := tx.UpdateRows(rows); err != nil {
			return SendResult{}, fmt.Errorf("engine: send: recover: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return SendResult{}, fmt.Errorf("engine: send: recover: %w", err)
		}
		e.log.Warn("send: wallet call failed, no funds moved, rows unlocked", "error", sendErr)
		return SendResult{}, sendErr
	}

	e.log.Error("send: funds moved but no txid recorded; entering LOCKED forever", "error", sendErr)
	return SendResult{}, &LockedForeverError{
		CurrencyCode:  e.currencyCode,
		Addresses:     addressList(recipients),
		BalanceBefore: balanceBefore.String(),
		BalanceAfter:  balanceAfter.String(),
	}
}

func (e *Engine) finalizeSend(byAddress map[string][]*store.Payout, recipients map[string]money.Amount, txid string, meta wallet.TxMeta, totalOut money.Amount) (SendResult, error) {
	tx, err := e.store.Begin()
	if err != nil {
		return SendResult{}, fmt.Errorf("engine: send: finalize: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var rows []*store.Payout
	var pids []string
	for addr := range recipients {
		for _, row := range byAddress[addr] {
			row.Locked = false
			row.Txid = txid
			row.PaidTime = &now
			rows = append(rows, row)
			pids = append(pids, row.PID)
		}
	}

	if err := tx.UpdateRows(rows); err != nil {
		return SendResult{}, fmt.Errorf("engine: send: finalize: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return SendResult{}, fmt.Errorf("engine: send: finalize: %w", err)
	}

	return SendResult{
		Txid:      txid,
		Fee:       meta.Fee,
		Pids:      pids,
		Addresses: addressList(recipients),
		TotalOut:  totalOut,
	}, nil
}

func addressList(recipients map[string]money.Amount) []string {
	out := make([]string, 0, len(recipients))
	for addr := range recipients {
		out = append(out, addr)
	}
	return out
}
