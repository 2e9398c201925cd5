package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sc-pool/payout-rpc-client/internal/store"
)

// AssociateResult tallies the outcome of Associate.
type AssociateResult struct {
	Confirmed []string // txids successfully pushed to the coordinator
	Skipped   []string // txids left for retry on the next tick
}

// Associate pushes (txid, fee, pids) triples to the coordinator for every
// PAID-but-unassociated payout (spec.md §4.4.3).
func (e *Engine) Associate(ctx context.Context, simulate bool) (AssociateResult, error) {
	tx, err := e.store.Begin()
	if err != nil {
		return AssociateResult{}, fmt.Errorf("engine: associate: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryPaidUnassociated(e.currencyCode)
	if err != nil {
		return AssociateResult{}, fmt.Errorf("engine: associate: query: %w", err)
	}
	if len(rows) == 0 {
		return AssociateResult{}, nil
	}

	byTxid := make(map[string][]*store.Payout)
	for _, row := range rows {
		byTxid[row.Txid] = append(byTxid[row.Txid], row)
	}

	var result AssociateResult
	var toUpdate []*store.Payout
	for txid, group := range byTxid {
		tran, err := e.wallet.GetTransaction(txid)
		if err != nil {
			e.log.Warn("associate: could not fetch transaction, skipping", "txid", txid, "error", err)
			result.Skipped = append(result.Skipped, txid)
			continue
		}

		pids := make([]string, len(group))
		for i, row := range group {
			pids[i] = row.PID
		}

		if simulate {
			result.Confirmed = append(result.Confirmed, txid)
			continue
		}

		resp, err := e.transport.Post(ctx, "associate_payouts", map[string]interface{}{
			"coin_txid": txid,
			"pids":      pids,
			"tx_fee":    tran.Fee.String(),
			"currency":  e.currencyCode,
		})
		if err != nil {
			e.log.Warn("associate: coordinator unreachable, leaving for retry", "txid", txid, "error", err)
			result.Skipped = append(result.Skipped, txid)
			continue
		}
		if ok, _ := resp["result"].(bool); !ok {
			e.log.Warn("associate: coordinator rejected association, leaving for retry", "txid", txid)
			result.Skipped = append(result.Skipped, txid)
			continue
		}

		now := time.Now().UTC()
		for _, row := range group {
			row.Associated = true
			row.AssocTime = &now
			toUpdate = append(toUpdate, row)
		}
		result.Confirmed = append(result.Confirmed, txid)
	}

	if simulate || len(toUpdate) == 0 {
		return result, nil
	}

	if err := tx.UpdateRows(toUpdate); err != nil {
		return AssociateResult{}, fmt.Errorf("engine: associate: update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return AssociateResult{}, fmt.Errorf("engine: associate: commit: %w", err)
	}
	return result, nil
}
