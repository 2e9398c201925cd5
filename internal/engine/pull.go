package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sc-pool/payout-rpc-client/internal/address"
	"github.com/sc-pool/payout-rpc-client/internal/store"
)

// PullResult tallies the outcome of a Pull, per spec.md §4.4.1's
// "Report (new, repeat, invalid)".
type PullResult struct {
	New     int
	Repeat  int
	Invalid int
}

// Pull fetches pending obligations from the coordinator and ingests them as
// PULLED rows (spec.md §4.4.1). On Transport.ErrUnreachable it logs and
// returns a zero result with no mutation, matching the spec's explicit
// carve-out.
func (e *Engine) Pull(ctx context.Context, simulate bool) (PullResult, error) {
	resp, err := e.transport.Post(ctx, "get_payouts", map[string]interface{}{"currency": e.currencyCode})
	if err != nil {
		e.log.Warn("pull: coordinator unreachable", "error", err)
		return PullResult{}, nil
	}

	tuples, err := parsePullResponse(resp)
	if err != nil {
		return PullResult{}, fmt.Errorf("engine: pull: %w", err)
	}

	tx, err := e.store.Begin()
	if err != nil {
		return PullResult{}, fmt.Errorf("engine: pull: %w", err)
	}
	defer tx.Rollback()

	var result PullResult
	now := time.Now().UTC()
	for _, t := range tuples {
		if err := address.CheckVersion(t.address, e.validVersions); err != nil {
			result.Invalid++
			continue
		}
		if _, err := tx.QueryByPID(t.pid); err == nil {
			result.Repeat++
			continue
		} else if err != store.ErrNotFound {
			return PullResult{}, fmt.Errorf("engine: pull: query by pid: %w", err)
		}

		row := &store.Payout{
			PID:          t.pid,
			User:         t.user,
			Address:      t.address,
			Amount:       t.amount,
			CurrencyCode: e.currencyCode,
			PullTime:     now,
		}
		if err := tx.Insert(row); err != nil {
			if err == store.ErrDuplicatePID {
				result.Repeat++
				continue
			}
			return PullResult{}, fmt.Errorf("engine: pull: insert: %w", err)
		}
		result.New++
	}

	if simulate {
		return result, nil
	}
	if err := tx.Commit(); err != nil {
		return PullResult{}, fmt.Errorf("engine: pull: commit: %w", err)
	}
	return result, nil
}
