package engine

import (
	"context"
	"fmt"
	"net/url"
)

// ConfirmResult lists the txids reported as confirmed to the coordinator.
type ConfirmResult struct {
	Confirmed []string
}

// Confirm enumerates the coordinator's unconfirmed transactions for this
// currency, checks confirmation depth via the wallet, and reports the ones
// past MinConfirms back (spec.md §4.4.4). It never mutates local Payout
// rows.
func (e *Engine) Confirm(ctx context.Context, simulate bool) (ConfirmResult, error) {
	if err := e.wallet.Poke(); err != nil {
		e.log.Warn("confirm: wallet unreachable", "error", err)
		return ConfirmResult{}, err
	}

	filter := fmt.Sprintf(`{"confirmed":false,"currency":%q}`, e.currencyCode)
	path := "/api/transaction?__filter_by=" + url.QueryEscape(filter)

	resp, err := e.transport.Get(ctx, path)
	if err != nil {
		e.log.Warn("confirm: coordinator unreachable", "error", err)
		return ConfirmResult{}, nil
	}

	objects, _ := resp["objects"].([]interface{})
	var result ConfirmResult
	for _, obj := range objects {
		entry, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		txid, ok := entry["txid"].(string)
		if !ok || txid == "" {
			continue
		}

		tran, err := e.wallet.GetTransaction(txid)
		if err != nil {
			e.log.Warn("confirm: could not fetch transaction", "txid", txid, "error", err)
			continue
		}
		if tran.Confirmations > e.minConfirms {
			result.Confirmed = append(result.Confirmed, txid)
		}
	}

	if len(result.Confirmed) == 0 || simulate {
		return result, nil
	}

	if _, err := e.transport.Post(ctx, "confirm_transactions", map[string]interface{}{"tids": result.Confirmed}); err != nil {
		e.log.Warn("confirm: failed to report confirmed transactions", "error", err)
		return ConfirmResult{}, err
	}
	return result, nil
}
