package trade

import (
	"context"
	"fmt"

	"github.com/sc-pool/payout-rpc-client/internal/money"
	"github.com/sc-pool/payout-rpc-client/internal/transport"
)

// closedStatus is the coordinator status code close_trade_request always
// posts (spec.md §4.5: "status 6"), a fixed value the original hardcodes
// rather than taking as a parameter.
const closedStatus = 6

// GetOpenTradeRequests fetches every open trade request from the
// coordinator and splits it into sells and buys (spec.md §4.5). Returns
// ErrMalformed if the response fails shape validation, or a nil result (no
// error) on a Transport.ErrUnreachable, matching Pull's carve-out.
func (r *Reconciler) GetOpenTradeRequests(ctx context.Context) (sells, buys []Request, err error) {
	resp, err := r.transport.Post(ctx, "get_trade_requests", map[string]interface{}{})
	if err != nil {
		r.log.Warn("get_trade_requests: coordinator unreachable", "error", err)
		return nil, nil, nil
	}

	trs, err := parseTradeRequests(resp)
	if err != nil {
		return nil, nil, err
	}

	for _, tr := range trs {
		switch tr.Type {
		case "sell":
			sells = append(sells, tr)
		case "buy":
			buys = append(buys, tr)
		}
	}

	r.log.Info("fetched open trade requests", "sells", len(sells), "buys", len(buys))
	return sells, buys, nil
}

// UpdateTradeRequest posts an arbitrary status update for a single trade
// request (spec.md's SUPPLEMENTED FEATURES: the original's generic
// update_tr, distinct from CloseTradeRequest's hardcoded status-6 path).
// The operator confirmation is mandatory; confirm is called with a preview
// of what will be posted and must return true to proceed.
func (r *Reconciler) UpdateTradeRequest(ctx context.Context, trID int64, quantity, fees money.Amount, status int, simulate bool, confirm func(preview string) bool) (bool, error) {
	update := map[string]interface{}{
		strconvItoa(trID): map[string]interface{}{
			"status":   status,
			"quantity": quantity.String(),
			"fees":     fees.String(),
		},
	}
	preview := fmt.Sprintf("tr_id=%d status=%d quantity=%s fees=%s", trID, status, quantity.String(), fees.String())
	if confirm != nil && !confirm(preview) {
		return false, ErrAborted
	}

	if simulate {
		r.log.Info("simulate mode enabled: not posting update_trade_requests", "preview", preview)
		return false, nil
	}

	return r.postUpdate(ctx, update)
}

// CloseTradeRequest closes a single trade request at the fixed status-6
// ("closed") code (spec.md §4.5).
func (r *Reconciler) CloseTradeRequest(ctx context.Context, trID int64, quantity, totalFees money.Amount, simulate bool) (bool, error) {
	update := map[string]interface{}{
		strconvItoa(trID): map[string]interface{}{
			"status":   closedStatus,
			"quantity": quantity.String(),
			"fees":     totalFees.String(),
		},
	}

	if simulate {
		r.log.Info("simulate mode enabled: not posting update_trade_requests", "tr_id", trID)
		return false, nil
	}

	return r.postUpdate(ctx, update)
}

func (r *Reconciler) postUpdate(ctx context.Context, trs map[string]interface{}) (bool, error) {
	resp, err := r.transport.Post(ctx, "update_trade_requests", map[string]interface{}{
		"update": true,
		"trs":    trs,
	})
	if err != nil {
		if err == transport.ErrUnreachable {
			r.log.Warn("update_trade_requests: coordinator unreachable")
			return false, nil
		}
		return false, err
	}

	ok, _ := resp["success"].(bool)
	if !ok {
		r.log.Warn("update_trade_requests: coordinator rejected update", "response", resp)
	}
	return ok, nil
}

func strconvItoa(n int64) string {
	return fmt.Sprintf("%d", n)
}
