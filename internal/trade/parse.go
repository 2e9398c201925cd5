package trade

import (
	"fmt"

	"github.com/sc-pool/payout-rpc-client/internal/money"
)

// parseTradeRequests decodes the generic JSON map Transport.Post returns
// for get_trade_requests into typed Requests, rejecting the whole batch on
// a malformed entry (spec.md §4.5: "validate shape; reject on malformed
// type/field").
//
// The wire quantity is a JSON float (matching the original's isinstance
// check), but every computation downstream needs an exact decimal: the
// float is accepted for shape validation and immediately reformatted
// through money.Parse so no further arithmetic ever touches a float64,
// mirroring how internal/engine/parse.go handles get_payouts amounts.
func parseTradeRequests(resp map[string]interface{}) ([]Request, error) {
	raw, ok := resp["trs"]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: trs is not a list", ErrMalformed)
	}

	out := make([]Request, 0, len(list))
	for i, item := range list {
		tuple, ok := item.([]interface{})
		if !ok || len(tuple) != 4 {
			return nil, fmt.Errorf("%w: entry %d is not a 4-tuple", ErrMalformed, i)
		}
		trIDFloat, ok := tuple[0].(float64)
		if !ok {
			return nil, fmt.Errorf("%w: entry %d: tr_id is not a number", ErrMalformed, i)
		}
		currency, ok := tuple[1].(string)
		if !ok {
			return nil, fmt.Errorf("%w: entry %d: currency is not a string", ErrMalformed, i)
		}
		quantityFloat, ok := tuple[2].(float64)
		if !ok {
			return nil, fmt.Errorf("%w: entry %d: quantity is not a number", ErrMalformed, i)
		}
		typ, ok := tuple[3].(string)
		if !ok {
			return nil, fmt.Errorf("%w: entry %d: type is not a string", ErrMalformed, i)
		}
		if typ != "buy" && typ != "sell" {
			return nil, fmt.Errorf("%w: entry %d: type %q is neither buy nor sell", ErrMalformed, i, typ)
		}

		quantity, err := money.Parse(fmt.Sprintf("%.8f", quantityFloat))
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: quantity: %v", ErrMalformed, i, err)
		}

		out = append(out, Request{
			TRID:     int64(trIDFloat),
			Currency: currency,
			Quantity: quantity,
			Type:     typ,
		})
	}
	return out, nil
}
