package engine

import (
	"fmt"

	"github.com/sc-pool/payout-rpc-client/internal/money"
)

// pullTuple is one (user, address, amount, pid) entry from get_payouts,
// per spec.md §4.4.1 and the wire shape in §6.1.
type pullTuple struct {
	user    string
	address string
	amount  money.Amount
	pid     string
}

// parsePullResponse decodes the generic JSON map Transport.Post returns for
// get_payouts into typed tuples.
func parsePullResponse(resp map[string]interface{}) ([]pullTuple, error) {
	raw, ok := resp["pids"]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("malformed get_payouts response: pids is not a list")
	}

	out := make([]pullTuple, 0, len(list))
	for i, item := range list {
		tuple, ok := item.([]interface{})
		if !ok || len(tuple) != 4 {
			return nil, fmt.Errorf("malformed get_payouts entry %d: expected a 4-tuple", i)
		}
		user, ok := tuple[0].(string)
		if !ok {
			return nil, fmt.Errorf("malformed get_payouts entry %d: user is not a string", i)
		}
		addr, ok := tuple[1].(string)
		if !ok {
			return nil, fmt.Errorf("malformed get_payouts entry %d: address is not a string", i)
		}
		amount, err := parseAmount(tuple[2])
		if err != nil {
			return nil, fmt.Errorf("malformed get_payouts entry %d: %w", i, err)
		}
		pid, ok := tuple[3].(string)
		if !ok {
			return nil, fmt.Errorf("malformed get_payouts entry %d: pid is not a string", i)
		}
		out = append(out, pullTuple{user: user, address: addr, amount: amount, pid: pid})
	}
	return out, nil
}

// parseAmount accepts either a JSON number or a decimal string, since the
// coordinator's JSON encoder and this module's own test fixtures disagree
// on which it prefers.
func parseAmount(v interface{}) (money.Amount, error) {
	switch t := v.(type) {
	case string:
		return money.Parse(t)
	case float64:
		return money.Parse(fmt.Sprintf("%.8f", t))
	default:
		return money.Amount{}, fmt.Errorf("amount has unsupported type %T", v)
	}
}
