package engine

import "errors"

// ErrFundsInsufficient is returned by Send when the wallet balance is
// smaller than the total amount queued for payout (spec.md §4.4.2 step 6).
var ErrFundsInsufficient = errors.New("engine: wallet balance insufficient for queued payouts")

// LockedForeverError reports the LOCKED∞ state (spec.md §3.2, §4.4.2 step
// 9): send_many failed but the wallet balance moved anyway, so the affected
// rows are left LOCKED with no txid. Only repair (§4.4.5) can clear it.
type LockedForeverError struct {
	CurrencyCode   string
	Addresses      []string
	BalanceBefore  string
	BalanceAfter   string
}

func (e *LockedForeverError) Error() string {
	return "engine: " + e.CurrencyCode + ": funds moved during a failed send but no txid was recorded; rows are LOCKED indefinitely, operator repair required"
}
