// Package trade implements the Trade Reconciler (spec.md §4.5): pulls open
// trade requests for a currency from the coordinator, computes pro-rata
// splits against a quoted BTC quantity, and posts completions back.
//
// It reuses the Signed HTTP Transport (internal/transport) the Settlement
// Engine uses for the coordinator, since both speak the same signed /rpc/
// envelope (spec.md §4.5: "Same Transport"). Ported from
// original_source/simplecoin_rpc_client/trade_manager.py; all arithmetic
// goes through internal/money instead of Python Decimal.
package trade

import (
	"errors"

	"github.com/sc-pool/payout-rpc-client/internal/money"
	"github.com/sc-pool/payout-rpc-client/internal/transport"
	"github.com/sc-pool/payout-rpc-client/pkg/logging"
)

// ErrMalformed is returned by GetOpenTradeRequests when the coordinator's
// response fails the shape check spec.md §4.5 requires ("reject on
// malformed type/field").
var ErrMalformed = errors.New("trade: malformed get_trade_requests response")

// ErrAborted is returned when the mandatory operator confirmation answers
// anything other than "y" (spec.md §4.5: "any other answer aborts without
// posting").
var ErrAborted = errors.New("trade: aborted by operator")

// Request is one open trade request as returned by get_trade_requests
// (spec.md §6.1): {tr_id, currency, quantity, type}.
type Request struct {
	TRID     int64
	Currency string
	Quantity money.Amount
	Type     string // "buy" or "sell"
}

// Config wires a Reconciler to one coordinator session.
type Config struct {
	Transport *transport.Transport
	Log       *logging.Logger
}

// Reconciler is the Trade Reconciler for one coordinator session. Unlike
// the Settlement Engine it is not scoped to a single currency: trade
// requests for every currency arrive over the same coordinator session and
// are filtered by currency per call (spec.md §4.5).
type Reconciler struct {
	transport *transport.Transport
	log       *logging.Logger
}

// New builds a Reconciler from cfg.
func New(cfg Config) *Reconciler {
	return &Reconciler{transport: cfg.Transport, log: cfg.Log.Component("trade")}
}
