// Package wallet defines the Wallet Gateway (spec.md §4.3): the settlement
// engine's abstract view onto a coin daemon's RPC, plus one concrete
// implementation speaking bitcoind-style JSON-RPC over HTTP.
//
// The request/response envelope and error-code handling follow the
// teacher's internal/rpc/server.go conventions (Request/Response/Error as a
// hand-rolled JSON-over-HTTP shape) — used there as a server, used here as
// the client side of the same wire format, since no JSON-RPC client library
// appears anywhere in the retrieval pack.
package wallet

import (
	"errors"

	"github.com/sc-pool/payout-rpc-client/internal/money"
)

// ErrorKind classifies a send_many failure per spec.md §4.3's table.
type ErrorKind int

const (
	// KindUnknown is an unclassified wallet error.
	KindUnknown ErrorKind = iota
	// KindInsufficientFunds means the wallet does not hold enough balance.
	KindInsufficientFunds
	// KindTransient means the call may succeed if retried.
	KindTransient
	// KindNotFound means the referenced transaction does not exist.
	KindNotFound
)

// Error is a classified wallet RPC error; Kind names its class. The engine
// does not branch on Kind: send (spec.md §4.4.2) treats every SendMany
// failure alike and decides by the wallet balance afterwards, and
// associate/confirm (§4.4.3, §4.4.4) skip any failed lookup.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrUnreachable is returned by Poke, Balance, and SendMany when the daemon
// itself cannot be reached at all (connection refused, timeout before any
// response).
var ErrUnreachable = errors.New("wallet: daemon unreachable")

// TxMeta is the metadata returned alongside a successful send_many call.
type TxMeta struct {
	Fee money.Amount
}

// Transaction is the result of GetTransaction.
type Transaction struct {
	Confirmations int
	Fee           money.Amount
}

// Gateway is the abstract interface the Settlement Engine drives. The
// engine never depends on a concrete wallet implementation directly.
type Gateway interface {
	// Poke performs a cheap round trip (e.g. getinfo) to confirm the daemon
	// is reachable. Returns ErrUnreachable on failure.
	Poke() error

	// Balance returns the decimal balance of the configured account, exact
	// to 8 fractional digits.
	Balance(account string) (money.Amount, error)

	// SendMany submits one transaction paying every recipient in amounts.
	// It is not idempotent: a returned error does not mean the transaction
	// was not broadcast (spec.md §4.4.2 step 9).
	SendMany(account string, amounts map[string]money.Amount) (txid string, meta TxMeta, err error)

	// GetTransaction looks up a previously broadcast transaction by txid.
	GetTransaction(txid string) (Transaction, error)
}
