// Package engine implements the Settlement Engine (spec.md §4.4): the
// per-currency state machine over durable Payout rows that coordinates the
// local store, the coin wallet gateway, and the coordinator transport
// without double-paying or losing the mapping between obligations and
// on-chain transactions.
//
// Control flow is ported directly from
// original_source/simplecoin_rpc_client/payout_manager.py's send_payout,
// get_new_payouts, associate_all_to_coinserv, and confirm_transactions,
// re-expressed with the teacher's lock-then-commit, typed-query storage
// idiom (internal/storage/orders.go's Filter/List pattern generalized here
// to Payout queries) and its explicit, threaded *logging.Logger rather than
// a global.
package engine

import (
	"github.com/sc-pool/payout-rpc-client/internal/money"
	"github.com/sc-pool/payout-rpc-client/internal/store"
	"github.com/sc-pool/payout-rpc-client/internal/transport"
	"github.com/sc-pool/payout-rpc-client/internal/wallet"
	"github.com/sc-pool/payout-rpc-client/pkg/logging"
)

// Config wires one currency's collaborators into an Engine. Each configured
// currency gets its own Engine, its own Store file, and its own Gateway, per
// spec.md §3.2 and §5's isolation requirements.
type Config struct {
	Store        *store.Store
	Wallet       wallet.Gateway
	Transport    *transport.Transport
	CurrencyCode string
	// Account is the wallet account/label send_many and balance operate on.
	Account string
	// ValidAddressVersions are the base58 version bytes accepted for this
	// currency (spec.md §3.1: "address passed a version check at insertion
	// time").
	ValidAddressVersions []int
	// MinimumTxOutput is the smallest aggregate amount send will include in
	// a transaction; addresses below it are dropped for the tick (spec.md
	// §4.4.2 step 5).
	MinimumTxOutput money.Amount
	// MinConfirms is the depth confirm waits for before reporting a
	// transaction back to the coordinator (spec.md §4.4.4, default 12).
	MinConfirms int
	Log         *logging.Logger
}

// Engine is the Settlement Engine for one currency.
type Engine struct {
	store        *store.Store
	wallet       wallet.Gateway
	transport    *transport.Transport
	currencyCode string
	account      string
	validVersions []int
	minOutput    money.Amount
	minConfirms  int
	log          *logging.Logger
}

// New builds an Engine from cfg.
func New(cfg Config) *Engine {
	minConfirms := cfg.MinConfirms
	if minConfirms <= 0 {
		minConfirms = 12
	}
	return &Engine{
		store:         cfg.Store,
		wallet:        cfg.Wallet,
		transport:     cfg.Transport,
		currencyCode:  cfg.CurrencyCode,
		account:       cfg.Account,
		validVersions: cfg.ValidAddressVersions,
		minOutput:     cfg.MinimumTxOutput,
		minConfirms:   minConfirms,
		log:           cfg.Log.WithPrefix("engine." + cfg.CurrencyCode),
	}
}

// CurrencyCode returns the currency this Engine is scoped to.
func (e *Engine) CurrencyCode() string {
	return e.currencyCode
}
