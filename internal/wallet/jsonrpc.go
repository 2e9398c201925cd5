package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/sc-pool/payout-rpc-client/internal/money"
)

// request is a JSON-RPC 1.0-style request, the same envelope shape the
// teacher's internal/rpc/server.go uses on the server side.
type request struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	ID     int             `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSONRPCGateway is a Gateway implementation for a bitcoind-family coin
// daemon reachable over HTTP JSON-RPC.
type JSONRPCGateway struct {
	endpoint string
	username string
	password string
	account  string
	client   *http.Client
}

// Config configures one currency's wallet daemon connection, matching the
// coinserv block of spec.md §6.2.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Account  string
}

// New builds a JSONRPCGateway from cfg.
func New(cfg Config) *JSONRPCGateway {
	return &JSONRPCGateway{
		endpoint: fmt.Sprintf("http://%s:%d/", cfg.Host, cfg.Port),
		username: cfg.Username,
		password: cfg.Password,
		account:  cfg.Account,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (g *JSONRPCGateway) call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	reqBody, err := json.Marshal(request{JSONRPC: "1.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return nil, fmt.Errorf("wallet: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("wallet: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.username != "" {
		httpReq.SetBasicAuth(g.username, g.password)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, ErrUnreachable
	}
	defer resp.Body.Close()

	var rpcResp response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, &Error{Kind: KindUnknown, Err: fmt.Errorf("wallet: decode response: %w", err)}
	}
	if rpcResp.Error != nil {
		return nil, classifyRPCError(rpcResp.Error)
	}
	return rpcResp.Result, nil
}

func classifyRPCError(e *rpcError) *Error {
	switch {
	case e.Code == -6: // bitcoind: insufficient funds
		return &Error{Kind: KindInsufficientFunds, Err: fmt.Errorf("wallet: %s", e.Message)}
	case e.Code == -5: // bitcoind: invalid address or transaction id
		return &Error{Kind: KindNotFound, Err: fmt.Errorf("wallet: %s", e.Message)}
	case e.Code <= -28 && e.Code >= -32: // warming up / timeouts / in-warmup
		return &Error{Kind: KindTransient, Err: fmt.Errorf("wallet: %s", e.Message)}
	default:
		return &Error{Kind: KindUnknown, Err: fmt.Errorf("wallet: %s", e.Message)}
	}
}

// Poke performs a cheap getinfo round trip.
func (g *JSONRPCGateway) Poke() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := g.call(ctx, "getinfo"); err != nil {
		return ErrUnreachable
	}
	return nil
}

// Balance returns the decimal balance of account.
func (g *JSONRPCGateway) Balance(account string) (money.Amount, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	raw, err := g.call(ctx, "getbalance", account)
	if err != nil {
		return money.Zero, err
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return money.Zero, &Error{Kind: KindUnknown, Err: fmt.Errorf("wallet: parse balance: %w", err)}
	}
	return money.Parse(trimFloat(f))
}

// SendMany submits one transaction paying every recipient in amounts.
func (g *JSONRPCGateway) SendMany(account string, amounts map[string]money.Amount) (string, TxMeta, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	recipients := make(map[string]string, len(amounts))
	for addr, amt := range amounts {
		recipients[addr] = amt.String()
	}

	raw, err := g.call(ctx, "sendmany", account, recipients)
	if err != nil {
		return "", TxMeta{}, err
	}
	var txid string
	if err := json.Unmarshal(raw, &txid); err != nil {
		return "", TxMeta{}, &Error{Kind: KindUnknown, Err: fmt.Errorf("wallet: parse txid: %w", err)}
	}
	if _, err := chainhash.NewHashFromStr(txid); err != nil {
		return "", TxMeta{}, &Error{Kind: KindUnknown, Err: fmt.Errorf("wallet: malformed txid %q: %w", txid, err)}
	}

	tx, err := g.GetTransaction(txid)
	if err != nil {
		// The send itself succeeded; a follow-up lookup failing doesn't
		// change that, so we surface a zero fee rather than fail the send.
		return txid, TxMeta{}, nil
	}
	return txid, TxMeta{Fee: tx.Fee}, nil
}

// GetTransaction looks up confirmations and fee for a previously broadcast
// transaction.
func (g *JSONRPCGateway) GetTransaction(txid string) (Transaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	raw, err := g.call(ctx, "gettransaction", txid)
	if err != nil {
		return Transaction{}, err
	}

	var body struct {
		Confirmations int     `json:"confirmations"`
		Fee           float64 `json:"fee"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return Transaction{}, &Error{Kind: KindUnknown, Err: fmt.Errorf("wallet: parse transaction: %w", err)}
	}

	fee, err := money.Parse(trimFloat(-body.Fee)) // bitcoind reports fee as negative
	if err != nil {
		return Transaction{}, &Error{Kind: KindUnknown, Err: fmt.Errorf("wallet: parse fee: %w", err)}
	}
	return Transaction{Confirmations: body.Confirmations, Fee: fee}, nil
}

func trimFloat(f float64) string {
	return fmt.Sprintf("%.8f", f)
}
