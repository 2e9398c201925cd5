package wallet

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/sc-pool/payout-rpc-client/internal/money"
)

func newFakeDaemon(t *testing.T, handle func(method string, params []interface{}) (interface{}, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		result, rpcErr := handle(req.Method, req.Params)
		resp := response{ID: req.ID}
		if rpcErr != nil {
			resp.Error = rpcErr
		} else {
			raw, err := json.Marshal(result)
			if err != nil {
				t.Fatalf("marshal result: %v", err)
			}
			resp.Result = raw
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func gatewayFor(t *testing.T, srv *httptest.Server) *JSONRPCGateway {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse test server url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse test server port: %v", err)
	}
	return New(Config{Host: u.Hostname(), Port: port, Account: "main"})
}

func TestBalanceParsesExactDecimal(t *testing.T) {
	srv := newFakeDaemon(t, func(method string, params []interface{}) (interface{}, *rpcError) {
		if method != "getbalance" {
			t.Fatalf("unexpected method %q", method)
		}
		return 12.34567891, nil
	})
	defer srv.Close()

	g := gatewayFor(t, srv)
	got, err := g.Balance("main")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	want := money.MustParse("12.34567891")
	if got.Cmp(want) != 0 {
		t.Fatalf("Balance = %s, want %s", got, want)
	}
}

func TestSendManyClassifiesInsufficientFunds(t *testing.T) {
	srv := newFakeDaemon(t, func(method string, params []interface{}) (interface{}, *rpcError) {
		return nil, &rpcError{Code: -6, Message: "Insufficient funds"}
	})
	defer srv.Close()

	g := gatewayFor(t, srv)
	_, _, err := g.SendMany("main", map[string]money.Amount{"addr1": money.MustParse("1.0")})
	if err == nil {
		t.Fatal("expected error")
	}
	walletErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if walletErr.Kind != KindInsufficientFunds {
		t.Fatalf("Kind = %v, want KindInsufficientFunds", walletErr.Kind)
	}
}

func TestSendManyRejectsMalformedTxid(t *testing.T) {
	srv := newFakeDaemon(t, func(method string, params []interface{}) (interface{}, *rpcError) {
		return "not-a-txid", nil
	})
	defer srv.Close()

	g := gatewayFor(t, srv)
	_, _, err := g.SendMany("main", map[string]money.Amount{"addr1": money.MustParse("1.0")})
	if err == nil {
		t.Fatal("expected malformed txid to be rejected")
	}
}

func TestGetTransactionNegatesFee(t *testing.T) {
	srv := newFakeDaemon(t, func(method string, params []interface{}) (interface{}, *rpcError) {
		return map[string]interface{}{"confirmations": 6, "fee": -0.0001}, nil
	})
	defer srv.Close()

	g := gatewayFor(t, srv)
	tx, err := g.GetTransaction("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx.Confirmations != 6 {
		t.Fatalf("Confirmations = %d, want 6", tx.Confirmations)
	}
	want := money.MustParse("0.0001")
	if tx.Fee.Cmp(want) != 0 {
		t.Fatalf("Fee = %s, want %s", tx.Fee, want)
	}
}

func TestPokeReturnsErrUnreachableOnRPCError(t *testing.T) {
	srv := newFakeDaemon(t, func(method string, params []interface{}) (interface{}, *rpcError) {
		return nil, &rpcError{Code: -1, Message: "boom"}
	})
	defer srv.Close()

	g := gatewayFor(t, srv)
	if err := g.Poke(); err != ErrUnreachable {
		t.Fatalf("Poke error = %v, want ErrUnreachable", err)
	}
}
