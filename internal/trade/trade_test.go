package trade

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sc-pool/payout-rpc-client/internal/money"
	"github.com/sc-pool/payout-rpc-client/internal/transport"
	"github.com/sc-pool/payout-rpc-client/pkg/logging"
)

// Signed-envelope test helpers mirroring internal/engine/engine_test.go,
// since trade.Reconciler talks to the same coordinator over the same
// Signed HTTP Transport.

type testEnvelope struct {
	Payload   string `json:"payload"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

const testSignature = "test-secret"

func macFor(key, encodedPayload string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(key))
	fmt.Fprintf(mac, "%s.%d", encodedPayload, ts)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func signEnvelope(key string, payload interface{}) []byte {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	ts := time.Now().Unix()
	env := testEnvelope{Payload: encoded, Timestamp: ts, Signature: macFor(key, encoded, ts)}
	out, err := json.Marshal(env)
	if err != nil {
		panic(err)
	}
	return out
}

func fakeCoordinator(t *testing.T, rpc map[string]func(req map[string]interface{}) interface{}) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, fn := range rpc {
		path, fn := path, fn
		mux.HandleFunc("/rpc/"+path, func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				t.Fatalf("read request body: %v", err)
			}
			var env testEnvelope
			if err := json.Unmarshal(body, &env); err != nil {
				t.Fatalf("decode envelope: %v", err)
			}
			raw, err := base64.StdEncoding.DecodeString(env.Payload)
			if err != nil {
				t.Fatalf("decode envelope payload: %v", err)
			}
			var req map[string]interface{}
			if err := json.Unmarshal(raw, &req); err != nil {
				t.Fatalf("unmarshal envelope payload: %v", err)
			}
			w.Write(signEnvelope(testSignature, fn(req)))
		})
	}
	return httptest.NewServer(mux)
}

func testReconciler(t *testing.T, srv *httptest.Server) *Reconciler {
	t.Helper()
	tr := transport.New(transport.Config{RPCURL: srv.URL, Signature: testSignature, MaxAge: 10}, logging.Default())
	return New(Config{Transport: tr, Log: logging.Default()})
}

func TestGetOpenTradeRequestsSplitsByType(t *testing.T) {
	srv := fakeCoordinator(t, map[string]func(req map[string]interface{}) interface{}{
		"get_trade_requests": func(req map[string]interface{}) interface{} {
			return map[string]interface{}{
				"trs": []interface{}{
					[]interface{}{1, "LTC", 0.5, "sell"},
					[]interface{}{2, "LTC", 1.5, "buy"},
					[]interface{}{3, "BTC", 2.0, "sell"},
				},
			}
		},
	})
	defer srv.Close()

	r := testReconciler(t, srv)
	sells, buys, err := r.GetOpenTradeRequests(context.Background())
	if err != nil {
		t.Fatalf("GetOpenTradeRequests: %v", err)
	}
	if len(sells) != 2 || len(buys) != 1 {
		t.Fatalf("got %d sells, %d buys; want 2 sells, 1 buy", len(sells), len(buys))
	}
}

func TestGetOpenTradeRequestsRejectsMalformedType(t *testing.T) {
	srv := fakeCoordinator(t, map[string]func(req map[string]interface{}) interface{}{
		"get_trade_requests": func(req map[string]interface{}) interface{} {
			return map[string]interface{}{
				"trs": []interface{}{
					[]interface{}{1, "LTC", 0.5, "hodl"},
				},
			}
		},
	})
	defer srv.Close()

	r := testReconciler(t, srv)
	if _, _, err := r.GetOpenTradeRequests(context.Background()); err == nil {
		t.Fatal("expected malformed type to be rejected")
	}
}

func TestCloseSellRequestsSplitsProRata(t *testing.T) {
	var posted map[string]interface{}
	srv := fakeCoordinator(t, map[string]func(req map[string]interface{}) interface{}{
		"get_trade_requests": func(req map[string]interface{}) interface{} {
			return map[string]interface{}{
				"trs": []interface{}{
					[]interface{}{1, "LTC", 0.3, "sell"},
					[]interface{}{2, "LTC", 0.7, "sell"},
				},
			}
		},
		"update_trade_requests": func(req map[string]interface{}) interface{} {
			posted, _ = req["trs"].(map[string]interface{})
			return map[string]interface{}{"success": true}
		},
	})
	defer srv.Close()

	r := testReconciler(t, srv)
	ok, err := r.CloseSellRequests(context.Background(), "LTC", money.MustParse("1.0"), money.MustParse("0.01"), nil, nil, false, nil)
	if err != nil {
		t.Fatalf("CloseSellRequests: %v", err)
	}
	if !ok {
		t.Fatal("expected success")
	}
	if posted == nil {
		t.Fatal("expected update_trade_requests to be posted")
	}

	e1 := posted["1"].(map[string]interface{})
	if e1["quantity"] != "0.3" {
		t.Fatalf("tr 1 quantity = %v, want 0.3 (30%% of 1.0 BTC)", e1["quantity"])
	}
	e2 := posted["2"].(map[string]interface{})
	if e2["quantity"] != "0.7" {
		t.Fatalf("tr 2 quantity = %v, want 0.7 (70%% of 1.0 BTC)", e2["quantity"])
	}
}

func TestCloseSellRequestsAbortsOnDeclinedConfirmation(t *testing.T) {
	posted := false
	srv := fakeCoordinator(t, map[string]func(req map[string]interface{}) interface{}{
		"get_trade_requests": func(req map[string]interface{}) interface{} {
			return map[string]interface{}{
				"trs": []interface{}{[]interface{}{1, "LTC", 1.0, "sell"}},
			}
		},
		"update_trade_requests": func(req map[string]interface{}) interface{} {
			posted = true
			return map[string]interface{}{"success": true}
		},
	})
	defer srv.Close()

	r := testReconciler(t, srv)
	_, err := r.CloseSellRequests(context.Background(), "LTC", money.MustParse("1.0"), money.MustParse("0.01"), nil, nil, false, func(string) bool { return false })
	if err != ErrAborted {
		t.Fatalf("error = %v, want ErrAborted", err)
	}
	if posted {
		t.Fatal("declined confirmation must not post")
	}
}

func TestCloseSellRequestsSimulateDoesNotPost(t *testing.T) {
	posted := false
	srv := fakeCoordinator(t, map[string]func(req map[string]interface{}) interface{}{
		"get_trade_requests": func(req map[string]interface{}) interface{} {
			return map[string]interface{}{
				"trs": []interface{}{[]interface{}{1, "LTC", 1.0, "sell"}},
			}
		},
		"update_trade_requests": func(req map[string]interface{}) interface{} {
			posted = true
			return map[string]interface{}{"success": true}
		},
	})
	defer srv.Close()

	r := testReconciler(t, srv)
	ok, err := r.CloseSellRequests(context.Background(), "LTC", money.MustParse("1.0"), money.MustParse("0.01"), nil, nil, true, nil)
	if err != nil {
		t.Fatalf("CloseSellRequests: %v", err)
	}
	if ok {
		t.Fatal("simulate should report false (nothing posted)")
	}
	if posted {
		t.Fatal("simulate must not post")
	}
}

func TestCloseSellRequestsFiltersByIDRange(t *testing.T) {
	var posted map[string]interface{}
	srv := fakeCoordinator(t, map[string]func(req map[string]interface{}) interface{}{
		"get_trade_requests": func(req map[string]interface{}) interface{} {
			return map[string]interface{}{
				"trs": []interface{}{
					[]interface{}{1, "LTC", 1.0, "sell"},
					[]interface{}{2, "LTC", 1.0, "sell"},
					[]interface{}{3, "LTC", 1.0, "sell"},
				},
			}
		},
		"update_trade_requests": func(req map[string]interface{}) interface{} {
			posted, _ = req["trs"].(map[string]interface{})
			return map[string]interface{}{"success": true}
		},
	})
	defer srv.Close()

	start, stop := int64(2), int64(2)
	r := testReconciler(t, srv)
	if _, err := r.CloseSellRequests(context.Background(), "LTC", money.MustParse("1.0"), money.MustParse("0.0"), &start, &stop, false, nil); err != nil {
		t.Fatalf("CloseSellRequests: %v", err)
	}
	if len(posted) != 1 {
		t.Fatalf("posted %d entries, want 1 (only tr_id 2 in range)", len(posted))
	}
	if _, ok := posted["2"]; !ok {
		t.Fatalf("expected only tr_id 2 in posted batch, got %v", posted)
	}
}
