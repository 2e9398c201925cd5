package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/sc-pool/payout-rpc-client/internal/money"
	"github.com/sc-pool/payout-rpc-client/internal/trade"
)

// operation is one entry in trade-manager's dispatch registry, the same
// closed-set pattern payout-manager uses (spec.md §9's "dynamic dispatch by
// name" redesign flag).
type operation func(ctx context.Context, r *trade.Reconciler, args []string, simulate bool) error

var operations = map[string]operation{
	"get_open_trade_requests": opGetOpenTradeRequests,
	"close_trade_request":     opCloseTradeRequest,
	"close_sell_requests":     opCloseSellRequests,
	"close_buy_requests":      opCloseBuyRequests,
	"update_tr":               opUpdateTR,
}

func opGetOpenTradeRequests(ctx context.Context, r *trade.Reconciler, args []string, simulate bool) error {
	sells, buys, err := r.GetOpenTradeRequests(ctx)
	if err != nil {
		return err
	}
	trade.WriteTable(os.Stdout, "@@ Open sell requests @@", sells)
	trade.WriteTable(os.Stdout, "@@ Open buy requests @@", buys)
	return nil
}

func opCloseTradeRequest(ctx context.Context, r *trade.Reconciler, args []string, simulate bool) error {
	if len(args) != 3 {
		return fmt.Errorf("close_trade_request requires 3 args: tr_id quantity total_fees")
	}
	trID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid tr_id %q: %w", args[0], err)
	}
	quantity, err := money.Parse(args[1])
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", args[1], err)
	}
	fees, err := money.Parse(args[2])
	if err != nil {
		return fmt.Errorf("invalid total_fees %q: %w", args[2], err)
	}

	ok, err := r.CloseTradeRequest(ctx, trID, quantity, fees, simulate)
	if err != nil {
		return err
	}
	fmt.Printf("close_trade_request: tr_id=%d success=%t\n", trID, ok)
	return nil
}

func opUpdateTR(ctx context.Context, r *trade.Reconciler, args []string, simulate bool) error {
	if len(args) != 4 {
		return fmt.Errorf("update_tr requires 4 args: tr_id quantity fees status")
	}
	trID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid tr_id %q: %w", args[0], err)
	}
	quantity, err := money.Parse(args[1])
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", args[1], err)
	}
	fees, err := money.Parse(args[2])
	if err != nil {
		return fmt.Errorf("invalid fees %q: %w", args[2], err)
	}
	status, err := strconv.Atoi(args[3])
	if err != nil {
		return fmt.Errorf("invalid status %q: %w", args[3], err)
	}

	ok, err := r.UpdateTradeRequest(ctx, trID, quantity, fees, status, simulate, confirmOnStdin)
	if err != nil {
		return err
	}
	fmt.Printf("update_tr: tr_id=%d success=%t\n", trID, ok)
	return nil
}

func opCloseSellRequests(ctx context.Context, r *trade.Reconciler, args []string, simulate bool) error {
	return closeRequests(ctx, r.CloseSellRequests, args, simulate)
}

func opCloseBuyRequests(ctx context.Context, r *trade.Reconciler, args []string, simulate bool) error {
	return closeRequests(ctx, r.CloseBuyRequests, args, simulate)
}

type closeFn func(ctx context.Context, currency string, btcQuantity, btcFees money.Amount, startTRID, stopTRID *int64, simulate bool, confirm func(string) bool) (bool, error)

// closeRequests parses args common to close_sell_requests/close_buy_requests
// (spec.md §4.5: "currency, btc_quantity, btc_fees, start_tr_id?,
// stop_tr_id?") and prompts the mandatory y/n operator confirmation on
// stdin before posting, matching the original's raw_input("... [y/n] ").
func closeRequests(ctx context.Context, fn closeFn, args []string, simulate bool) error {
	if len(args) < 3 || len(args) > 5 {
		return fmt.Errorf("requires 3-5 args: currency btc_quantity btc_fees [start_tr_id] [stop_tr_id]")
	}
	currency := args[0]
	btcQuantity, err := money.Parse(args[1])
	if err != nil {
		return fmt.Errorf("invalid btc_quantity %q: %w", args[1], err)
	}
	btcFees, err := money.Parse(args[2])
	if err != nil {
		return fmt.Errorf("invalid btc_fees %q: %w", args[2], err)
	}

	var startTRID, stopTRID *int64
	if len(args) >= 4 && args[3] != "" {
		v, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid start_tr_id %q: %w", args[3], err)
		}
		startTRID = &v
	}
	if len(args) == 5 && args[4] != "" {
		v, err := strconv.ParseInt(args[4], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid stop_tr_id %q: %w", args[4], err)
		}
		stopTRID = &v
	}

	ok, err := fn(ctx, currency, btcQuantity, btcFees, startTRID, stopTRID, simulate, confirmOnStdin)
	if err != nil {
		return err
	}
	fmt.Printf("success=%t\n", ok)
	return nil
}

// confirmOnStdin prints preview and reads a single line from stdin,
// matching trade_manager.py's raw_input("Does this look correct? [y/n] ");
// anything but an exact "y" aborts (spec.md §4.5).
func confirmOnStdin(preview string) bool {
	fmt.Print(preview)
	fmt.Print("Does this look correct? [y/n] ")
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	return scanner.Text() == "y"
}
