package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/sc-pool/payout-rpc-client/internal/engine"
	"github.com/sc-pool/payout-rpc-client/internal/store"
)

// operation is one entry in the payout-manager's dispatch registry
// (spec.md §6.4's CLI surface, §9's "dynamic dispatch by name" redesign
// flag: a closed map of function values, never reflection).
type operation func(ctx context.Context, eng *engine.Engine, args []string, simulate bool) error

// operations is the complete, closed set of payout-manager function names.
var operations = map[string]operation{
	"pull_payouts":                opPullPayouts,
	"payout":                      opPayout,
	"confirm_trans":               opConfirmTrans,
	"associate_all":               opAssociateAll,
	"reset_all_locked":            opResetAllLocked,
	"unpaid_locked":               opUnpaidLocked,
	"unpaid_unlocked":             opUnpaidUnlocked,
	"dump_complete":               opDumpComplete,
	"dump_incomplete":             opDumpIncomplete,
	"local_associate_locked":      opLocalAssociateLocked,
	"local_associate_all_locked":  opLocalAssociateAllLocked,
	"init_db":                     opInitDB,
}

func opPullPayouts(ctx context.Context, eng *engine.Engine, args []string, simulate bool) error {
	result, err := eng.Pull(ctx, simulate)
	if err != nil {
		return err
	}
	fmt.Printf("pull: new=%d repeat=%d invalid=%d\n", result.New, result.Repeat, result.Invalid)
	return nil
}

func opPayout(ctx context.Context, eng *engine.Engine, args []string, simulate bool) error {
	result, err := eng.Send(ctx, simulate)
	if err != nil {
		return err
	}
	if result.Txid == "" && !result.Simulated {
		fmt.Println("payout: nothing to send")
		return nil
	}
	if result.Simulated {
		fmt.Printf("payout (simulated): would pay %s total to %d addresses\n", result.TotalOut.String(), len(result.Addresses))
		return nil
	}
	fmt.Printf("payout: txid=%s fee=%s total=%s pids=%d\n", result.Txid, result.Fee.String(), result.TotalOut.String(), len(result.Pids))
	return nil
}

func opConfirmTrans(ctx context.Context, eng *engine.Engine, args []string, simulate bool) error {
	result, err := eng.Confirm(ctx, simulate)
	if err != nil {
		return err
	}
	fmt.Printf("confirm: reported %d confirmed transactions\n", len(result.Confirmed))
	for _, txid := range result.Confirmed {
		fmt.Println("  " + txid)
	}
	return nil
}

func opAssociateAll(ctx context.Context, eng *engine.Engine, args []string, simulate bool) error {
	result, err := eng.Associate(ctx, simulate)
	if err != nil {
		return err
	}
	fmt.Printf("associate: confirmed=%d skipped=%d\n", len(result.Confirmed), len(result.Skipped))
	return nil
}

func opResetAllLocked(ctx context.Context, eng *engine.Engine, args []string, simulate bool) error {
	n, err := eng.ResetLockedAll(simulate)
	if err != nil {
		return err
	}
	fmt.Printf("reset_all_locked: unlocked %d rows\n", n)
	return nil
}

func opUnpaidLocked(ctx context.Context, eng *engine.Engine, args []string, simulate bool) error {
	rows, err := eng.UnpaidLocked()
	if err != nil {
		return err
	}
	printPayouts(os.Stdout, "Locked (unpaid) payouts", rows)
	return nil
}

func opUnpaidUnlocked(ctx context.Context, eng *engine.Engine, args []string, simulate bool) error {
	rows, err := eng.UnpaidUnlocked()
	if err != nil {
		return err
	}
	printPayouts(os.Stdout, "Unlocked (pulled) payouts", rows)
	return nil
}

func opDumpComplete(ctx context.Context, eng *engine.Engine, args []string, simulate bool) error {
	rows, err := eng.DumpComplete()
	if err != nil {
		return err
	}
	printPayouts(os.Stdout, "Associated (complete) payouts", rows)
	return nil
}

func opDumpIncomplete(ctx context.Context, eng *engine.Engine, args []string, simulate bool) error {
	rows, err := eng.DumpIncomplete()
	if err != nil {
		return err
	}
	printPayouts(os.Stdout, "Incomplete payouts", rows)
	return nil
}

func opLocalAssociateLocked(ctx context.Context, eng *engine.Engine, args []string, simulate bool) error {
	if len(args) != 2 {
		return fmt.Errorf("local_associate_locked requires 2 args: pid txid")
	}
	if err := eng.LocalAssociateLocked(args[0], args[1], simulate); err != nil {
		return err
	}
	fmt.Printf("local_associate_locked: pid=%s txid=%s\n", args[0], args[1])
	return nil
}

func opLocalAssociateAllLocked(ctx context.Context, eng *engine.Engine, args []string, simulate bool) error {
	if len(args) != 1 {
		return fmt.Errorf("local_associate_all_locked requires 1 arg: txid")
	}
	n, err := eng.LocalAssociateAllLocked(args[0], simulate)
	if err != nil {
		return err
	}
	fmt.Printf("local_associate_all_locked: txid=%s rows=%d\n", args[0], n)
	return nil
}

func opInitDB(ctx context.Context, eng *engine.Engine, args []string, simulate bool) error {
	if simulate {
		fmt.Println("init_db: simulate mode enabled, refusing a destructive reset")
		return nil
	}
	if err := eng.InitDB(); err != nil {
		return err
	}
	fmt.Println("init_db: table dropped and recreated")
	return nil
}

func printPayouts(w *os.File, title string, rows []*store.Payout) {
	fmt.Fprintln(w, title)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "id\tpid\tuser\taddress\tamount\ttxid\tlocked\tassociated")
	for _, p := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%t\t%t\n",
			p.ID, p.PID, p.User, p.Address, p.Amount.String(), p.DisplayTxID(), p.Locked, p.Associated)
	}
	tw.Flush()
}
