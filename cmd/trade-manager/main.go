// Command trade-manager is the Operator Shell for the Trade Reconciler
// (spec.md §4.5, §6.4): it closes out coordinator trade requests against a
// completed BTC trade, splitting quantity and fees pro-rata across the open
// requests, with a mandatory operator confirmation before posting.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sc-pool/payout-rpc-client/internal/bootstrap"
	"github.com/sc-pool/payout-rpc-client/internal/config"
	"github.com/sc-pool/payout-rpc-client/internal/trade"
	"github.com/sc-pool/payout-rpc-client/pkg/logging"
)

func main() {
	var (
		dataDir  = flag.String("data-dir", "~/.payout-rpc-client", "Data directory holding config.yml")
		logLevel = flag.String("log-level", "", "Log level override; defaults to config's log_level")
		function = flag.String("f", "", "Operation to run (required); see -list")
		simulate = flag.Bool("s", false, "Simulate: perform all reads, post nothing")
		list     = flag.Bool("list", false, "List available operations and exit")
	)
	flag.Parse()

	if *list {
		for name := range operations {
			fmt.Println(name)
		}
		return
	}

	if *function == "" {
		fmt.Fprintln(os.Stderr, "trade-manager: -f is required (see -list)")
		os.Exit(2)
	}

	op, ok := operations[*function]
	if !ok {
		fmt.Fprintf(os.Stderr, "trade-manager: unknown operation %q (see -list)\n", *function)
		os.Exit(2)
	}

	log := logging.Default()

	cfg, err := config.Load(*dataDir)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}
	if *logLevel == "" {
		*logLevel = cfg.LogLevel
	}
	log = logging.New(&logging.Config{Level: *logLevel, TimeFormat: time.TimeOnly})

	tr := bootstrap.BuildTransport(cfg, log)
	reconciler := trade.New(trade.Config{Transport: tr, Log: log.Component("trade")})

	if *simulate {
		log.Info("simulate mode enabled")
	}

	// Positional arguments (after all flags) are the operation's argument
	// list, the Go analogue of the original's "-a args..." (argparse
	// nargs='+').
	args := flag.Args()

	if err := op(context.Background(), reconciler, args, *simulate); err != nil {
		fmt.Fprintf(os.Stderr, "trade-manager: %s: %v\n", *function, err)
		os.Exit(1)
	}
}
