// Command payout-manager is the Operator Shell for the Settlement Engine
// (spec.md §4.7, §6.4): it dispatches a single named engine operation
// synchronously, with an optional simulate flag, for manual intervention
// outside the scheduler's cadence.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sc-pool/payout-rpc-client/internal/bootstrap"
	"github.com/sc-pool/payout-rpc-client/internal/config"
	"github.com/sc-pool/payout-rpc-client/pkg/logging"
)

func main() {
	var (
		dataDir      = flag.String("data-dir", "~/.payout-rpc-client", "Data directory holding config.yml and per-currency stores")
		logLevel     = flag.String("log-level", "", "Log level override; defaults to config's log_level")
		currencyCode = flag.String("c", "", "Currency code to operate on (required)")
		function     = flag.String("f", "", "Operation to run (required); see -list")
		simulate     = flag.Bool("s", false, "Simulate: perform all reads, commit and post nothing")
		list         = flag.Bool("list", false, "List available operations and exit")
	)
	flag.Parse()

	if *list {
		for name := range operations {
			fmt.Println(name)
		}
		return
	}

	log := logging.Default()

	if *currencyCode == "" || *function == "" {
		fmt.Fprintln(os.Stderr, "payout-manager: -c and -f are required (see -list)")
		os.Exit(2)
	}

	op, ok := operations[*function]
	if !ok {
		fmt.Fprintf(os.Stderr, "payout-manager: unknown operation %q (see -list)\n", *function)
		os.Exit(2)
	}

	cfg, err := config.Load(*dataDir)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}
	if *logLevel == "" {
		*logLevel = cfg.LogLevel
	}
	log = logging.New(&logging.Config{Level: *logLevel, TimeFormat: time.TimeOnly})

	currencies, err := bootstrap.BuildCurrencies(cfg, log)
	if err != nil {
		log.Fatal("failed to build currency collaborators", "error", err)
	}
	defer func() {
		for _, c := range currencies {
			c.Close()
		}
	}()

	c, ok := currencies[*currencyCode]
	if !ok {
		fmt.Fprintf(os.Stderr, "payout-manager: currency %q is not enabled in config\n", *currencyCode)
		os.Exit(2)
	}

	if *simulate {
		log.Info("simulate mode enabled")
	}

	// Positional arguments (after all flags) are the operation's argument
	// list, the Go analogue of the original's "-a args..." (argparse
	// nargs='+').
	args := flag.Args()

	if err := op(context.Background(), c.Engine, args, *simulate); err != nil {
		fmt.Fprintf(os.Stderr, "payout-manager: %s: %v\n", *function, err)
		os.Exit(1)
	}
}
