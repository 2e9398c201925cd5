// Command payout-scheduler is the time-driven orchestrator daemon
// (spec.md §4.6): for every enabled currency it builds an isolated
// Store + Wallet Gateway + Transport + Engine and drives pull/send/
// associate/confirm on the scheduler's calendar, continuously, until
// signaled to stop.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sc-pool/payout-rpc-client/internal/bootstrap"
	"github.com/sc-pool/payout-rpc-client/internal/config"
	"github.com/sc-pool/payout-rpc-client/internal/scheduler"
	"github.com/sc-pool/payout-rpc-client/internal/statusws"
	"github.com/sc-pool/payout-rpc-client/pkg/logging"
)

func main() {
	var (
		dataDir       = flag.String("data-dir", "~/.payout-rpc-client", "Data directory holding config.yml and per-currency stores")
		logLevel      = flag.String("log-level", "", "Log level override (debug, info, warn, error); defaults to config's log_level")
		statusAddr    = flag.String("status-addr", "", "If set, serve the operator dashboard WebSocket feed on this address (e.g. 127.0.0.1:8090)")
		settleHour    = flag.Int("settle-hour", 23, "Hour of day the settle job (send then associate) runs")
		associateHour = flag.Int("associate-hour", 0, "Hour of day the associate-all job runs")
		confirmHour   = flag.Int("confirm-hour", 1, "Hour of day the confirm job runs")
	)
	flag.Parse()

	log := logging.Default()

	cfg, err := config.Load(*dataDir)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}
	if *logLevel == "" {
		*logLevel = cfg.LogLevel
	}
	log = logging.New(&logging.Config{Level: *logLevel, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	currencies, err := bootstrap.BuildCurrencies(cfg, log)
	if err != nil {
		log.Fatal("failed to build currency collaborators", "error", err)
	}
	defer func() {
		for _, c := range currencies {
			c.Close()
		}
	}()
	if len(currencies) == 0 {
		log.Warn("no enabled currencies configured; scheduler has nothing to do")
	}

	var hub *statusws.Hub
	var httpServer *http.Server
	if *statusAddr != "" {
		hub = statusws.NewHub(log)
		go hub.Run()

		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		httpServer = &http.Server{Addr: *statusAddr, Handler: mux}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("status websocket server stopped", "error", err)
			}
		}()
		log.Info("operator dashboard feed listening", "addr", *statusAddr)
	}

	var broadcaster scheduler.Broadcaster
	if hub != nil {
		broadcaster = hub
	}
	sched := scheduler.New(log, broadcaster)
	for code, c := range currencies {
		for _, entry := range scheduler.DefaultEntries(code, c.Engine, *settleHour, *associateHour, *confirmHour) {
			sched.Register(entry)
		}
	}
	sched.Start()
	log.Info("payout-scheduler started", "currencies", len(currencies))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down...")
	sched.Stop()

	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(ctx)
	}

	log.Info("goodbye!")
}
