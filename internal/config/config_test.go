package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SCRPCClient.MinConfirms != 12 {
		t.Fatalf("expected default min_confirms=12, got %d", cfg.SCRPCClient.MinConfirms)
	}

	if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
		t.Fatalf("expected config file to be written: %v", err)
	}
}

func TestLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Currencies[0].Enabled = true
	if err := cfg.Save(Path(dir)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.Currencies[0].Enabled {
		t.Fatalf("expected enabled flag to round-trip")
	}
}

func TestEnabledCurrenciesSkipsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Currencies = append(cfg.Currencies, CurrencyConfig{CurrencyCode: "BTC", Enabled: true})
	enabled := cfg.EnabledCurrencies()
	if len(enabled) != 1 || enabled[0].CurrencyCode != "BTC" {
		t.Fatalf("expected only BTC to be enabled, got %+v", enabled)
	}
}
