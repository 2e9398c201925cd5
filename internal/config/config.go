// Package config loads and saves the settlement coordinator's YAML
// configuration file, following the teacher's create-on-first-run pattern
// (internal/node/config.go in the retrieval pack this module was built
// from): a Config struct with yaml tags, a DefaultConfig, a Load that
// writes sane defaults the first time it is called, and a Save that writes
// a header comment ahead of the marshalled document.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = "config.yml"

// Config is the top-level document, shaped per the coordinator wire
// protocol and CLI surface: one shared sc_rpc_client block plus a list of
// per-currency entries.
type Config struct {
	LogLevel     string         `yaml:"log_level"`
	SCRPCClient  SCRPCClient    `yaml:"sc_rpc_client"`
	Currencies   []CurrencyConfig `yaml:"currencies"`
}

// SCRPCClient holds settings shared by every currency's coordinator client.
type SCRPCClient struct {
	RPCURL           string `yaml:"rpc_url"`
	RPCSignature     string `yaml:"rpc_signature"`
	MaxAge           int    `yaml:"max_age"`
	MinConfirms      int    `yaml:"min_confirms"`
	MinimumTxOutput  string `yaml:"minimum_tx_output"`
	DatabasePath     string `yaml:"database_path"`
}

// CurrencyConfig is one configured currency: its store/coordinator
// isolation key, address validation policy, and wallet daemon coordinates.
type CurrencyConfig struct {
	CurrencyCode         string   `yaml:"currency_code"`
	Enabled              bool     `yaml:"enabled"`
	ValidAddressVersions []int    `yaml:"valid_address_versions"`
	Coinserv             Coinserv `yaml:"coinserv"`
}

// Coinserv holds the connection details for a currency's coin daemon RPC.
type Coinserv struct {
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Address    string `yaml:"address"`
	Port       int    `yaml:"port"`
	Account    string `yaml:"account"`
	WalletPass string `yaml:"wallet_pass"`
}

// DefaultConfig returns a Config with sensible defaults, matching the
// original client's _set_config fallbacks (max_age=10, min_confirms=12,
// minimum_tx_output=0.00000001).
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		SCRPCClient: SCRPCClient{
			RPCURL:          "https://coordinator.example.com",
			RPCSignature:    "change-me",
			MaxAge:          10,
			MinConfirms:     12,
			MinimumTxOutput: "0.00000001",
			DatabasePath:    "~/.payout-rpc-client",
		},
		Currencies: []CurrencyConfig{
			{
				CurrencyCode:         "LTC",
				Enabled:              false,
				ValidAddressVersions: []int{48},
				Coinserv: Coinserv{
					Address: "127.0.0.1",
					Port:    9332,
					Account: "",
				},
			},
		},
	}
}

// Load reads dataDir's config file, creating it with defaults if it does
// not yet exist.
func Load(dataDir string) (*Config, error) {
	expanded := expandPath(dataDir)
	path := filepath.Join(expanded, FileName)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("config: create default: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path with a generated header comment.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("config: create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	header := []byte("# Payout settlement coordinator configuration\n# Generated automatically on first run\n\n")
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Path returns the full path to the config file for the given data
// directory.
func Path(dataDir string) string {
	return filepath.Join(expandPath(dataDir), FileName)
}

// EnabledCurrencies returns only the currencies configured with enabled: true,
// preserving the original's skip of disabled entries when building its
// per-currency client dictionary.
func (c *Config) EnabledCurrencies() []CurrencyConfig {
	var out []CurrencyConfig
	for _, cc := range c.Currencies {
		if cc.Enabled {
			out = append(out, cc)
		}
	}
	return out
}

// StorePath returns the per-currency SQLite file path for cc, inside the
// sc_rpc_client database_path directory (spec.md §6.3: "rpc_<CURRENCY>.sqlite").
func (c *Config) StorePath(cc CurrencyConfig) string {
	base := expandPath(c.SCRPCClient.DatabasePath)
	return filepath.Join(base, "rpc_"+cc.CurrencyCode+".sqlite")
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
