// Package config loads the stakedesk YAML configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/moltbunker/stakedesk/pkg/types"
)

// Environment overrides.
const (
	EnvWalletURL      = "STAKEDESK_WALLET_URL"
	EnvWalletPassword = "STAKEDESK_WALLET_PASSWORD"
)

// Config is the complete client configuration. Chain id and contract address
// are fixed in pkg/types and cannot be configured.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Wallet  WalletConfig  `yaml:"wallet"`
	Tx      TxConfig      `yaml:"tx"`
	Reads   ReadsConfig   `yaml:"reads"`
	Metrics MetricsConfig `yaml:"metrics"`
	// Mock runs against the in-memory wallet and contract.
	Mock bool `yaml:"mock"`
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// WalletConfig selects the wallet provider.
type WalletConfig struct {
	// ProviderURL is an external wallet JSON-RPC endpoint (http, ws or ipc).
	// When set it takes precedence over the local keystore.
	ProviderURL  string `yaml:"provider_url"`
	KeystoreDir  string `yaml:"keystore_dir"`
	PasswordFile string `yaml:"password_file"`
	// Endpoints maps chain id to the node RPC URL used by the keystore wallet.
	Endpoints map[int64]string `yaml:"endpoints"`
}

// TxConfig tunes transaction submission.
type TxConfig struct {
	PollIntervalMs     int     `yaml:"poll_interval_ms"`
	GasLimitMultiplier float64 `yaml:"gas_limit_multiplier"`
	FeeCapMultiplier   float64 `yaml:"fee_cap_multiplier"`
}

// ReadsConfig tunes contract reads.
type ReadsConfig struct {
	MaxRetries int `yaml:"max_retries"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// DefaultHoleskyRPC is the public endpoint used when none is configured.
const DefaultHoleskyRPC = "https://ethereum-holesky-rpc.publicnode.com"

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Wallet: WalletConfig{
			KeystoreDir: filepath.Join(homeDir, ".stakedesk", "keystore"),
			Endpoints: map[int64]string{
				types.RequiredChainID: DefaultHoleskyRPC,
			},
		},
		Tx: TxConfig{
			PollIntervalMs:     1000,
			GasLimitMultiplier: 1.2,
			FeeCapMultiplier:   2.0,
		},
		Reads: ReadsConfig{
			MaxRetries: 2,
		},
		Metrics: MetricsConfig{
			ListenAddr: "127.0.0.1:9464",
		},
	}
}

// Load reads path, falling back to defaults when the file does not exist.
// Environment overrides are applied before validation.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	path = expandPath(path)

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML with owner-only permissions.
func (c *Config) Save(path string) error {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks every field that has a constrained domain.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %q (want json or text)", c.Log.Format)
	}

	if c.Wallet.ProviderURL != "" {
		if err := validateProviderURL(c.Wallet.ProviderURL); err != nil {
			return fmt.Errorf("wallet.provider_url: %w", err)
		}
	}
	for id, endpoint := range c.Wallet.Endpoints {
		if id <= 0 {
			return fmt.Errorf("wallet.endpoints: invalid chain id %d", id)
		}
		if err := validateProviderURL(endpoint); err != nil {
			return fmt.Errorf("wallet.endpoints[%d]: %w", id, err)
		}
	}

	if c.Tx.PollIntervalMs <= 0 {
		return fmt.Errorf("tx.poll_interval_ms must be positive, got %d", c.Tx.PollIntervalMs)
	}
	if c.Tx.GasLimitMultiplier <= 0 {
		return fmt.Errorf("tx.gas_limit_multiplier must be positive, got %v", c.Tx.GasLimitMultiplier)
	}
	if c.Tx.FeeCapMultiplier <= 0 {
		return fmt.Errorf("tx.fee_cap_multiplier must be positive, got %v", c.Tx.FeeCapMultiplier)
	}
	if c.Reads.MaxRetries < 0 {
		return fmt.Errorf("reads.max_retries must not be negative, got %d", c.Reads.MaxRetries)
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics.listen_addr is required when metrics are enabled")
	}
	return nil
}

// validateProviderURL accepts http(s) and ws(s) URLs and IPC socket paths.
func validateProviderURL(raw string) error {
	if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "~/") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed URL %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("unsupported scheme in %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvWalletURL); v != "" {
		c.Wallet.ProviderURL = v
	}
}

func (c *Config) expandPaths() {
	c.Wallet.KeystoreDir = expandPath(c.Wallet.KeystoreDir)
	c.Wallet.PasswordFile = expandPath(c.Wallet.PasswordFile)
	c.Wallet.ProviderURL = expandPath(c.Wallet.ProviderURL)
}

// expandPath expands ~ to the home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// DefaultConfigPath returns ~/.stakedesk/config.yaml.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".stakedesk", "config.yaml")
}
