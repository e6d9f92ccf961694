package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moltbunker/stakedesk/pkg/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("expected default log format 'text', got %s", cfg.Log.Format)
	}
	if cfg.Wallet.Endpoints[types.RequiredChainID] != DefaultHoleskyRPC {
		t.Errorf("expected Holesky endpoint, got %v", cfg.Wallet.Endpoints)
	}
	if cfg.Tx.PollIntervalMs != 1000 {
		t.Errorf("expected poll interval 1000ms, got %d", cfg.Tx.PollIntervalMs)
	}
	if cfg.Metrics.Enabled {
		t.Error("expected metrics disabled by default")
	}
	if cfg.Mock {
		t.Error("expected mock disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
		{"ws provider", func(c *Config) { c.Wallet.ProviderURL = "ws://127.0.0.1:8546" }, ""},
		{"ipc provider", func(c *Config) { c.Wallet.ProviderURL = "/tmp/wallet.ipc" }, ""},
		{"ftp provider", func(c *Config) { c.Wallet.ProviderURL = "ftp://wallet" }, "provider_url"},
		{"hostless provider", func(c *Config) { c.Wallet.ProviderURL = "http://" }, "provider_url"},
		{"bad endpoint", func(c *Config) { c.Wallet.Endpoints[1] = "nope" }, "endpoints[1]"},
		{"bad chain id", func(c *Config) { c.Wallet.Endpoints[0] = "http://x" }, "chain id"},
		{"zero poll", func(c *Config) { c.Tx.PollIntervalMs = 0 }, "poll_interval_ms"},
		{"zero gas multiplier", func(c *Config) { c.Tx.GasLimitMultiplier = 0 }, "gas_limit_multiplier"},
		{"negative fee multiplier", func(c *Config) { c.Tx.FeeCapMultiplier = -1 }, "fee_cap_multiplier"},
		{"negative retries", func(c *Config) { c.Reads.MaxRetries = -1 }, "max_retries"},
		{"metrics without addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.ListenAddr = "" }, "listen_addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Setenv(EnvWalletURL, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected defaults, got level %s", cfg.Log.Level)
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv(EnvWalletURL, "")
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Log.Level = "debug"
	cfg.Wallet.ProviderURL = "http://127.0.0.1:8545"
	cfg.Wallet.Endpoints[1] = "https://eth.example.org"
	cfg.Reads.MaxRetries = 5
	cfg.Mock = true

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600, got %o", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Log.Level != "debug" || loaded.Reads.MaxRetries != 5 || !loaded.Mock {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
	if loaded.Wallet.ProviderURL != "http://127.0.0.1:8545" {
		t.Errorf("provider url = %s", loaded.Wallet.ProviderURL)
	}
	if loaded.Wallet.Endpoints[1] != "https://eth.example.org" {
		t.Errorf("endpoints = %v", loaded.Wallet.Endpoints)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("tx:\n  gas_limit_multiplier: 0\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEnvOverridesProviderURL(t *testing.T) {
	t.Setenv(EnvWalletURL, "ws://localhost:8546")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Wallet.ProviderURL != "ws://localhost:8546" {
		t.Errorf("provider url = %q", cfg.Wallet.ProviderURL)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandPath("~/keys"); got != filepath.Join(home, "keys") {
		t.Errorf("expandPath = %s", got)
	}
	if got := expandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute paths must be kept, got %s", got)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	if !strings.HasSuffix(DefaultConfigPath(), filepath.Join(".stakedesk", "config.yaml")) {
		t.Errorf("unexpected default path %s", DefaultConfigPath())
	}
}
