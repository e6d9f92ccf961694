package commands

import (
	"os"
	"runtime"
	"runtime/debug"

	"github.com/moltbunker/stakedesk/internal/config"
	"github.com/moltbunker/stakedesk/internal/logging"
)

// Global CLI flags
var (
	// ConfigPath overrides the default config file location
	ConfigPath string

	// LogLevel overrides log.level from the config file
	LogLevel string

	// Mock forces the in-memory wallet and contract
	Mock bool
)

func configPath() string {
	if ConfigPath != "" {
		return ConfigPath
	}
	return config.DefaultConfigPath()
}

// loadConfig reads the config file, applies the global flags and configures
// logging. Logs go to stderr so command output stays clean.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}
	if Mock {
		cfg.Mock = true
	}
	if err := logging.Configure(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		return nil, err
	}
	if LogLevel != "" {
		level, err := logging.ParseLevel(LogLevel)
		if err != nil {
			return nil, err
		}
		logging.SetLevel(level)
		cfg.Log.Level = LogLevel
	}
	return cfg, nil
}

// Version information (set at build time)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// GetVersion returns the version string
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return "dev"
}

// GetCommit returns the git commit
func GetCommit() string {
	if Commit != "unknown" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				if len(setting.Value) > 8 {
					return setting.Value[:8]
				}
				return setting.Value
			}
		}
	}
	return "unknown"
}

// GetGoVersion returns the Go version
func GetGoVersion() string {
	return runtime.Version()
}
