package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/leonletto/agent-browser/internal/paths"
)

const (
	// EnvSession selects the session when --session is not given.
	EnvSession = "AGENT_BROWSER_SESSION"
	// EnvRuntime overrides worker.runtime.
	EnvRuntime = "AGENT_BROWSER_RUNTIME"
	// EnvWorker overrides worker.path.
	EnvWorker = "AGENT_BROWSER_WORKER"

	configName = "agent-browser"
)

// Config represents the resolved configuration for one CLI invocation.
type Config struct {
	Session  string         `mapstructure:"session"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Startup  StartupConfig  `mapstructure:"startup"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// TimeoutsConfig bounds a single request/response exchange.
type TimeoutsConfig struct {
	Read  time.Duration `mapstructure:"read"`
	Write time.Duration `mapstructure:"write"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Session: paths.DefaultSession,
		Worker: WorkerConfig{
			Runtime: "node",
			Script:  "daemon.js",
		},
		Timeouts: TimeoutsConfig{
			Read:  30 * time.Second,
			Write: 5 * time.Second,
		},
		Startup: StartupConfig{
			Interval: 100 * time.Millisecond,
			Attempts: 50,
		},
	}
}

// Load loads configuration with the following priority:
// 1. Environment variables (AGENT_BROWSER_SESSION, AGENT_BROWSER_RUNTIME, AGENT_BROWSER_WORKER)
// 2. Config file (agent-browser.yaml or .agent-browser.yaml)
// 3. Built-in defaults.
//
// Command-line flags are applied on top by the caller. A missing config file
// is not an error. When the file cannot be read or holds invalid values the
// error is returned together with a Config built from the environment and
// defaults alone, so callers can warn and carry on.
func Load() (*Config, error) {
	v := newViper()

	v.AddConfigPath("/etc/" + configName + "/")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, configName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")

	cfg, err := readInto(v, findDotFile())
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific file, still honoring
// environment overrides.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	return readInto(v, path)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")

	// Only explicit bindings: the worker reads AGENT_BROWSER_HEADED and
	// AGENT_BROWSER_DAEMON from its own environment, so AutomaticEnv would
	// leak them into the CLI's settings.
	_ = v.BindEnv("session", EnvSession)
	_ = v.BindEnv("worker.runtime", EnvRuntime)
	_ = v.BindEnv("worker.path", EnvWorker)

	def := Default()
	v.SetDefault("session", def.Session)
	v.SetDefault("worker.runtime", def.Worker.Runtime)
	v.SetDefault("worker.script", def.Worker.Script)
	v.SetDefault("worker.path", def.Worker.Path)
	v.SetDefault("timeouts.read", def.Timeouts.Read)
	v.SetDefault("timeouts.write", def.Timeouts.Write)
	v.SetDefault("startup.interval", def.Startup.Interval)
	v.SetDefault("startup.attempts", def.Startup.Attempts)
	return v
}

func readInto(v *viper.Viper, explicit string) (*Config, error) {
	cfg, err := decode(v, explicit, true)
	if err == nil {
		return cfg, nil
	}

	// keep the environment when the file is unusable
	fallback, ferr := decode(newViper(), "", false)
	if ferr != nil {
		return Default(), err
	}
	return fallback, err
}

func decode(v *viper.Viper, explicit string, readFile bool) (*Config, error) {
	if readFile {
		if explicit != "" {
			v.SetConfigFile(explicit)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Session = strings.TrimSpace(cfg.Session)
	if cfg.Session == "" {
		cfg.Session = paths.DefaultSession
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findDotFile returns ./.agent-browser.yaml or ~/.agent-browser.yaml
// (also .yml), whichever exists first.
func findDotFile() string {
	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	for _, dir := range dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			p := filepath.Join(dir, "."+configName+ext)
			if _, err := os.Stat(p); err == nil {
				if abs, err := filepath.Abs(p); err == nil {
					return abs
				}
				return p
			}
		}
	}
	return ""
}

// Validate rejects settings that would make every invocation fail.
func (c *Config) Validate() error {
	if c.Timeouts.Read <= 0 {
		return fmt.Errorf("timeouts.read must be positive, got %s", c.Timeouts.Read)
	}
	if c.Timeouts.Write <= 0 {
		return fmt.Errorf("timeouts.write must be positive, got %s", c.Timeouts.Write)
	}
	return c.Startup.Validate()
}
