package config

import (
	"fmt"
	"time"
)

// WorkerConfig describes how the browser worker process is found and run.
type WorkerConfig struct {
	// Runtime is the interpreter the worker artifact is passed to. Empty
	// means the artifact is executed directly.
	Runtime string `mapstructure:"runtime"`
	// Script is the artifact file name searched for next to the binary and
	// under dist/.
	Script string `mapstructure:"script"`
	// Path, when set, is used instead of discovery and must exist.
	Path string `mapstructure:"path"`
}

// StartupConfig bounds the wait for a freshly spawned worker's socket.
type StartupConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Attempts int           `mapstructure:"attempts"`
}

// Budget is the total time the readiness poll may take.
func (s StartupConfig) Budget() time.Duration {
	return s.Interval * time.Duration(s.Attempts)
}

// Validate checks the poll settings.
func (s StartupConfig) Validate() error {
	if s.Interval <= 0 {
		return fmt.Errorf("startup.interval must be positive, got %s", s.Interval)
	}
	if s.Attempts <= 0 {
		return fmt.Errorf("startup.attempts must be positive, got %d", s.Attempts)
	}
	return nil
}
