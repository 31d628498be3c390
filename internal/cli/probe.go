package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/leonletto/agent-browser/internal/daemon"
	"github.com/leonletto/agent-browser/internal/paths"
)

// WorkerState is what the PID marker says about a session's worker.
type WorkerState int

const (
	// WorkerAbsent: no PID marker.
	WorkerAbsent WorkerState = iota
	// WorkerStale: a marker exists but its process is gone or unreadable.
	WorkerStale
	// WorkerAlive: the marker's process answers signal 0.
	WorkerAlive
)

func (s WorkerState) String() string {
	switch s {
	case WorkerAlive:
		return "running"
	case WorkerStale:
		return "stale"
	default:
		return "stopped"
	}
}

// Probe is the readiness probe the supervisor relies on in place of a
// handshake.
//
// The socket file appears once the worker has bound its listener, so
// SocketReady is a close proxy for "accepting connections". There is a
// short window between file creation and accept readiness in which a
// connection can still be refused; callers surface that as a connect error.
type Probe interface {
	State(session string) WorkerState
	SocketReady(session string) bool
	// ClearStale removes markers left behind by a dead worker so the next
	// readiness poll observes the new worker's socket, not the old one.
	ClearStale(session string) error
}

// FileProbe implements Probe with the PID marker and socket file.
type FileProbe struct {
	locator paths.Locator
}

// NewFileProbe returns a probe over locator's paths.
func NewFileProbe(locator paths.Locator) *FileProbe {
	return &FileProbe{locator: locator}
}

// State reads the PID marker and signals its process.
func (p *FileProbe) State(session string) WorkerState {
	pidPath := p.locator.PIDPath(session)
	if _, err := os.Stat(pidPath); errors.Is(err, os.ErrNotExist) {
		return WorkerAbsent
	}

	running, _, err := daemon.CheckPIDFile(pidPath)
	if err != nil || !running {
		return WorkerStale
	}
	return WorkerAlive
}

// SocketReady reports whether the session's socket file exists.
func (p *FileProbe) SocketReady(session string) bool {
	_, err := os.Stat(p.locator.SocketPath(session))
	return err == nil
}

// ClearStale removes the PID marker and socket file of a dead worker. It
// refuses to touch anything while the marker's process is alive and does
// nothing when there is no marker.
func (p *FileProbe) ClearStale(session string) error {
	switch p.State(session) {
	case WorkerAlive:
		return fmt.Errorf("worker for session %q is alive", session)
	case WorkerAbsent:
		return nil
	}
	for _, path := range []string{p.locator.SocketPath(session), p.locator.PIDPath(session)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return nil
}
