package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/leonletto/agent-browser/internal/config"
	"github.com/leonletto/agent-browser/internal/daemon"
	"github.com/leonletto/agent-browser/internal/paths"
)

// Environment passed to a spawned worker.
const (
	EnvDaemon = "AGENT_BROWSER_DAEMON"
	EnvHeaded = "AGENT_BROWSER_HEADED"
)

// Ensurer guarantees a worker is listening for a session.
type Ensurer interface {
	Ensure(ctx context.Context, session string, headed bool) error
}

// LaunchSpec describes one worker process to start.
type LaunchSpec struct {
	Runtime  string // interpreter; empty runs Artifact directly
	Artifact string
	Session  string
	Headed   bool
}

// Env returns the variables added to the worker's environment.
func (s LaunchSpec) Env() []string {
	env := []string{
		EnvDaemon + "=1",
		config.EnvSession + "=" + s.Session,
	}
	if s.Headed {
		env = append(env, EnvHeaded+"=1")
	}
	return env
}

// Command returns the argv for the worker.
func (s LaunchSpec) Command() []string {
	if s.Runtime == "" {
		return []string{s.Artifact}
	}
	return []string{s.Runtime, s.Artifact}
}

// Launcher starts a worker process without waiting for it.
type Launcher interface {
	Launch(spec LaunchSpec) error
}

// ExecLauncher starts the worker as a detached background process with its
// standard streams discarded.
type ExecLauncher struct{}

// Launch starts the worker and releases it so it outlives this invocation.
func (ExecLauncher) Launch(spec LaunchSpec) error {
	argv := spec.Command()
	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec // argv from config and discovered artifact
	cmd.Env = append(os.Environ(), spec.Env()...)

	// nil streams are connected to the null device
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session (detach from terminal)
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	// Do not Wait: the worker is not our child to supervise once started.
	return cmd.Process.Release()
}

// Supervisor makes sure a worker is listening on a session's socket,
// spawning one when the probe says none is.
type Supervisor struct {
	probe    Probe
	launcher Launcher
	lockPath func(session string) string
	tryLock  func(path string) (*daemon.FileLock, error)
	clock    clock.Clock
	worker   config.WorkerConfig
	startup  config.StartupConfig
	exePath  func() (string, error)
	workDir  func() (string, error)
	logger   *zap.Logger
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithProbe replaces the file-system readiness probe.
func WithProbe(p Probe) SupervisorOption {
	return func(s *Supervisor) { s.probe = p }
}

// WithLauncher replaces the process launcher.
func WithLauncher(l Launcher) SupervisorOption {
	return func(s *Supervisor) { s.launcher = l }
}

// WithClock replaces the clock used between readiness polls.
func WithClock(c clock.Clock) SupervisorOption {
	return func(s *Supervisor) { s.clock = c }
}

// WithLogger sets the debug logger.
func WithLogger(l *zap.Logger) SupervisorOption {
	return func(s *Supervisor) { s.logger = l }
}

// WithSearchRoots overrides where the worker artifact is looked up: exe
// stands in for the running binary's path and dir for the working directory.
func WithSearchRoots(exe, dir string) SupervisorOption {
	return func(s *Supervisor) {
		s.exePath = func() (string, error) { return exe, nil }
		s.workDir = func() (string, error) { return dir, nil }
	}
}

// NewSupervisor creates a supervisor for workers whose markers live under
// locator.
func NewSupervisor(locator paths.Locator, cfg *config.Config, opts ...SupervisorOption) *Supervisor {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Supervisor{
		probe:    NewFileProbe(locator),
		launcher: ExecLauncher{},
		lockPath: locator.LockPath,
		tryLock:  daemon.TryLock,
		clock:    clock.New(),
		worker:   cfg.Worker,
		startup:  cfg.Startup,
		exePath:  os.Executable,
		workDir:  os.Getwd,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ensure returns nil once a worker for session is reachable.
//
// Fast path: the PID marker names a live process and the socket exists.
// Otherwise a worker is spawned and the socket polled every
// startup.interval, at most startup.attempts times. Nothing is retried.
// Concurrent invocations for one session serialize on the session's spawn
// lock, so only the first one launches a worker. Waiting for the lock
// spends the same attempts as the readiness poll.
func (s *Supervisor) Ensure(ctx context.Context, session string, headed bool) error {
	log := s.logger.With(zap.String("session", session))

	state := s.probe.State(session)
	if state == WorkerAlive && s.probe.SocketReady(session) {
		log.Debug("worker already running")
		return nil
	}
	log.Debug("worker not reachable", zap.Stringer("state", state))

	artifact, err := s.FindWorker()
	if err != nil {
		return err
	}

	lock, waited, err := s.lockSpawn(ctx, session)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	// another invocation may have started it while we waited
	state = s.probe.State(session)
	if state == WorkerAlive && s.probe.SocketReady(session) {
		log.Debug("worker started by another invocation")
		return nil
	}

	if state == WorkerStale {
		if err := s.probe.ClearStale(session); err != nil {
			log.Debug("could not clear stale markers", zap.Error(err))
		}
	}

	spec := LaunchSpec{
		Runtime:  s.worker.Runtime,
		Artifact: artifact,
		Session:  session,
		Headed:   headed,
	}
	log.Debug("spawning worker",
		zap.Strings("argv", spec.Command()),
		zap.Bool("headed", headed),
		zap.Duration("budget", s.startup.Budget()))
	if err := s.launcher.Launch(spec); err != nil {
		return newError(KindSpawn, "Failed to start daemon", err)
	}

	for attempt := waited + 1; attempt <= s.startup.Attempts; attempt++ {
		if s.probe.SocketReady(session) {
			log.Debug("worker socket ready", zap.Int("attempt", attempt))
			return nil
		}
		log.Debug("worker socket not ready", zap.Int("attempt", attempt))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.startup.Interval):
		}
	}

	return newError(KindStartupTimeout, "Daemon failed to start", nil)
}

// lockSpawn waits for the session's spawn lock on the readiness poll
// schedule and reports how many intervals it waited. A lock that cannot be
// created at all is logged and skipped.
func (s *Supervisor) lockSpawn(ctx context.Context, session string) (*daemon.FileLock, int, error) {
	path := s.lockPath(session)
	for waited := 0; waited < s.startup.Attempts; waited++ {
		lock, err := s.tryLock(path)
		switch {
		case err == nil:
			return lock, waited, nil
		case !errors.Is(err, daemon.ErrLocked):
			s.logger.Debug("spawn lock unavailable", zap.String("path", path), zap.Error(err))
			return nil, waited, nil
		}
		s.logger.Debug("waiting for spawn lock", zap.String("path", path), zap.Int("attempt", waited+1))
		select {
		case <-ctx.Done():
			return nil, waited, ctx.Err()
		case <-s.clock.After(s.startup.Interval):
		}
	}
	return nil, s.startup.Attempts, newError(KindStartupTimeout, "Daemon failed to start", daemon.ErrLocked)
}

// FindWorker returns the worker artifact to launch: worker.path when
// configured, otherwise the first existing file among WorkerCandidates.
func (s *Supervisor) FindWorker() (string, error) {
	if s.worker.Path != "" {
		if isFile(s.worker.Path) {
			return s.worker.Path, nil
		}
		return "", newError(KindConfig, fmt.Sprintf("Daemon not found at %s", s.worker.Path), nil)
	}

	exe, err := s.exePath()
	if err != nil {
		return "", newError(KindConfig, "Daemon not found", err)
	}
	dir, err := s.workDir()
	if err != nil {
		dir = ""
	}

	for _, candidate := range WorkerCandidates(exe, dir, s.worker.Script) {
		if isFile(candidate) {
			s.logger.Debug("worker artifact found", zap.String("path", candidate))
			return candidate, nil
		}
	}

	return "", newError(KindConfig, fmt.Sprintf(
		"Daemon not found. Run from project directory or ensure %s is alongside binary.", s.worker.Script), nil)
}

// WorkerCandidates lists where the worker artifact is looked for, in order:
// next to the binary, ../dist relative to the binary, and dist/ under the
// working directory.
func WorkerCandidates(exe, workDir, script string) []string {
	exeDir := filepath.Dir(exe)
	return []string{
		filepath.Join(exeDir, script),
		filepath.Join(exeDir, "..", "dist", script),
		filepath.Join(workDir, "dist", script),
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
