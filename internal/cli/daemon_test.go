package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonletto/agent-browser/internal/config"
	"github.com/leonletto/agent-browser/internal/daemon"
	"github.com/leonletto/agent-browser/internal/paths"
)

// fakeProbe reports a fixed state; the socket appears after readyAfter
// SocketReady calls (never when negative).
type fakeProbe struct {
	mu         sync.Mutex
	state      WorkerState
	readyAfter int
	polls      int
	cleared    int
}

func (p *fakeProbe) State(string) WorkerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *fakeProbe) SocketReady(string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++
	return p.readyAfter >= 0 && p.polls > p.readyAfter
}

func (p *fakeProbe) ClearStale(string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared++
	return nil
}

type fakeLauncher struct {
	specs []LaunchSpec
	err   error
}

func (l *fakeLauncher) Launch(spec LaunchSpec) error {
	l.specs = append(l.specs, spec)
	return l.err
}

// workerScript creates an artifact next to a fake binary and returns the
// binary path.
func workerScript(t *testing.T) (exe string, script string) {
	t.Helper()
	dir := t.TempDir()
	script = filepath.Join(dir, "daemon.js")
	require.NoError(t, os.WriteFile(script, []byte("// worker\n"), 0o600))
	return filepath.Join(dir, "agent-browser"), script
}

func newTestSupervisor(t *testing.T, probe Probe, launcher Launcher, clk clock.Clock) *Supervisor {
	t.Helper()
	exe, _ := workerScript(t)
	return NewSupervisor(paths.NewLocatorAt(t.TempDir()), config.Default(),
		WithProbe(probe),
		WithLauncher(launcher),
		WithClock(clk),
		WithSearchRoots(exe, t.TempDir()),
	)
}

// runEnsure drives Ensure to completion, advancing the mock clock while it
// waits between polls.
func runEnsure(t *testing.T, s *Supervisor, mock *clock.Mock, headed bool) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- s.Ensure(context.Background(), "default", headed) }()

	for {
		select {
		case err := <-done:
			return err
		default:
			mock.Add(100 * time.Millisecond)
			time.Sleep(time.Millisecond)
		}
	}
}

func TestEnsureFastPath(t *testing.T) {
	probe := &fakeProbe{state: WorkerAlive, readyAfter: 0}
	launcher := &fakeLauncher{}
	s := newTestSupervisor(t, probe, launcher, clock.NewMock())

	require.NoError(t, s.Ensure(context.Background(), "default", false))
	assert.Empty(t, launcher.specs, "a live worker must not be respawned")
	assert.Zero(t, probe.cleared)
}

func TestEnsureSpawns(t *testing.T) {
	tests := []struct {
		name        string
		state       WorkerState
		wantCleared int
	}{
		{"absent marker", WorkerAbsent, 0},
		{"stale marker", WorkerStale, 1},
		{"alive without socket", WorkerAlive, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := &fakeProbe{state: tt.state, readyAfter: 3}
			if tt.state == WorkerAlive {
				// fast path poll misses, then the loop polls
				probe.readyAfter = 4
			}
			launcher := &fakeLauncher{}
			mock := clock.NewMock()
			s := newTestSupervisor(t, probe, launcher, mock)

			require.NoError(t, runEnsure(t, s, mock, false))
			require.Len(t, launcher.specs, 1)
			assert.Equal(t, tt.wantCleared, probe.cleared)
		})
	}
}

func TestEnsureLaunchSpec(t *testing.T) {
	probe := &fakeProbe{state: WorkerAbsent, readyAfter: 0}
	launcher := &fakeLauncher{}
	exe, script := workerScript(t)
	s := NewSupervisor(paths.NewLocatorAt(t.TempDir()), config.Default(),
		WithProbe(probe), WithLauncher(launcher), WithClock(clock.NewMock()),
		WithSearchRoots(exe, t.TempDir()))

	require.NoError(t, s.Ensure(context.Background(), "work", true))
	require.Len(t, launcher.specs, 1)

	spec := launcher.specs[0]
	assert.Equal(t, []string{"node", script}, spec.Command())
	assert.Equal(t, []string{
		"AGENT_BROWSER_DAEMON=1",
		"AGENT_BROWSER_SESSION=work",
		"AGENT_BROWSER_HEADED=1",
	}, spec.Env())
}

func TestLaunchSpecHeadless(t *testing.T) {
	spec := LaunchSpec{Artifact: "/opt/worker", Session: "s"}
	assert.Equal(t, []string{"/opt/worker"}, spec.Command())
	assert.NotContains(t, spec.Env(), "AGENT_BROWSER_HEADED=1")
}

func TestEnsureStartupTimeout(t *testing.T) {
	probe := &fakeProbe{state: WorkerAbsent, readyAfter: -1}
	launcher := &fakeLauncher{}
	mock := clock.NewMock()
	s := newTestSupervisor(t, probe, launcher, mock)

	err := runEnsure(t, s, mock, false)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindStartupTimeout))
	assert.Equal(t, "Daemon failed to start", err.Error())
	assert.Equal(t, 50, probe.polls)
}

func TestEnsureSpawnError(t *testing.T) {
	probe := &fakeProbe{state: WorkerAbsent, readyAfter: -1}
	launcher := &fakeLauncher{err: errors.New("exec: \"node\": executable file not found in $PATH")}
	s := newTestSupervisor(t, probe, launcher, clock.NewMock())

	err := s.Ensure(context.Background(), "default", false)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSpawn))
	assert.Contains(t, err.Error(), "Failed to start daemon: exec:")
	assert.Zero(t, probe.polls)
}

func TestEnsureWorkerNotFound(t *testing.T) {
	probe := &fakeProbe{state: WorkerAbsent}
	launcher := &fakeLauncher{}
	empty := t.TempDir()
	s := NewSupervisor(paths.NewLocatorAt(t.TempDir()), config.Default(),
		WithProbe(probe), WithLauncher(launcher), WithClock(clock.NewMock()),
		WithSearchRoots(filepath.Join(empty, "bin", "agent-browser"), empty))

	err := s.Ensure(context.Background(), "default", false)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfig))
	assert.Contains(t, err.Error(), "Daemon not found")
	assert.Empty(t, launcher.specs, "nothing is spawned without an artifact")
}

func TestEnsureCanceled(t *testing.T) {
	probe := &fakeProbe{state: WorkerAbsent, readyAfter: -1}
	s := newTestSupervisor(t, probe, &fakeLauncher{}, clock.NewMock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Ensure(ctx, "default", false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnsureWaitsForSpawnLock(t *testing.T) {
	loc := paths.NewLocatorAt(t.TempDir())
	held, err := daemon.TryLock(loc.LockPath("default"))
	require.NoError(t, err)

	probe := &fakeProbe{state: WorkerAbsent, readyAfter: 0}
	launcher := &fakeLauncher{}
	mock := clock.NewMock()
	exe, _ := workerScript(t)
	s := NewSupervisor(loc, config.Default(),
		WithProbe(probe), WithLauncher(launcher), WithClock(mock),
		WithSearchRoots(exe, t.TempDir()))

	done := make(chan error, 1)
	go func() { done <- s.Ensure(context.Background(), "default", false) }()

	// the holder finishes its spawn: worker alive, socket present
	time.Sleep(10 * time.Millisecond)
	probe.mu.Lock()
	probe.state = WorkerAlive
	probe.mu.Unlock()
	require.NoError(t, held.Release())

	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			assert.Empty(t, launcher.specs, "the waiter reuses the worker the holder started")
			return
		default:
			mock.Add(100 * time.Millisecond)
			time.Sleep(time.Millisecond)
		}
	}
}

func TestEnsureSpawnLockTimeout(t *testing.T) {
	loc := paths.NewLocatorAt(t.TempDir())
	held, err := daemon.TryLock(loc.LockPath("default"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = held.Release() })

	probe := &fakeProbe{state: WorkerAbsent, readyAfter: -1}
	launcher := &fakeLauncher{}
	mock := clock.NewMock()
	exe, _ := workerScript(t)
	s := NewSupervisor(loc, config.Default(),
		WithProbe(probe), WithLauncher(launcher), WithClock(mock),
		WithSearchRoots(exe, t.TempDir()))

	err = runEnsure(t, s, mock, false)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindStartupTimeout))
	assert.ErrorIs(t, err, daemon.ErrLocked)
	assert.Empty(t, launcher.specs)
}

// socketLauncher behaves like the real worker: it binds the socket named
// after the raw AGENT_BROWSER_SESSION value.
type socketLauncher struct {
	dir string
}

func (l socketLauncher) Launch(spec LaunchSpec) error {
	return os.WriteFile(filepath.Join(l.dir, "agent-browser-"+spec.Session+".sock"), nil, 0o600)
}

func TestEnsureFindsWorkerSocketForAnyName(t *testing.T) {
	for _, session := range []string{"my session", "100%", "a?b#c"} {
		t.Run(session, func(t *testing.T) {
			dir := t.TempDir()
			exe, _ := workerScript(t)
			s := NewSupervisor(paths.NewLocatorAt(dir), config.Default(),
				WithLauncher(socketLauncher{dir: dir}),
				WithClock(clock.NewMock()),
				WithSearchRoots(exe, t.TempDir()))

			require.NoError(t, s.Ensure(context.Background(), session, false))
		})
	}
}

func TestEnsureLockWaitSharesStartupBudget(t *testing.T) {
	probe := &fakeProbe{state: WorkerAbsent, readyAfter: -1}
	launcher := &fakeLauncher{}
	mock := clock.NewMock()
	s := newTestSupervisor(t, probe, launcher, mock)

	var lockCalls int
	s.tryLock = func(path string) (*daemon.FileLock, error) {
		lockCalls++
		if lockCalls <= 3 {
			return nil, daemon.ErrLocked
		}
		return nil, nil
	}

	err := runEnsure(t, s, mock, false)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindStartupTimeout))
	require.Len(t, launcher.specs, 1)
	assert.Equal(t, 4, lockCalls)
	assert.Equal(t, 47, probe.polls, "three intervals went to the lock wait")
}

func TestWorkerCandidates(t *testing.T) {
	got := WorkerCandidates("/opt/ab/bin/agent-browser", "/work", "daemon.js")
	assert.Equal(t, []string{
		"/opt/ab/bin/daemon.js",
		"/opt/ab/dist/daemon.js",
		"/work/dist/daemon.js",
	}, got)
}

func TestFindWorkerOrder(t *testing.T) {
	root := t.TempDir()
	exe := filepath.Join(root, "bin", "agent-browser")
	cwd := filepath.Join(root, "project")

	write := func(path string) {
		t.Helper()
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
		require.NoError(t, os.WriteFile(path, nil, 0o600))
	}

	s := NewSupervisor(paths.NewLocatorAt(root), config.Default(), WithSearchRoots(exe, cwd))

	write(filepath.Join(cwd, "dist", "daemon.js"))
	got, err := s.FindWorker()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "dist", "daemon.js"), got)

	write(filepath.Join(root, "dist", "daemon.js"))
	got, err = s.FindWorker()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "dist", "daemon.js"), got)

	write(filepath.Join(root, "bin", "daemon.js"))
	got, err = s.FindWorker()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "bin", "daemon.js"), got)
}

func TestFindWorkerExplicitPath(t *testing.T) {
	_, script := workerScript(t)
	cfg := config.Default()
	cfg.Worker.Path = script

	s := NewSupervisor(paths.NewLocatorAt(t.TempDir()), cfg, WithSearchRoots("/nonexistent/agent-browser", "/nonexistent"))
	got, err := s.FindWorker()
	require.NoError(t, err)
	assert.Equal(t, script, got)

	cfg.Worker.Path = filepath.Join(t.TempDir(), "missing.js")
	s = NewSupervisor(paths.NewLocatorAt(t.TempDir()), cfg)
	_, err = s.FindWorker()
	assert.True(t, IsKind(err, KindConfig))
}

func TestExecLauncherStartsDetached(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "env")
	script := filepath.Join(dir, "worker.sh")
	require.NoError(t, os.WriteFile(script,
		[]byte("#!/bin/sh\necho \"$AGENT_BROWSER_DAEMON $AGENT_BROWSER_SESSION $AGENT_BROWSER_HEADED\" > "+marker+"\n"), 0o700))

	err := ExecLauncher{}.Launch(LaunchSpec{Runtime: "/bin/sh", Artifact: script, Session: "work", Headed: true})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		b, err := os.ReadFile(marker)
		return err == nil && string(b) == "1 work 1\n"
	}, 5*time.Second, 10*time.Millisecond)
}
