package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonletto/agent-browser/internal/daemon"
	"github.com/leonletto/agent-browser/internal/paths"
)

func TestFileProbeState(t *testing.T) {
	loc := paths.NewLocatorAt(t.TempDir())
	probe := NewFileProbe(loc)

	assert.Equal(t, WorkerAbsent, probe.State("s"))

	require.NoError(t, daemon.WritePIDFile(loc.PIDPath("s"), os.Getpid()))
	assert.Equal(t, WorkerAlive, probe.State("s"))

	require.NoError(t, daemon.WritePIDFile(loc.PIDPath("s"), 999999))
	assert.Equal(t, WorkerStale, probe.State("s"))

	require.NoError(t, os.WriteFile(loc.PIDPath("s"), []byte("garbage"), 0o600))
	assert.Equal(t, WorkerStale, probe.State("s"))
}

func TestFileProbeSocketReady(t *testing.T) {
	loc := paths.NewLocatorAt(t.TempDir())
	probe := NewFileProbe(loc)

	assert.False(t, probe.SocketReady("s"))
	require.NoError(t, os.WriteFile(loc.SocketPath("s"), nil, 0o600))
	assert.True(t, probe.SocketReady("s"))
	assert.False(t, probe.SocketReady("other"))
}

func TestFileProbeClearStale(t *testing.T) {
	loc := paths.NewLocatorAt(t.TempDir())
	probe := NewFileProbe(loc)

	require.NoError(t, daemon.WritePIDFile(loc.PIDPath("s"), 999999))
	require.NoError(t, os.WriteFile(loc.SocketPath("s"), nil, 0o600))

	require.NoError(t, probe.ClearStale("s"))
	assert.NoFileExists(t, loc.PIDPath("s"))
	assert.NoFileExists(t, loc.SocketPath("s"))
	assert.Equal(t, WorkerAbsent, probe.State("s"))
}

func TestFileProbeClearStaleRefusesLiveWorker(t *testing.T) {
	loc := paths.NewLocatorAt(t.TempDir())
	probe := NewFileProbe(loc)

	require.NoError(t, daemon.WritePIDFile(loc.PIDPath("s"), os.Getpid()))
	require.NoError(t, os.WriteFile(loc.SocketPath("s"), nil, 0o600))

	assert.Error(t, probe.ClearStale("s"))
	assert.FileExists(t, loc.PIDPath("s"))
	assert.FileExists(t, loc.SocketPath("s"))
}

func TestFileProbeClearStaleWithoutMarker(t *testing.T) {
	loc := paths.NewLocatorAt(t.TempDir())
	require.NoError(t, os.WriteFile(loc.SocketPath("s"), nil, 0o600))

	require.NoError(t, NewFileProbe(loc).ClearStale("s"))
	assert.FileExists(t, loc.SocketPath("s"), "without a marker the socket may belong to a worker still starting")
}

func TestWorkerStateString(t *testing.T) {
	assert.Equal(t, "stopped", WorkerAbsent.String())
	assert.Equal(t, "stale", WorkerStale.String())
	assert.Equal(t, "running", WorkerAlive.String())
}
