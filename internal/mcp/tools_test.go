package mcp

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonletto/agent-browser/internal/cli"
	"github.com/leonletto/agent-browser/internal/config"
	"github.com/leonletto/agent-browser/internal/daemon"
	"github.com/leonletto/agent-browser/internal/paths"
	"github.com/leonletto/agent-browser/internal/protocol"
)

type fakeEnsurer struct {
	sessions []string
	headed   []bool
	err      error
}

func (f *fakeEnsurer) Ensure(_ context.Context, session string, headed bool) error {
	f.sessions = append(f.sessions, session)
	f.headed = append(f.headed, headed)
	return f.err
}

// startWorker serves the protocol for session under a fresh locator.
func startWorker(t *testing.T, session string) (paths.Locator, *daemon.Server) {
	t.Helper()
	dir, err := os.MkdirTemp("", "abmcp")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	loc := paths.NewLocatorAt(dir)
	srv := daemon.NewServer(loc.SocketPath(session), loc.PIDPath(session))
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Stop() })
	return loc, srv
}

func newTestServer(t *testing.T, loc paths.Locator, ens cli.Ensurer) *Server {
	t.Helper()
	cfg := config.Default()
	return NewServer(cfg,
		WithLocator(loc),
		WithSupervisor(ens),
		WithSender(cli.NewClient(loc, cfg.Timeouts, nil)),
	)
}

func TestBrowserCommand(t *testing.T) {
	loc, worker := startWorker(t, "default")
	var mu sync.Mutex
	var got *protocol.Request
	worker.Handle("navigate", func(_ context.Context, req *protocol.Request) *protocol.Response {
		mu.Lock()
		defer mu.Unlock()
		got = req
		return &protocol.Response{Success: true, Data: []byte(`{"url":"https://example.com/","title":"Example"}`)}
	})

	ens := &fakeEnsurer{}
	s := newTestServer(t, loc, ens)

	_, out, err := s.handleBrowserCommand(context.Background(), nil, CommandInput{Args: []string{"open", "example.com"}})
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Equal(t, "navigate", out.Action)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, map[string]any{"url": "https://example.com/", "title": "Example"}, out.Data)
	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, got)
	assert.Equal(t, "https://example.com", got.Params["url"])
	assert.Equal(t, []string{"default"}, ens.sessions)
}

func TestBrowserCommandWorkerFailure(t *testing.T) {
	loc, worker := startWorker(t, "default")
	worker.Handle("click", func(context.Context, *protocol.Request) *protocol.Response {
		return protocol.Failure("element not found")
	})

	s := newTestServer(t, loc, &fakeEnsurer{})
	_, out, err := s.handleBrowserCommand(context.Background(), nil, CommandInput{Args: []string{"click", "@e9"}})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "element not found", out.Error)
	assert.Nil(t, out.Data)
}

func TestBrowserCommandUnknown(t *testing.T) {
	ens := &fakeEnsurer{}
	s := newTestServer(t, paths.NewLocatorAt(t.TempDir()), ens)

	_, _, err := s.handleBrowserCommand(context.Background(), nil, CommandInput{Args: []string{"frobnicate"}})
	require.Error(t, err)
	assert.Equal(t, "unknown command: frobnicate", err.Error())
	assert.Empty(t, ens.sessions, "no worker should be started for an unknown command")
}

func TestBrowserCommandRequiresArgs(t *testing.T) {
	s := newTestServer(t, paths.NewLocatorAt(t.TempDir()), &fakeEnsurer{})

	_, _, err := s.handleBrowserCommand(context.Background(), nil, CommandInput{})
	assert.Error(t, err)

	_, _, err = s.handleBrowserCommand(context.Background(), nil, CommandInput{Args: []string{"--json"}})
	assert.Error(t, err)
}

func TestBrowserCommandSessionAndHeaded(t *testing.T) {
	loc, worker := startWorker(t, "work")
	var mu sync.Mutex
	var actions []string
	worker.HandleDefault(func(_ context.Context, req *protocol.Request) *protocol.Response {
		mu.Lock()
		defer mu.Unlock()
		actions = append(actions, req.Action)
		if req.Action == "launch" {
			return protocol.Failure("already launched")
		}
		return nil
	})

	ens := &fakeEnsurer{}
	s := newTestServer(t, loc, ens)

	_, out, err := s.handleBrowserCommand(context.Background(), nil, CommandInput{
		Args:    []string{"reload"},
		Session: "work",
		Headed:  true,
	})
	require.NoError(t, err)

	assert.True(t, out.Success)
	mu.Lock()
	assert.Equal(t, []string{"launch", "reload"}, actions)
	mu.Unlock()
	assert.Equal(t, []string{"work"}, ens.sessions)
	assert.Equal(t, []bool{true}, ens.headed)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "already launched")
}

func TestBrowserCommandInvalidSession(t *testing.T) {
	ens := &fakeEnsurer{}
	s := newTestServer(t, paths.NewLocatorAt(t.TempDir()), ens)

	_, _, err := s.handleBrowserCommand(context.Background(), nil, CommandInput{Args: []string{"back"}, Session: "a/b"})
	require.Error(t, err)
	assert.True(t, cli.IsKind(err, cli.KindConfig))
	assert.Empty(t, ens.sessions)
}

func TestBrowserCommandEnsureError(t *testing.T) {
	ens := &fakeEnsurer{err: &cli.Error{Kind: cli.KindStartupTimeout, Msg: "Daemon failed to start"}}
	s := newTestServer(t, paths.NewLocatorAt(t.TempDir()), ens)

	_, _, err := s.handleBrowserCommand(context.Background(), nil, CommandInput{Args: []string{"back"}})
	require.Error(t, err)
	assert.True(t, cli.IsKind(err, cli.KindStartupTimeout))
}

func TestBrowserCommandConnectError(t *testing.T) {
	s := newTestServer(t, paths.NewLocatorAt(t.TempDir()), &fakeEnsurer{})

	_, _, err := s.handleBrowserCommand(context.Background(), nil, CommandInput{Args: []string{"back"}})
	require.Error(t, err)
	var cliErr *cli.Error
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, cli.KindConnect, cliErr.Kind)
}

func TestBrowserSessions(t *testing.T) {
	loc, _ := startWorker(t, "work")
	s := newTestServer(t, loc, &fakeEnsurer{})

	_, out, err := s.handleBrowserSessions(context.Background(), nil, SessionsInput{})
	require.NoError(t, err)

	assert.Equal(t, "default", out.Current)
	require.Len(t, out.Sessions, 2)
	assert.Equal(t, "work", out.Sessions[0].Name)
	assert.Equal(t, "running", out.Sessions[0].Status)
	assert.True(t, out.Sessions[0].Socket)
	assert.Equal(t, os.Getpid(), out.Sessions[0].PID)
	assert.Equal(t, "default", out.Sessions[1].Name)
	assert.True(t, out.Sessions[1].Current)
	assert.Equal(t, "stopped", out.Sessions[1].Status)
}
