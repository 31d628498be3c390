package daemon

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/leonletto/agent-browser/internal/protocol"
)

// Handler answers one worker request.
type Handler func(ctx context.Context, req *protocol.Request) *protocol.Response

// Server is a unix-socket endpoint speaking the worker protocol: one
// request line in, one response line out, then the connection closes.
// It follows the worker's startup contract, writing the PID marker and
// binding the socket before accepting connections.
type Server struct {
	socketPath string
	pidPath    string
	listener   net.Listener
	handlers   map[string]Handler
	fallback   Handler
	mu         sync.RWMutex
	shutdown   bool
	wg         sync.WaitGroup
}

// NewServer creates a server for socketPath. pidPath may be empty.
func NewServer(socketPath, pidPath string) *Server {
	return &Server{
		socketPath: socketPath,
		pidPath:    pidPath,
		handlers:   make(map[string]Handler),
	}
}

// Handle registers h for action.
func (s *Server) Handle(action string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[action] = h
}

// HandleDefault registers h for actions without their own handler.
func (s *Server) HandleDefault(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = h
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Start writes the PID marker, binds the socket and begins accepting
// connections.
func (s *Server) Start(ctx context.Context) error {
	socketDir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(socketDir, 0700); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	if err := s.removeOldSocket(); err != nil {
		return fmt.Errorf("failed to remove old socket: %w", err)
	}

	if s.pidPath != "" {
		if err := WritePIDFile(s.pidPath, os.Getpid()); err != nil {
			return err
		}
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions to owner-only
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	go s.acceptLoop(ctx)

	return nil
}

// Stop closes the listener, waits briefly for open connections and removes
// the socket and PID marker.
func (s *Server) Stop() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			return fmt.Errorf("failed to close listener: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}

	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove socket: %w", err)
	}
	if s.pidPath != "" {
		if err := os.Remove(s.pidPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove pid file: %w", err)
		}
	}
	return nil
}

// removeOldSocket removes a socket file nobody is listening on.
func (s *Server) removeOldSocket() error {
	if _, err := os.Stat(s.socketPath); err == nil {
		conn, err := net.DialTimeout("unix", s.socketPath, 500*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return fmt.Errorf("socket %s is in use by another worker", s.socketPath)
		}

		if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.RLock()
			shutdown := s.shutdown
			s.mu.RUnlock()
			if shutdown {
				return
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer func() { _ = conn.Close() }()

	record, err := protocol.ReadRecord(bufio.NewReader(conn))
	if err != nil {
		return
	}

	var resp *protocol.Response
	req, err := protocol.DecodeRequest(record)
	if err != nil {
		resp = protocol.Failure("Invalid request: " + err.Error())
	} else {
		resp = s.dispatch(ctx, req)
	}

	line, err := protocol.Encode(resp)
	if err != nil {
		line, _ = protocol.Encode(protocol.Failure(err.Error()))
	}
	_, _ = conn.Write(line)
}

func (s *Server) dispatch(ctx context.Context, req *protocol.Request) *protocol.Response {
	s.mu.RLock()
	h, ok := s.handlers[req.Action]
	if !ok {
		h = s.fallback
	}
	s.mu.RUnlock()

	if h == nil {
		return protocol.Failure("Unknown action: " + req.Action)
	}
	if resp := h(ctx, req); resp != nil {
		return resp
	}
	return &protocol.Response{Success: true}
}
