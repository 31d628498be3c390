package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/leonletto/agent-browser/internal/config"
	"github.com/leonletto/agent-browser/internal/paths"
	"github.com/leonletto/agent-browser/internal/protocol"
)

// Sender delivers one request to a session's worker and returns its answer.
type Sender interface {
	Send(ctx context.Context, session string, req *protocol.Request) (*protocol.Response, error)
}

// Client talks to a worker over its unix socket: one connection, one
// request line, one response line.
type Client struct {
	locator      paths.Locator
	readTimeout  time.Duration
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewClient creates a client for sockets under locator using the timeouts
// from cfg.
func NewClient(locator paths.Locator, timeouts config.TimeoutsConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		locator:      locator,
		readTimeout:  timeouts.Read,
		writeTimeout: timeouts.Write,
		logger:       logger,
	}
}

// Send dials the session's socket, writes req and reads one response.
func (c *Client) Send(ctx context.Context, session string, req *protocol.Request) (*protocol.Response, error) {
	socketPath := c.locator.SocketPath(session)
	log := c.logger.With(zap.String("session", session), zap.String("id", req.ID))

	line, err := protocol.Encode(req)
	if err != nil {
		return nil, newError(KindTransport, "Failed to send", err)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, newError(KindConnect, "Failed to connect", err)
	}
	defer func() { _ = conn.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	log.Debug("sending request", zap.String("action", req.Action), zap.Int("bytes", len(line)))

	if err := conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return nil, newError(KindTransport, "Failed to send", err)
	}
	if _, err := conn.Write(line); err != nil {
		return nil, newError(KindTransport, "Failed to send", ctxErr(ctx, err))
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return nil, newError(KindTransport, "Failed to read", err)
	}
	record, err := protocol.ReadRecord(bufio.NewReader(conn))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, newError(KindTransport, "Failed to read", ctxErr(ctx, err))
	}

	resp, err := protocol.DecodeResponse(record)
	if err != nil {
		return nil, newError(KindDecode, "Invalid response", err)
	}
	log.Debug("received response", zap.Bool("success", resp.Success))
	return resp, nil
}

// ctxErr prefers the context's error when cancellation closed the
// connection underneath a read or write.
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
