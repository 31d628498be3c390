package mcp

import (
	"context"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/leonletto/agent-browser/internal/cli"
	"github.com/leonletto/agent-browser/internal/config"
	"github.com/leonletto/agent-browser/internal/paths"
)

// Server exposes the browser command grammar as MCP tools over stdio.
type Server struct {
	cfg        *config.Config
	locator    paths.Locator
	supervisor cli.Ensurer
	sender     cli.Sender
	translator *cli.Translator
	logger     *zap.Logger
	version    string
	server     *gomcp.Server
}

// Option configures the MCP server.
type Option func(*Server)

// WithVersion sets the server version string.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLocator places session markers under a custom locator.
func WithLocator(l paths.Locator) Option {
	return func(s *Server) {
		s.locator = l
	}
}

// WithSupervisor replaces the worker supervisor.
func WithSupervisor(e cli.Ensurer) Option {
	return func(s *Server) {
		s.supervisor = e
	}
}

// WithSender replaces the protocol client.
func WithSender(snd cli.Sender) Option {
	return func(s *Server) {
		s.sender = snd
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates an MCP server using cfg for worker discovery and
// timeouts.
func NewServer(cfg *config.Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		cfg:        cfg,
		locator:    paths.NewLocator(),
		translator: cli.NewTranslator(),
		logger:     zap.NewNop(),
		version:    "dev",
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.supervisor == nil {
		s.supervisor = cli.NewSupervisor(s.locator, cfg, cli.WithLogger(s.logger))
	}
	if s.sender == nil {
		s.sender = cli.NewClient(s.locator, cfg.Timeouts, s.logger)
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "agent-browser",
			Version: s.version,
		},
		nil,
	)
	s.registerTools()

	return s
}

// Run serves on stdin/stdout until the client disconnects or ctx is
// canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name: "browser_command",
		Description: "Run one agent-browser command, e.g. args=[\"open\",\"example.com\"], " +
			"[\"snapshot\",\"-i\"] or [\"click\",\"@e2\"]. Starts the session's browser worker when needed.",
	}, s.handleBrowserCommand)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "browser_sessions",
		Description: "List browser sessions with their worker status",
	}, s.handleBrowserSessions)
}
