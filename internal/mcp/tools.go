package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/leonletto/agent-browser/internal/cli"
)

// handleBrowserCommand runs the same pipeline as the command line. Each
// call opens its own connection to the worker.
func (s *Server) handleBrowserCommand(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input CommandInput,
) (*gomcp.CallToolResult, CommandOutput, error) {
	if len(input.Args) == 0 {
		return nil, CommandOutput{}, fmt.Errorf("'args' is required")
	}

	flags, rest := cli.ParseArgs(input.Args)
	if len(rest) == 0 {
		return nil, CommandOutput{}, fmt.Errorf("'args' has no command")
	}
	flags.Headed = flags.Headed || input.Headed
	session := s.cfg.Session
	if input.Session != "" {
		session = input.Session
	}
	session = flags.ResolveSession(session)

	var warnings []string
	inv := &cli.Invoker{
		Translator: s.translator,
		Supervisor: s.supervisor,
		Sender:     s.sender,
		Logger:     s.logger,
		OnHeadedError: func(err error) {
			warnings = append(warnings, "could not switch to headed mode: "+err.Error())
		},
	}

	r, resp, err := inv.Invoke(ctx, rest, session, flags)
	if err != nil {
		if cli.IsKind(err, cli.KindTranslate) {
			return nil, CommandOutput{}, fmt.Errorf("unknown command: %s", rest[0])
		}
		return nil, CommandOutput{}, err
	}

	out := CommandOutput{
		Success:  resp.Success,
		Error:    resp.ErrorMessage(),
		Action:   r.Action,
		ID:       r.ID,
		Warnings: warnings,
	}
	data, err := resp.DataValue()
	if err != nil {
		s.logger.Debug("undecodable payload", zap.Error(err))
		return nil, CommandOutput{}, fmt.Errorf("decode payload: %w", err)
	}
	out.Data = data
	return nil, out, nil
}

// handleBrowserSessions lists sessions found in the marker directory.
func (s *Server) handleBrowserSessions(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input SessionsInput,
) (*gomcp.CallToolResult, SessionsOutput, error) {
	sessions, err := cli.ListSessions(s.locator, s.cfg.Session)
	if err != nil {
		return nil, SessionsOutput{}, err
	}
	return nil, SessionsOutput{Current: s.cfg.Session, Sessions: sessions}, nil
}
