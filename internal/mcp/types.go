package mcp

import "github.com/leonletto/agent-browser/internal/cli"

// CommandInput is the input for the browser_command tool.
type CommandInput struct {
	Args    []string `json:"args" jsonschema:"Command tokens as typed after agent-browser, e.g. [\"open\",\"example.com\"]"`
	Session string   `json:"session,omitempty" jsonschema:"Session name. Default: the configured session"`
	Headed  bool     `json:"headed,omitempty" jsonschema:"Switch the browser to a visible window first"`
}

// CommandOutput is the output for the browser_command tool.
type CommandOutput struct {
	Success  bool     `json:"success" jsonschema:"Whether the worker reported success"`
	Data     any      `json:"data,omitempty" jsonschema:"Payload returned by the worker"`
	Error    string   `json:"error,omitempty" jsonschema:"Error reported by the worker"`
	Action   string   `json:"action" jsonschema:"Action sent to the worker"`
	ID       string   `json:"id" jsonschema:"Request correlation ID"`
	Warnings []string `json:"warnings,omitempty" jsonschema:"Non-fatal problems, such as a failed headed-mode switch"`
}

// SessionsInput is the input for the browser_sessions tool.
type SessionsInput struct{}

// SessionsOutput is the output for the browser_sessions tool.
type SessionsOutput struct {
	Current  string            `json:"current" jsonschema:"Session used when none is given"`
	Sessions []cli.SessionInfo `json:"sessions" jsonschema:"Known sessions"`
}
