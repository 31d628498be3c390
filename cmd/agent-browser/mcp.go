package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/leonletto/agent-browser/internal/cli"
	abmcp "github.com/leonletto/agent-browser/internal/mcp"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server integration",
	}

	cmd.AddCommand(mcpServeCmd())
	return cmd
}

func mcpServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start MCP stdio server for browser automation",
		Long: `Starts an MCP server on stdin/stdout exposing the browser commands as
tools (browser_command, browser_sessions). Workers are started on demand,
exactly as on the command line.

Configure in an MCP client:
  {
    "mcpServers": {
      "agent-browser": {
        "type": "stdio",
        "command": "agent-browser",
        "args": ["mcp", "serve"]
      }
    }
  }`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if flagSession != "" {
				cfg.Session = flagSession
			}

			// stdout carries the MCP stream; debug logs go to stderr.
			logger := cli.NewLogger(os.Stderr, flagDebug)
			defer func() { _ = logger.Sync() }()

			server := abmcp.NewServer(cfg,
				abmcp.WithVersion(Version),
				abmcp.WithLogger(logger),
			)
			return server.Run(cmd.Context())
		},
	}
}
