package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	goruntime "runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leonletto/agent-browser/internal/cli"
	"github.com/leonletto/agent-browser/internal/config"
	"github.com/leonletto/agent-browser/internal/paths"
)

var (
	// Build info (set via ldflags).
	Version = "dev"
	Build   = "unknown"
)

var (
	// Global flags. The root command scans its own arguments; these are
	// parsed for the meta subcommands.
	flagSession string
	flagJSON    bool
	flagDebug   bool
)

// exitCode is set by the root command; cobra only reports errors.
var exitCode int

func main() {
	rootCmd := newRootCmd(func(cmd *cobra.Command, args []string) int {
		return cli.Run(cmd.Context(), args, cli.DefaultEnv())
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
	stop()
	os.Exit(exitCode)
}

// newRootCmd builds the command tree. Browser commands reach run with
// their raw tokens; only the meta subcommands are parsed by cobra.
func newRootCmd(run func(cmd *cobra.Command, args []string) int) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agent-browser <command> [args] [options]",
		Short: "Browser automation CLI for AI agents",
		Long: `agent-browser drives a long-lived, per-session browser worker.

Each invocation translates one command into a request, starts the
session's worker when none is running, and prints the worker's answer.`,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			exitCode = run(cmd, args)
			return nil
		},
	}

	// "help" and "completion" are browser-command tokens, not cobra commands.
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{Use: "__help", Hidden: true})

	// Global flags available to all commands. Every boolean global is
	// declared so routing never mistakes the next token for its value.
	rootCmd.PersistentFlags().StringVar(&flagSession, "session", "", "Isolated session (or AGENT_BROWSER_SESSION env var)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "JSON output")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Debug output")
	rootCmd.PersistentFlags().BoolP("full", "f", false, "Full page screenshot")
	rootCmd.PersistentFlags().Bool("headed", false, "Show the browser window")

	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show agent-browser version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagJSON {
				output := map[string]string{
					"version":    Version,
					"build":      Build,
					"go_version": goruntime.Version(),
				}
				data, err := json.MarshalIndent(output, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}
			fmt.Printf("agent-browser v%s (build: %s, %s)\n", Version, Build, goruntime.Version())
			return nil
		},
	}
}

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			fmt.Println(currentSession(cfg))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sessions with their worker status",
		Long: `Lists every session that has a PID marker or socket in the temp
directory. Stale markers are reported, never removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			sessions, err := cli.ListSessions(paths.NewLocator(), currentSession(cfg))
			if err != nil {
				return err
			}

			if flagJSON {
				data, err := json.MarshalIndent(sessions, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}
			return cli.FormatSessionList(os.Stdout, sessions)
		},
	})

	return cmd
}

// loadConfig drops an unusable config file but keeps environment overrides.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: ignoring configuration file: %v\n", err)
	}
	if cfg == nil {
		return config.Default()
	}
	return cfg
}

func currentSession(cfg *config.Config) string {
	if flagSession != "" {
		return flagSession
	}
	return cfg.Session
}
