package cli

import (
	"context"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/leonletto/agent-browser/internal/config"
	"github.com/leonletto/agent-browser/internal/paths"
	"github.com/leonletto/agent-browser/internal/protocol"
)

// Invoker runs one browser command: translate, ensure a worker, optionally
// switch it to headed mode, then send the request.
type Invoker struct {
	Translator *Translator
	Supervisor Ensurer
	Sender     Sender
	Logger     *zap.Logger

	// OnHeadedError is called when the headed-mode switch fails. The
	// command still runs.
	OnHeadedError func(error)
}

// Invoke translates args and performs the exchange. A translation failure
// or an unusable session name is returned before any worker is contacted. A worker that answers
// success:false is not an error; the response is returned as is.
func (inv *Invoker) Invoke(ctx context.Context, args []string, session string, flags Flags) (*protocol.Request, *protocol.Response, error) {
	log := inv.logger()

	req, ok := inv.Translator.Translate(args, flags)
	if !ok {
		verb := ""
		if len(args) > 0 {
			verb = args[0]
		}
		return nil, nil, newError(KindTranslate, "Unknown command: "+verb, nil)
	}

	if err := paths.ValidateSession(session); err != nil {
		return req, nil, newError(KindConfig, "Invalid session", err)
	}

	if err := inv.Supervisor.Ensure(ctx, session, flags.Headed); err != nil {
		return req, nil, err
	}

	if flags.Headed {
		launch := protocol.NewRequest("launch", protocol.Params{"headless": false})
		resp, err := inv.Sender.Send(ctx, session, launch)
		switch {
		case err != nil:
			inv.headedError(err)
		case !resp.Success:
			inv.headedError(newError(KindApplication, resp.ErrorMessage(), nil))
		}
	}

	start := time.Now()
	resp, err := inv.Sender.Send(ctx, session, req)
	if err != nil {
		return req, nil, err
	}
	log.Debug("round trip",
		zap.String("action", req.Action),
		zap.String("id", req.ID),
		zap.Bool("success", resp.Success),
		zap.Duration("latency", time.Since(start)))
	return req, resp, nil
}

func (inv *Invoker) headedError(err error) {
	if inv.OnHeadedError != nil {
		inv.OnHeadedError(err)
	}
}

func (inv *Invoker) logger() *zap.Logger {
	if inv.Logger == nil {
		return zap.NewNop()
	}
	return inv.Logger
}

// Env carries what Run needs from the process. Zero fields take defaults:
// the OS temp directory, config.Load, a real supervisor and client.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer

	// Color and ErrColor enable styling on Stdout and Stderr.
	Color    bool
	ErrColor bool

	Locator    *paths.Locator
	Config     *config.Config
	Supervisor Ensurer
	Sender     Sender
}

// DefaultEnv returns an Env bound to the process's standard streams, each
// coloured only when it is a terminal.
func DefaultEnv() Env {
	return Env{
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Color:    term.IsTerminal(int(os.Stdout.Fd())),
		ErrColor: term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// Run executes one invocation from raw arguments (program name excluded)
// and returns the process exit code: 0 for a successful round trip, 1 for
// anything else.
func Run(ctx context.Context, args []string, env Env) int {
	flags, rest := ParseArgs(args)
	if flags.Help || len(rest) == 0 {
		PrintHelp(env.Stdout)
		return 0
	}

	renderer := NewRenderer(env.Stdout, env.Stderr, flags.JSON, env.Color, env.ErrColor)
	logger := NewLogger(env.Stderr, flags.Debug)
	defer func() { _ = logger.Sync() }()

	cfg := env.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			renderer.Warn("Ignoring configuration file: " + err.Error())
		}
		if loaded == nil {
			loaded = config.Default()
		}
		cfg = loaded
	}

	locator := paths.NewLocator()
	if env.Locator != nil {
		locator = *env.Locator
	}
	session := flags.ResolveSession(cfg.Session)
	logger.Debug("resolved session",
		zap.String("session", session),
		zap.String("socket", locator.SocketPath(session)),
		zap.String("pid", locator.PIDPath(session)),
		zap.String("config", cfg.File))

	inv := &Invoker{
		Translator: NewTranslator(),
		Supervisor: env.Supervisor,
		Sender:     env.Sender,
		Logger:     logger,
		OnHeadedError: func(err error) {
			renderer.Warn("Could not switch to headed mode: " + err.Error())
		},
	}
	if inv.Supervisor == nil {
		inv.Supervisor = NewSupervisor(locator, cfg, WithLogger(logger))
	}
	if inv.Sender == nil {
		inv.Sender = NewClient(locator, cfg.Timeouts, logger)
	}

	_, resp, err := inv.Invoke(ctx, rest, session, flags)
	if err != nil {
		if IsKind(err, KindTranslate) {
			_ = renderer.UnknownCommand(rest[0])
		} else {
			_ = renderer.RenderError(err)
		}
		return 1
	}

	if err := renderer.Render(resp); err != nil {
		logger.Debug("render failed", zap.Error(err))
		return 1
	}
	if !resp.Success {
		return 1
	}
	return 0
}
