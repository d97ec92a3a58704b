package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/subcommands"

	"dompet/internal/backend"
	"dompet/internal/config"
	"dompet/internal/core"
	"dompet/internal/history"
	apphttp "dompet/internal/http"
	"dompet/internal/log"
	"dompet/internal/render"
)

// Env is shared by every command. The app is opened on first use and
// loaded with a fresh snapshot.
type Env struct {
	Config *config.Config
	Logger *log.Logger
	Out    *Printer
	Open   func(ctx context.Context) (*backend.App, error)

	app *backend.App
}

// App returns the opened app, fetching the snapshot the first time.
func (e *Env) App(ctx context.Context) (*backend.App, error) {
	if e.app != nil {
		return e.app, nil
	}
	app, err := e.Open(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := app.Session.Refresh(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	e.app = app
	return app, nil
}

// Close releases the app if one was opened.
func (e *Env) Close() error {
	if e.app == nil {
		return nil
	}
	err := e.app.Close()
	e.app = nil
	return err
}

// Commands lists every dompet subcommand bound to env.
func Commands(env *Env) []subcommands.Command {
	return []subcommands.Command{
		&serveCmd{env: env},
		&viewCmd{env: env},
		&privacyCmd{env: env},
		&optimizeCmd{env: env},
		&addCmd{env: env},
		&transferCmd{env: env},
		&depositCmd{env: env},
		&budgetCmd{env: env},
		&goalCmd{env: env},
		&txCmd{env: env},
		&exportCmd{env: env},
		&feedbackCmd{env: env},
		&upgradeCmd{env: env},
		&resetCmd{env: env},
	}
}

// printViews prints the named views of the current frame.
func printViews(env *Env, app *backend.App, names ...render.Name) subcommands.ExitStatus {
	for _, n := range names {
		md, err := app.Session.Markdown(n)
		if err != nil {
			return env.Out.Fail(err)
		}
		env.Out.Markdown(md)
	}
	return subcommands.ExitSuccess
}

type serveCmd struct {
	env  *Env
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "Serve the dashboard over HTTP." }
func (*serveCmd) Usage() string {
	return `serve [-addr host:port]

Starts the web dashboard. The snapshot is loaded before listening; a failed
load is logged and retried on the first refresh.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "listen address (default :$PORT)")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	logger := c.env.Logger
	addr := c.addr
	if addr == "" {
		addr = ":" + c.env.Config.Port
	}

	app, err := c.env.Open(ctx)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	app.Session.Start(time.Minute)
	if _, err := app.Session.Refresh(ctx); err != nil {
		logger.Warn("Initial snapshot load failed", log.FieldError, err)
	}

	srv, err := apphttp.NewServer(addr, apphttp.Deps{
		Session: app.Session,
		Goals:   app.Goals,
		Entries: app.Entries,
	}, apphttp.Options{}, logger)
	if err != nil {
		_ = app.Close()
		return c.env.Out.Fail(err)
	}
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := app.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting dompet server", "addr", addr, "backend", c.env.Config.Backend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "addr", addr)
		return subcommands.ExitFailure
	}

	WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
	return subcommands.ExitSuccess
}

type viewCmd struct {
	env    *Env
	filter string
}

func (*viewCmd) Name() string     { return "view" }
func (*viewCmd) Synopsis() string { return "Print dashboard views." }
func (*viewCmd) Usage() string {
	return `view [-filter all|in|out] [dashboard|analysis|history|goals|advisory ...]

Fetches the latest snapshot and prints the named views, or every view when
none is given.
`
}

func (c *viewCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.filter, "filter", "", "history filter: all, in or out")
}

func (c *viewCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	names := render.Names
	if f.NArg() > 0 {
		names = nil
		for _, arg := range f.Args() {
			n := render.Name(strings.ToLower(arg))
			if !n.Valid() {
				fmt.Fprintf(c.env.Out.errOut, "unknown view %q\n", arg)
				return subcommands.ExitUsageError
			}
			names = append(names, n)
		}
	}
	filter, err := history.ParseFilter(c.filter)
	if err != nil {
		fmt.Fprintln(c.env.Out.errOut, err)
		return subcommands.ExitUsageError
	}

	app, err := c.env.App(ctx)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	app.Session.SetFilter(filter)
	return printViews(c.env, app, names...)
}

type privacyCmd struct {
	env *Env
}

func (*privacyCmd) Name() string     { return "privacy" }
func (*privacyCmd) Synopsis() string { return "Toggle masking of amounts." }
func (*privacyCmd) Usage() string {
	return `privacy

Flips the persisted privacy mode and prints the dashboard.
`
}

func (*privacyCmd) SetFlags(*flag.FlagSet) {}

func (c *privacyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := c.env.App(ctx)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	fr, err := app.Session.TogglePrivacy(ctx)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	if fr.Privacy {
		c.env.Out.Success("Privacy mode on")
	} else {
		c.env.Out.Success("Privacy mode off")
	}
	return printViews(c.env, app, render.Dashboard)
}

type optimizeCmd struct {
	env     *Env
	reveal  bool
	execute bool
}

func (*optimizeCmd) Name() string     { return "optimize" }
func (*optimizeCmd) Synopsis() string { return "Ask the advisor where to save." }
func (*optimizeCmd) Usage() string {
	return `optimize [-reveal] [-execute]

Requests a savings suggestion. With -reveal the suggested amount is shown
even in privacy mode; with -execute the suggested deposit is made.
`
}

func (c *optimizeCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.reveal, "reveal", false, "show the suggested amount")
	f.BoolVar(&c.execute, "execute", false, "deposit the suggested amount")
}

func (c *optimizeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := c.env.App(ctx)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	if _, err := app.Goals.Optimize(ctx); err != nil {
		printViews(c.env, app, render.Advisory)
		return c.env.Out.Fail(err)
	}
	if c.reveal && suggested(app) {
		if _, err := app.Goals.Reveal(); err != nil {
			return c.env.Out.Fail(err)
		}
	}
	if status := printViews(c.env, app, render.Advisory); status != subcommands.ExitSuccess {
		return status
	}
	if !c.execute || !suggested(app) {
		return subcommands.ExitSuccess
	}
	if _, err := app.Goals.Execute(ctx); err != nil {
		return c.env.Out.Fail(err)
	}
	c.env.Out.Success("Deposit saved")
	return printViews(c.env, app, render.Goals)
}

func suggested(app *backend.App) bool {
	in := app.Goals.Cycle()
	return in.Phase == core.PhaseSuggested && in.Advice.HasAction()
}
