// marquee - a terminal client for the Marquee streaming service.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/jeranaias/marquee-tui/internal/cli"
	"github.com/jeranaias/marquee-tui/internal/config"
	"github.com/jeranaias/marquee-tui/internal/identity"
	"github.com/jeranaias/marquee-tui/internal/logging"
	"github.com/jeranaias/marquee-tui/internal/session"
	"github.com/jeranaias/marquee-tui/internal/storage"
	"github.com/jeranaias/marquee-tui/internal/ui/app"
	"github.com/jeranaias/marquee-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args, err := cli.Parse(os.Args[1:])
	if err != nil {
		fail(err, args.JSON)
	}
	if cmd == cli.CmdHelp {
		cli.PrintUsage(os.Stdout)
		return
	}

	if err := run(cmd, args); err != nil {
		fail(err, args.JSON)
	}
}

func fail(err error, jsonMode bool) {
	cli.DisplayError(os.Stderr, err, jsonMode)
	os.Exit(cli.GetExitCode(err))
}

// services holds everything built from the configuration.
type services struct {
	cfg      *config.Config
	dir      string
	fs       afero.Fs
	log      zerolog.Logger
	store    storage.Backend
	identity *identity.Client
	closers  []func() error
}

func (r *services) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i]()
	}
}

func setup(cmd cli.Command, args cli.Args) (*services, error) {
	fs := afero.NewOsFs()
	cfg, err := config.LoadWith(config.Options{Fs: fs, Path: args.ConfigPath})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cli.ErrConfig, err)
	}
	if err := cli.ApplyOverrides(cfg, args); err != nil {
		return nil, err
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cli.ErrConfig, err)
	}
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	rt := &services{cfg: cfg, dir: dir, fs: fs}

	// The TUI owns the terminal; the console copy is for one-shot commands.
	logOpts := logging.FromConfig(cfg.Log, dir, args.Verbose)
	if args.Verbose && cmd != cli.CmdTUI {
		logOpts.Console = os.Stderr
	}
	log, closeLog, err := logging.Init("marquee", logOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cli.ErrConfig, err)
	}
	rt.log = log
	rt.closers = append(rt.closers, closeLog)

	path := cfg.Storage.Path
	if path == "" {
		path = storage.DefaultPath(cfg.Storage.Backend, dir)
	}
	store, err := storage.Open(storage.Options{Backend: cfg.Storage.Backend, Path: path, Fs: fs})
	if err != nil {
		rt.Close()
		return nil, cli.NewCommandError(cmd.String(), "open storage", path, err)
	}
	rt.store = store
	rt.closers = append(rt.closers, store.Close)

	// Each component tags its own log lines; pass the root logger.
	rt.identity = identity.NewClient(cfg.Identity.BaseURL).
		WithTimeout(cfg.Identity.Timeout()).
		WithMaxRetries(cfg.Identity.MaxRetries).
		WithRateLimit(cfg.Identity.RequestsPerSecond).
		WithLogger(log)

	log.Debug().
		Str("command", cmd.String()).
		Str("server", cfg.Identity.BaseURL).
		Str("storage", cfg.Storage.Backend).
		Msg("starting")
	return rt, nil
}

func run(cmd cli.Command, args cli.Args) error {
	rt, err := setup(cmd, args)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cmd == cli.CmdTUI {
		return runTUI(ctx, rt)
	}
	return cli.Run(ctx, cmd, args, cli.Env{
		Config:     rt.cfg,
		ConfigDir:  rt.dir,
		ConfigFile: args.ConfigPath,
		Fs:         rt.fs,
		Store:      rt.store,
		Identity:   rt.identity,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Log:        rt.log,
	})
}

// runTUI starts the TUI interface.
func runTUI(ctx context.Context, rt *services) error {
	if err := cli.RequiresTTY("start the terminal UI"); err != nil {
		return err
	}

	var changes <-chan storage.Change
	if watchable, ok := rt.store.(storage.Watchable); ok && rt.cfg.Storage.Watch {
		w, err := storage.NewWatcher(watchable, storage.DefaultDebounce, rt.log)
		if err != nil {
			rt.log.Warn().Err(err).Msg("credential watcher disabled")
		} else if err := w.Watch(ctx); err != nil {
			rt.log.Warn().Err(err).Msg("credential watcher disabled")
			_ = w.Close()
		} else {
			defer w.Close()
			changes = w.Changes()
		}
	}

	ctrl := session.New(rt.store, rt.identity,
		session.WithLogger(rt.log),
		session.WithRequestTimeout(rt.cfg.Identity.Timeout()),
	)
	defer ctrl.Close()

	splash := rt.cfg.UI.SplashDuration()
	if !rt.cfg.UI.Splash {
		splash = 0
	}

	m := app.New(app.Options{
		Controller: ctrl,
		Identity:   rt.identity,
		Theme:      styles.NewTheme(rt.cfg.UI.Theme),
		Version:    Version,
		Splash:     splash,
		Changes:    changes,
		Logger:     rt.log,
	})
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}
