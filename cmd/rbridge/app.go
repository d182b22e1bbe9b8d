// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/salesdash/rbridge/internal/app/tasks"
	"github.com/salesdash/rbridge/internal/bridge"
	"github.com/salesdash/rbridge/internal/config"

	"github.com/charmbracelet/log"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives an App and builds a per-invocation session from it.
	App struct {
		Config          config.SourcedProvider
		configureBridge func(*bridge.Options)
		openBrowser     func(url string) error
		stdout          io.Writer
		stderr          io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.SourcedProvider
		// ConfigureBridge adjusts bridge options after they are derived from
		// configuration and flags.
		ConfigureBridge func(*bridge.Options)
		OpenBrowser     func(url string) error
		Stdout          io.Writer
		Stderr          io.Writer
	}

	// session is the state of a single command invocation.
	session struct {
		cfg     *config.Config
		cfgPath string
		verbose bool
		logger  *log.Logger
		bridge  *bridge.Bridge
		runner  *tasks.Runner
	}

	sessionFunc func(ctx context.Context, s *session, args []string) error
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.OpenBrowser == nil {
		deps.OpenBrowser = browser.OpenURL
	}

	return &App{
		Config:          deps.Config,
		configureBridge: deps.ConfigureBridge,
		openBrowser:     deps.OpenBrowser,
		stdout:          deps.Stdout,
		stderr:          deps.Stderr,
	}, nil
}

// loadConfig loads configuration honoring --config.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (*config.Config, string, error) {
	return a.Config.LoadWithSource(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
}

// newSession loads configuration and builds the bridge and task runner for
// one command invocation. No runtime probing happens here.
func (a *App) newSession(ctx context.Context, flags *rootFlagValues) (*session, error) {
	cfg, cfgPath, err := a.loadConfig(ctx, flags)
	if err != nil {
		return nil, err
	}

	verbose := flags.verbose || cfg.UI.Verbose
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(a.stderr, log.Options{
		Prefix:          "rbridge",
		Level:           level,
		ReportTimestamp: verbose,
	})

	opts := bridge.OptionsFromConfig(cfg)
	if flags.projectRoot != "" {
		opts.ProjectRoot = flags.projectRoot
	}
	opts.Logger = logger
	opts.Stdout = a.stdout
	opts.Stderr = a.stderr
	if a.configureBridge != nil {
		a.configureBridge(&opts)
	}

	b := bridge.New(opts)
	return &session{
		cfg:     cfg,
		cfgPath: cfgPath,
		verbose: verbose,
		logger:  logger,
		bridge:  b,
		runner:  tasks.NewRunner(b, cfg, a.stdout, logger),
	}, nil
}

// runE adapts fn to a cobra RunE. Failures are rendered here and returned as
// an ExitError carrying the process status, so the caller only sets the exit
// code.
func (a *App) runE(flags *rootFlagValues, fn sessionFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := a.newSession(cmd.Context(), flags)
		if err == nil {
			err = fn(cmd.Context(), s, args)
		}
		if err == nil {
			return nil
		}

		verbose := flags.verbose || (s != nil && s.verbose)
		renderError(a.stderr, err, verbose)
		return &ExitError{Code: exitCodeFor(err)}
	}
}
