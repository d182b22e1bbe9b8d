// SPDX-License-Identifier: MPL-2.0

package bridge

import (
	"context"
	"io"
	"os"
	"os/exec"
	goruntime "runtime"
	"time"

	"github.com/salesdash/rbridge/internal/config"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

type (
	// Embedder is an in-process R session. When one is configured and
	// reports itself available, the bridge runs in embedded mode.
	Embedder interface {
		// Available reports whether the session can be used.
		Available() bool
		// Source evaluates the script at path with workDir as the R working
		// directory.
		Source(ctx context.Context, path, workDir string) error
		// Eval evaluates expr and returns its converted result.
		Eval(ctx context.Context, expr string) (any, error)
	}

	// Clock supplies timestamps for invocation records.
	Clock interface {
		Now() time.Time
		Since(t time.Time) time.Duration
	}

	// DashboardOptions configures the background dashboard process.
	DashboardOptions struct {
		// Prefix is written before every relayed line.
		Prefix string
		// PTY attaches the child to a pseudo-terminal where supported.
		PTY bool
		// VerifyPort checks the child's listening sockets after launch.
		VerifyPort bool
		// VerifyTimeout bounds port verification.
		VerifyTimeout time.Duration
		// StopGrace is the delay between the terminate and kill signals.
		StopGrace time.Duration
	}

	// Options configures a Bridge. The zero value discovers R from the
	// environment and resolves scripts against the working directory.
	Options struct {
		// ProjectRoot is the directory scripts are resolved against.
		ProjectRoot string
		// RHome overrides the R_HOME environment variable.
		RHome string
		// RExecutable and Rscript are explicit paths tried before R_HOME and PATH.
		RExecutable string
		Rscript     string

		Dashboard DashboardOptions

		Embedder Embedder
		Logger   *log.Logger
		Stdout   io.Writer
		Stderr   io.Writer
		Clock    Clock

		// OS hooks. Nil values use the real operating system.
		FS       afero.Fs
		LookPath func(file string) (string, error)
		Getenv   func(key string) string
		GOOS     string
	}

	realClock struct{}
)

// OptionsFromConfig maps loaded configuration onto bridge options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ProjectRoot: cfg.ProjectRoot,
		RHome:       cfg.R.Home,
		RExecutable: cfg.R.Executable,
		Rscript:     cfg.R.Rscript,
		Dashboard: DashboardOptions{
			Prefix:        cfg.Dashboard.Prefix,
			PTY:           cfg.Dashboard.PTY,
			VerifyPort:    cfg.Dashboard.VerifyPort,
			VerifyTimeout: cfg.Dashboard.VerifyTimeout,
			StopGrace:     cfg.Dashboard.StopGrace,
		},
	}
}

func (realClock) Now() time.Time                  { return time.Now() }
func (realClock) Since(t time.Time) time.Duration { return time.Since(t) }

func (o Options) withDefaults() Options {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(o.Stderr, log.Options{Prefix: "rbridge", Level: log.WarnLevel})
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
	if o.FS == nil {
		o.FS = afero.NewOsFs()
	}
	if o.LookPath == nil {
		o.LookPath = exec.LookPath
	}
	if o.Getenv == nil {
		o.Getenv = os.Getenv
	}
	if o.GOOS == "" {
		o.GOOS = goruntime.GOOS
	}
	if o.Dashboard.Prefix == "" {
		o.Dashboard.Prefix = config.DefaultDashboardPrefix
	}
	if o.Dashboard.StopGrace <= 0 {
		o.Dashboard.StopGrace = defaultStopGrace
	}
	if o.Dashboard.VerifyTimeout <= 0 {
		o.Dashboard.VerifyTimeout = defaultVerifyTimeout
	}
	return o
}
