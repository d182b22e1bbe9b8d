// SPDX-License-Identifier: MPL-2.0

package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/salesdash/rbridge/internal/bridge"
	"github.com/salesdash/rbridge/internal/config"

	"github.com/charmbracelet/log"
)

// ErrBackgroundTask is returned when Run is asked to run the dashboard,
// which must be started with StartDashboard.
var ErrBackgroundTask = errors.New("background task cannot be run to completion")

type (
	// Bridge is the subset of *bridge.Bridge the runner drives.
	Bridge interface {
		RunScript(ctx context.Context, path string) (*bridge.Invocation, error)
		StartDashboard(ctx context.Context, appPath string, port int) (*bridge.Dashboard, error)
	}

	// Runner executes tasks through a Bridge and prints their completion
	// messages.
	Runner struct {
		bridge Bridge
		cfg    *config.Config
		out    io.Writer
		logger *log.Logger
	}

	// StepError reports which pipeline step failed.
	StepError struct {
		Step Name
		Err  error
	}
)

// NewRunner creates a Runner. cfg supplies script overrides and the default
// dashboard port; nil uses the built-in defaults.
func NewRunner(b Bridge, cfg *config.Config, out io.Writer, logger *log.Logger) *Runner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{bridge: b, cfg: cfg, out: out, logger: logger}
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("pipeline step %s: %v", e.Step, e.Err)
}

// Unwrap returns the step's error.
func (e *StepError) Unwrap() error { return e.Err }

// Run runs a script task to completion and prints its completion message.
func (r *Runner) Run(ctx context.Context, name Name) (*bridge.Invocation, error) {
	t, ok := Lookup(name)
	if !ok {
		return nil, &InvalidNameError{Value: name}
	}
	if t.Background {
		return nil, fmt.Errorf("%s: %w", name, ErrBackgroundTask)
	}

	script := t.ResolveScript(r.cfg)
	r.logger.Debug("running task", "task", name, "script", script)

	inv, err := r.bridge.RunScript(ctx, script)
	if err != nil {
		return inv, err
	}
	fmt.Fprintln(r.out, t.Done)
	return inv, nil
}

// StartDashboard launches the dashboard task. A zero port uses the
// configured dashboard port.
func (r *Runner) StartDashboard(ctx context.Context, port int) (*bridge.Dashboard, error) {
	t, _ := Lookup(Dashboard)
	if port == 0 {
		port = r.cfg.Dashboard.Port
	}

	d, err := r.bridge.StartDashboard(ctx, t.ResolveScript(r.cfg), port)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(r.out, t.Done)
	return d, nil
}

// Pipeline runs PipelineOrder in sequence and stops at the first failure.
// It returns the invocations that completed.
func (r *Runner) Pipeline(ctx context.Context) ([]*bridge.Invocation, error) {
	done := make([]*bridge.Invocation, 0, len(PipelineOrder))
	for i, name := range PipelineOrder {
		if err := ctx.Err(); err != nil {
			return done, &StepError{Step: name, Err: err}
		}
		r.logger.Info("pipeline step", "step", i+1, "of", len(PipelineOrder), "task", name)

		inv, err := r.Run(ctx, name)
		if err != nil {
			return done, &StepError{Step: name, Err: err}
		}
		done = append(done, inv)
	}
	return done, nil
}
