// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/salesdash/rbridge/internal/app/tasks"

	"github.com/spf13/cobra"
)

type dashboardFlagValues struct {
	port int
	open bool
}

func newDashboardCommand(app *App, flags *rootFlagValues, t tasks.Task) *cobra.Command {
	dashFlags := &dashboardFlagValues{}
	cmd := &cobra.Command{
		Use:   t.Name.String(),
		Short: t.Short,
		Long: fmt.Sprintf(`%s.

Starts %s with Rscript in the background and relays its output. The port is
only advertised: the app decides which port it binds. Press Ctrl+C to stop.`, t.Short, t.Script),
		Args: cobra.NoArgs,
		RunE: app.runE(flags, func(ctx context.Context, s *session, _ []string) error {
			return runDashboard(ctx, app, s, dashFlags)
		}),
	}
	cmd.Flags().IntVarP(&dashFlags.port, "port", "p", 0, "port advertised to the user (default from config)")
	cmd.Flags().BoolVar(&dashFlags.open, "open", false, "open the dashboard URL in a browser")
	return cmd
}

// runDashboard starts the dashboard and blocks until ctx is cancelled or the
// app exits on its own. ctx is cancelled by SIGINT or SIGTERM.
func runDashboard(ctx context.Context, app *App, s *session, flags *dashboardFlagValues) error {
	if flags.port != 0 && (flags.port < 1 || flags.port > 65535) {
		return fmt.Errorf("invalid --port %d (valid: 1-65535)", flags.port)
	}

	d, err := s.runner.StartDashboard(ctx, flags.port)
	if err != nil {
		return err
	}

	if flags.open {
		if err := app.openBrowser(d.URL); err != nil {
			s.logger.Warn("could not open browser", "url", d.URL, "error", err)
		}
	}

	_, waitErr := d.Wait(ctx)
	// Stop also waits for the relay to drain after a natural exit.
	exit := d.Stop()
	s.logger.Debug("dashboard finished", "state", d.State(), "exit_code", exit.ExitCode, "stopped", exit.Stopped)

	switch {
	case ctx.Err() != nil || exit.Stopped:
		fmt.Fprintln(app.stdout, "Exiting.")
		return nil
	case waitErr != nil:
		return fmt.Errorf("dashboard %s: %w", d.App, waitErr)
	case exit.ExitCode > 0:
		// The bridge already reported the exit code.
		return &ExitError{Code: exit.ExitCode}
	case exit.ExitCode < 0:
		return &ExitError{Code: 1, Err: fmt.Errorf("dashboard %s was killed by a signal", d.App)}
	default:
		return nil
	}
}
