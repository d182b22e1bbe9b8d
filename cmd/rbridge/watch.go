// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/salesdash/rbridge/internal/app/tasks"
	"github.com/salesdash/rbridge/internal/issue"
	"github.com/salesdash/rbridge/internal/watch"

	"github.com/spf13/cobra"
)

func newWatchCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var clearScreen bool
	cmd := &cobra.Command{
		Use:   "watch <task>",
		Short: "Run a task, then re-run it whenever project files change",
		Long: `Run a task once, then re-run it whenever files matching watch.patterns
change below the project root. Changes are debounced (watch.debounce) and a
change made while the task runs triggers one more run after it finishes.
Script outputs such as reports/ and visualizations/*.png are ignored.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: scriptTaskNames(),
		RunE: app.runE(flags, func(ctx context.Context, s *session, args []string) error {
			return runWatch(ctx, app, s, tasks.Name(args[0]), clearScreen)
		}),
	}
	cmd.Flags().BoolVar(&clearScreen, "clear", false, "clear the terminal before each run")
	return cmd
}

func runWatch(ctx context.Context, app *App, s *session, name tasks.Name, clearScreen bool) error {
	if ok, errs := name.IsValid(); !ok {
		return errors.Join(errs...)
	}
	t, _ := tasks.Lookup(name)
	if t.Background {
		return fmt.Errorf("cannot watch %s: %w", name, tasks.ErrBackgroundTask)
	}

	arrow := ArrowStyle.Render("→")
	run := func(ctx context.Context, changed []string) error {
		if changed == nil {
			fmt.Fprintf(app.stdout, "%s Initial run of '%s'\n", arrow, name)
		} else {
			fmt.Fprintf(app.stdout, "%s %d change(s) detected, re-running '%s'\n", arrow, len(changed), name)
		}
		if _, err := s.runner.Run(ctx, name); err != nil {
			renderError(app.stderr, err, s.verbose)
		}
		fmt.Fprintf(app.stdout, "\n%s Watching for changes (Ctrl+C to stop)...\n\n", arrow)
		return nil
	}

	w, err := watch.New(watch.Config{
		Patterns:    s.cfg.Watch.Patterns,
		Ignore:      s.cfg.Watch.Ignore,
		Debounce:    s.cfg.Watch.Debounce,
		ClearScreen: clearScreen,
		BaseDir:     s.bridge.ProjectRoot(),
		Immediate:   true,
		OnChange:    run,
		Stdout:      app.stdout,
		Logger:      s.logger,
	})
	if err != nil {
		return issue.WrapWithOperation(err, "start watcher")
	}
	if err := w.Run(ctx); err != nil {
		return issue.WrapWithOperation(err, "watch "+s.bridge.ProjectRoot())
	}
	return nil
}

func scriptTaskNames() []string {
	var names []string
	for _, t := range tasks.All() {
		if !t.Background {
			names = append(names, t.Name.String())
		}
	}
	return names
}
