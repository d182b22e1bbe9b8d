// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/salesdash/rbridge/internal/app/tasks"

	"github.com/spf13/cobra"
)

// newTaskCommands creates one command per script task, plus the dashboard
// and pipeline commands.
func newTaskCommands(app *App, flags *rootFlagValues) []*cobra.Command {
	var cmds []*cobra.Command
	for _, t := range tasks.All() {
		if t.Background {
			cmds = append(cmds, newDashboardCommand(app, flags, t))
			continue
		}
		cmds = append(cmds, &cobra.Command{
			Use:   t.Name.String(),
			Short: t.Short,
			Long:  fmt.Sprintf("%s.\n\nRuns %s with Rscript from the project root.", t.Short, t.Script),
			Args:  cobra.NoArgs,
			RunE: app.runE(flags, func(ctx context.Context, s *session, _ []string) error {
				_, err := s.runner.Run(ctx, t.Name)
				return err
			}),
		})
	}

	steps := make([]string, 0, len(tasks.PipelineOrder))
	for _, name := range tasks.PipelineOrder {
		steps = append(steps, name.String())
	}
	cmds = append(cmds, &cobra.Command{
		Use:   "pipeline",
		Short: "Run the analytics scripts in order",
		Long: fmt.Sprintf(`Run the analytics scripts in order: %s.

The pipeline stops at the first failing step.`, strings.Join(steps, ", ")),
		Args: cobra.NoArgs,
		RunE: app.runE(flags, runPipeline(app)),
	})

	return cmds
}

func runPipeline(app *App) sessionFunc {
	return func(ctx context.Context, s *session, _ []string) error {
		done, err := s.runner.Pipeline(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.stdout, "%s Pipeline complete (%d steps)\n", SuccessStyle.Render("✓"), len(done))
		return nil
	}
}
