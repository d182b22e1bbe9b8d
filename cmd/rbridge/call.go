// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCallCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "call <expr>",
		Short: "Evaluate an R expression in the embedded session",
		Long: `Evaluate an R expression and print the converted result.

Expressions need an embedded R session. When rbridge runs R through Rscript
subprocesses this command fails with an unsupported-mode error.`,
		Args: cobra.ExactArgs(1),
		RunE: app.runE(flags, func(ctx context.Context, s *session, args []string) error {
			result, err := s.bridge.Call(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, result)
			return nil
		}),
	}
}
