// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

const (
	groupTasks = "tasks"
	groupTools = "tools"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every command.
type rootFlagValues struct {
	verbose     bool
	configPath  string
	projectRoot string
}

// NewRootCommand builds the rbridge command tree.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "rbridge",
		Short: "Run the sales analytics R scripts and dashboard",
		Long: TitleStyle.Render("rbridge") + SubtitleStyle.Render(" - run the sales analytics R scripts and dashboard") + `

rbridge locates an R installation (R_HOME, then PATH) and runs the
project's analytics scripts with Rscript from the project root. The
Shiny dashboard runs in the background with its output relayed.

` + SubtitleStyle.Render("Examples:") + `
  rbridge create-dataset      Generate the sales dataset
  rbridge pipeline            Dataset, exploration, report and charts in order
  rbridge dashboard --open    Launch the Shiny app and open a browser
  rbridge watch report        Re-run the report when R sources change
  rbridge env                 Show the detected R runtime`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is the rbridge config dir, then ./config.cue)")
	rootCmd.PersistentFlags().StringVarP(&flags.projectRoot, "project-root", "C", "", "directory scripts are resolved against (default is the current directory)")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupTasks, Title: "Analytics tasks:"},
		&cobra.Group{ID: groupTools, Title: "Runtime and configuration:"},
	)

	for _, c := range newTaskCommands(app, flags) {
		c.GroupID = groupTasks
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{
		newEnvCommand(app, flags),
		newCallCommand(app, flags),
		newWatchCommand(app, flags),
		newConfigCommand(app, flags),
	} {
		c.GroupID = groupTools
		rootCmd.AddCommand(c)
	}

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process with the command's status.
// SIGINT and SIGTERM cancel the command context, which stops a running
// dashboard or watch loop.
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
