// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/salesdash/rbridge/internal/config"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

// newConfigCommand creates the `rbridge config` command tree.
func newConfigCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage rbridge configuration",
		Long: `Manage rbridge configuration.

Configuration is read from --config, then config.cue in:
  - Linux: ~/.config/rbridge/
  - macOS: ~/Library/Application Support/rbridge/
  - Windows: %APPDATA%\rbridge\
and finally ./config.cue. RBRIDGE_* environment variables override file
values, e.g. RBRIDGE_DASHBOARD_PORT=8080.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.handleConfigErr(flags, showConfig(cmd.Context(), app, flags))
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return app.handleConfigErr(flags, fmt.Errorf("failed to create config: %w", err))
			}
			fmt.Fprintf(app.stdout, "%s Configuration file at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return app.handleConfigErr(flags, err)
			}
			path, _ := config.ConfigFilePath()
			fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
			fmt.Fprintf(app.stdout, "Config file: %s\n", path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return app.handleConfigErr(flags, err)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

// handleConfigErr renders err like runE does for commands that do not need a
// bridge session.
func (a *App) handleConfigErr(flags *rootFlagValues, err error) error {
	if err == nil {
		return nil
	}
	renderError(a.stderr, err, flags.verbose)
	return &ExitError{Code: exitCodeFor(err)}
}

func showConfig(ctx context.Context, app *App, flags *rootFlagValues) error {
	cfg, cfgPath, err := app.loadConfig(ctx, flags)
	if err != nil {
		return err
	}

	w := app.stdout
	key := KeyStyle.Render
	value := SuccessStyle.Render
	orDefault := func(s, fallback string) string {
		if s == "" {
			return SubtitleStyle.Render(fallback)
		}
		return value(s)
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s: %s\n", key("Config file"), orDefault(cfgPath, "(using defaults)"))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", key("project_root"), orDefault(cfg.ProjectRoot, "(current directory)"))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", key("r"))
	fmt.Fprintf(w, "  home: %s\n", orDefault(cfg.R.Home, "(from R_HOME)"))
	fmt.Fprintf(w, "  executable: %s\n", orDefault(cfg.R.Executable, "(discovered)"))
	fmt.Fprintf(w, "  rscript: %s\n", orDefault(cfg.R.Rscript, "(discovered)"))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", key("dashboard"))
	fmt.Fprintf(w, "  port: %s\n", value(fmt.Sprint(cfg.Dashboard.Port)))
	fmt.Fprintf(w, "  prefix: %s\n", value(fmt.Sprintf("%q", cfg.Dashboard.Prefix)))
	fmt.Fprintf(w, "  pty: %s\n", value(fmt.Sprint(cfg.Dashboard.PTY)))
	fmt.Fprintf(w, "  verify_port: %s\n", value(fmt.Sprint(cfg.Dashboard.VerifyPort)))
	fmt.Fprintf(w, "  verify_timeout: %s\n", value(cfg.Dashboard.VerifyTimeout.String()))
	fmt.Fprintf(w, "  stop_grace: %s\n", value(cfg.Dashboard.StopGrace.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", key("scripts"))
	if len(cfg.Scripts) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(no overrides)"))
	} else {
		names := make([]string, 0, len(cfg.Scripts))
		for name := range cfg.Scripts {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %s\n", name, value(cfg.Scripts[name]))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", key("watch"))
	fmt.Fprintf(w, "  patterns: %s\n", value(fmt.Sprint(cfg.Watch.Patterns)))
	if len(cfg.Watch.Ignore) > 0 {
		fmt.Fprintf(w, "  ignore: %s\n", value(fmt.Sprint(cfg.Watch.Ignore)))
	}
	fmt.Fprintf(w, "  debounce: %s\n", value(cfg.Watch.Debounce.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", key("ui"))
	fmt.Fprintf(w, "  verbose: %s\n", value(fmt.Sprint(cfg.UI.Verbose)))

	return nil
}
