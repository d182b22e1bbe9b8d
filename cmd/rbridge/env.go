// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/salesdash/rbridge/internal/bridge"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatTOML = "toml"
)

// envReport is the output of `rbridge env`.
type envReport struct {
	bridge.Runtime
	ConfigFile string `json:"config_file" toml:"config_file"`
	Version    string `json:"version" toml:"version"`
}

func newEnvCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Show the detected R runtime",
		Long: `Show the detected R runtime: execution mode, project root and the R and
Rscript executables with where each was found (config, env or path).`,
		Args: cobra.NoArgs,
		RunE: app.runE(flags, func(ctx context.Context, s *session, _ []string) error {
			switch format {
			case formatText, formatJSON, formatTOML:
			default:
				return fmt.Errorf("invalid --format %q (valid: %s, %s, %s)", format, formatText, formatJSON, formatTOML)
			}

			rt, err := s.bridge.Init(ctx)
			if err != nil {
				return err
			}
			report := envReport{Runtime: rt, ConfigFile: s.cfgPath, Version: getVersionString()}
			return writeEnvReport(app.stdout, report, format)
		}),
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or toml")
	return cmd
}

func writeEnvReport(w io.Writer, r envReport, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case formatTOML:
		return toml.NewEncoder(w).Encode(r)
	}

	fmt.Fprintln(w, TitleStyle.Render("R runtime"))
	fmt.Fprintln(w)
	row := func(key, value string) {
		if value == "" {
			value = SubtitleStyle.Render("(not set)")
		}
		fmt.Fprintf(w, "%s %s\n", KeyStyle.Render(fmt.Sprintf("%-13s", key+":")), value)
	}
	withSource := func(path string, src bridge.Source) string {
		if path == "" {
			return ""
		}
		return path + SubtitleStyle.Render(" ("+string(src)+")")
	}

	row("mode", string(r.Mode))
	row("project root", r.ProjectRoot)
	row("R_HOME", r.RHome)
	row("R", withSource(r.RExecutable, r.RSource))
	row("Rscript", withSource(r.RscriptExecutable, r.RscriptSource))
	if r.ConfigFile != "" {
		row("config file", r.ConfigFile)
	} else {
		row("config file", SubtitleStyle.Render("(using defaults)"))
	}
	row("version", r.Version)
	return nil
}
