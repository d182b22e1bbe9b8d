// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/salesdash/rbridge/internal/issue"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.Dashboard.Port != 8000 {
		t.Errorf("expected default dashboard port 8000, got %d", cfg.Dashboard.Port)
	}
	if cfg.Dashboard.Prefix != "[shiny] " {
		t.Errorf("expected default prefix %q, got %q", "[shiny] ", cfg.Dashboard.Prefix)
	}
	if !cfg.Dashboard.VerifyPort {
		t.Error("expected port verification to be enabled by default")
	}
	if cfg.Dashboard.PTY {
		t.Error("expected pty mode to be disabled by default")
	}
	if cfg.ProjectRoot != "" {
		t.Errorf("expected empty project root, got %q", cfg.ProjectRoot)
	}
	if len(cfg.Watch.Patterns) == 0 {
		t.Error("expected default watch patterns")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	t.Parallel()

	cfg, path, err := NewProvider().LoadWithSource(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != "" {
		t.Errorf("expected no config file, got %q", path)
	}
	if cfg.Dashboard.Port != DefaultDashboardPort {
		t.Errorf("Dashboard.Port = %d, want %d", cfg.Dashboard.Port, DefaultDashboardPort)
	}
	if cfg.Dashboard.StopGrace != defaultStopGrace {
		t.Errorf("Dashboard.StopGrace = %v, want %v", cfg.Dashboard.StopGrace, defaultStopGrace)
	}
}

func TestLoad_CUEFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
project_root: "/srv/sales"
r: {
	home: "/opt/R/4.4"
}
dashboard: {
	port:           9000
	verify_timeout: "3s"
}
scripts: {
	explore: "scripts/alt_exploration.R"
}
ui: verbose: true
`)

	cfg, src, err := NewProvider().LoadWithSource(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if src != path {
		t.Errorf("source = %q, want %q", src, path)
	}
	if cfg.ProjectRoot != "/srv/sales" {
		t.Errorf("ProjectRoot = %q", cfg.ProjectRoot)
	}
	if cfg.R.Home != "/opt/R/4.4" {
		t.Errorf("R.Home = %q", cfg.R.Home)
	}
	if cfg.Dashboard.Port != 9000 {
		t.Errorf("Dashboard.Port = %d, want 9000", cfg.Dashboard.Port)
	}
	if cfg.Dashboard.VerifyTimeout != 3*time.Second {
		t.Errorf("Dashboard.VerifyTimeout = %v, want 3s", cfg.Dashboard.VerifyTimeout)
	}
	if cfg.Dashboard.Prefix != DefaultDashboardPrefix {
		t.Errorf("unset keys should keep defaults, got prefix %q", cfg.Dashboard.Prefix)
	}
	if cfg.Scripts["explore"] != "scripts/alt_exploration.R" {
		t.Errorf("Scripts[explore] = %q", cfg.Scripts["explore"])
	}
	if !cfg.UI.Verbose {
		t.Error("UI.Verbose should be true")
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "port out of range",
			content: "dashboard: port: 70000\n",
			want:    "dashboard.port",
		},
		{
			name:    "unknown field",
			content: "dashbaord: port: 8000\n",
			want:    "dashbaord",
		},
		{
			name:    "unknown script task",
			content: "scripts: deploy: \"deploy.R\"\n",
			want:    "deploy",
		},
		{
			name:    "bad duration",
			content: "watch: debounce: \"soon\"\n",
			want:    "watch.debounce",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeConfig(t, tt.content)
			_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
			if err == nil {
				t.Fatal("expected validation error")
			}

			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("expected *issue.ActionableError, got %T", err)
			}
			if ae.Issue != issue.ConfigLoadFailedId {
				t.Errorf("Issue = %d, want ConfigLoadFailedId", ae.Issue)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "missing.cue"),
	})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RBRIDGE_DASHBOARD_PORT", "8123")
	t.Setenv("RBRIDGE_R_RSCRIPT", "/usr/local/bin/Rscript")

	path := writeConfig(t, "dashboard: port: 9000\n")
	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Dashboard.Port != 8123 {
		t.Errorf("env should override file: Dashboard.Port = %d, want 8123", cfg.Dashboard.Port)
	}
	if cfg.R.Rscript != "/usr/local/bin/Rscript" {
		t.Errorf("R.Rscript = %q", cfg.R.Rscript)
	}
}

func TestLoad_EnvOverrideInvalid(t *testing.T) {
	t.Setenv("RBRIDGE_DASHBOARD_PORT", "0")

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err == nil {
		t.Fatal("expected validation error for port 0")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error should wrap ErrInvalidConfig, got %v", err)
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	original := expandEnv
	t.Cleanup(func() { expandEnv = original })
	expandEnv = func(name string) string {
		switch name {
		case "HOME":
			return "/home/analyst"
		case "R_ROOT":
			return "/opt/R"
		}
		return ""
	}

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/abs/path", "/abs/path"},
		{"~/projects/sales", "/home/analyst/projects/sales"},
		{"$R_ROOT/bin/Rscript", "/opt/R/bin/Rscript"},
		{"${R_ROOT}/lib", "/opt/R/lib"},
	}

	for _, tt := range tests {
		got, err := ExpandPath(tt.in)
		if err != nil {
			t.Errorf("ExpandPath(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateCUE_Loads(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Dashboard.Port = 8080
	cfg.Scripts["report"] = "scripts/report_v2.R"

	path := writeConfig(t, GenerateCUE(cfg))
	loaded, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("generated CUE does not load: %v", err)
	}
	if loaded.Dashboard.Port != 8080 {
		t.Errorf("Dashboard.Port = %d, want 8080", loaded.Dashboard.Port)
	}
	if loaded.Scripts["report"] != "scripts/report_v2.R" {
		t.Errorf("Scripts[report] = %q", loaded.Scripts["report"])
	}
	if loaded.Watch.Debounce != cfg.Watch.Debounce {
		t.Errorf("Watch.Debounce = %v, want %v", loaded.Watch.Debounce, cfg.Watch.Debounce)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Dashboard.Port = 0
	cfg.Scripts["explore"] = "   "

	err := cfg.Validate()
	var invalid *InvalidConfigError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidConfigError, got %T", err)
	}
	if len(invalid.FieldErrors) != 2 {
		t.Errorf("expected 2 field errors, got %d: %v", len(invalid.FieldErrors), invalid.FieldErrors)
	}
	if invalid.Error() != "invalid config: 2 field errors" {
		t.Errorf("Error() = %q", invalid.Error())
	}
}
