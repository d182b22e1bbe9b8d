// SPDX-License-Identifier: MPL-2.0

package tasks

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/salesdash/rbridge/internal/bridge"
	"github.com/salesdash/rbridge/internal/config"
)

type fakeBridge struct {
	failOn    map[string]error
	scripts   []string
	dashApp   string
	dashPort  int
	dashCalls int
}

func (f *fakeBridge) RunScript(_ context.Context, path string) (*bridge.Invocation, error) {
	f.scripts = append(f.scripts, path)
	if err := f.failOn[path]; err != nil {
		return nil, err
	}
	return &bridge.Invocation{Script: path}, nil
}

func (f *fakeBridge) StartDashboard(_ context.Context, app string, port int) (*bridge.Dashboard, error) {
	f.dashCalls++
	f.dashApp, f.dashPort = app, port
	if err := f.failOn[app]; err != nil {
		return nil, err
	}
	return nil, nil
}

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   Name
		script string
		done   string
	}{
		{InstallPackages, "scripts/install_r_packages.R", "R packages installation script executed."},
		{CreateDataset, "scripts/create_dataset.R", "create_dataset.R executed."},
		{Explore, "scripts/data_exploration.R", "data_exploration.R executed. Processed file: data/sales_data_processed.rds"},
		{Report, "scripts/generate_report.R", "generate_report.R executed. Report at reports/Sales_Analytics_Report.txt"},
		{Visualize, "visualizations/generate_visualizations.R", "Visualization script executed. See visualizations/*.png"},
		{Dashboard, "dashboard/app.R", "Shiny app launch initiated. Press Ctrl+C to exit."},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			t.Parallel()

			task, ok := Lookup(tt.name)
			if !ok {
				t.Fatalf("Lookup(%q) not found", tt.name)
			}
			if task.Script != tt.script {
				t.Errorf("Script = %q, want %q", task.Script, tt.script)
			}
			if task.Done != tt.done {
				t.Errorf("Done = %q, want %q", task.Done, tt.done)
			}
			if task.Background != (tt.name == Dashboard) {
				t.Errorf("Background = %v", task.Background)
			}
		})
	}

	if len(All()) != len(tests) {
		t.Errorf("All() has %d tasks, want %d", len(All()), len(tests))
	}
}

func TestName_IsValid(t *testing.T) {
	t.Parallel()

	if ok, errs := Explore.IsValid(); !ok || errs != nil {
		t.Errorf("Explore.IsValid() = %v, %v", ok, errs)
	}

	ok, errs := Name("deploy").IsValid()
	if ok || len(errs) != 1 {
		t.Fatalf("IsValid() = %v, %v", ok, errs)
	}
	if !errors.Is(errs[0], ErrInvalidName) {
		t.Errorf("error should wrap ErrInvalidName: %v", errs[0])
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	t.Parallel()

	all := All()
	all[0].Script = "mutated.R"
	if task, _ := Lookup(all[0].Name); task.Script == "mutated.R" {
		t.Error("All() must not expose the task table")
	}
}

func TestResolveScript(t *testing.T) {
	t.Parallel()

	task, _ := Lookup(Report)
	cfg := config.DefaultConfig()

	if got := task.ResolveScript(nil); got != task.Script {
		t.Errorf("nil config: got %q", got)
	}
	if got := task.ResolveScript(cfg); got != task.Script {
		t.Errorf("no override: got %q", got)
	}
	cfg.Scripts["report"] = "scripts/report_v2.R"
	if got := task.ResolveScript(cfg); got != "scripts/report_v2.R" {
		t.Errorf("override: got %q", got)
	}
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	t.Run("success prints completion message", func(t *testing.T) {
		t.Parallel()

		fb := &fakeBridge{}
		var out bytes.Buffer
		r := NewRunner(fb, nil, &out, nil)

		if _, err := r.Run(context.Background(), CreateDataset); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !slices.Equal(fb.scripts, []string{"scripts/create_dataset.R"}) {
			t.Errorf("scripts = %v", fb.scripts)
		}
		if out.String() != "create_dataset.R executed.\n" {
			t.Errorf("out = %q", out.String())
		}
	})

	t.Run("failure prints nothing", func(t *testing.T) {
		t.Parallel()

		scriptErr := &bridge.ExecutionError{ExitCode: 1}
		fb := &fakeBridge{failOn: map[string]error{"scripts/generate_report.R": scriptErr}}
		var out bytes.Buffer
		r := NewRunner(fb, nil, &out, nil)

		_, err := r.Run(context.Background(), Report)
		if !errors.Is(err, bridge.ErrScriptFailed) {
			t.Fatalf("Run() error = %v, want ErrScriptFailed", err)
		}
		if out.Len() != 0 {
			t.Errorf("out = %q, want empty", out.String())
		}
	})

	t.Run("unknown task", func(t *testing.T) {
		t.Parallel()

		r := NewRunner(&fakeBridge{}, nil, &bytes.Buffer{}, nil)
		if _, err := r.Run(context.Background(), "deploy"); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Run() error = %v, want ErrInvalidName", err)
		}
	})

	t.Run("dashboard is not a script task", func(t *testing.T) {
		t.Parallel()

		fb := &fakeBridge{}
		r := NewRunner(fb, nil, &bytes.Buffer{}, nil)
		if _, err := r.Run(context.Background(), Dashboard); !errors.Is(err, ErrBackgroundTask) {
			t.Errorf("Run() error = %v, want ErrBackgroundTask", err)
		}
		if len(fb.scripts) != 0 || fb.dashCalls != 0 {
			t.Error("bridge must not be called")
		}
	})

	t.Run("configured script override", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		cfg.Scripts["visualize"] = "viz/plots.R"
		fb := &fakeBridge{}
		r := NewRunner(fb, cfg, &bytes.Buffer{}, nil)

		if _, err := r.Run(context.Background(), Visualize); err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(fb.scripts, []string{"viz/plots.R"}) {
			t.Errorf("scripts = %v", fb.scripts)
		}
	})
}

func TestRunner_StartDashboard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		port     int
		cfgPort  int
		wantPort int
	}{
		{"configured default", 0, 8000, 8000},
		{"configured custom", 0, 3838, 3838},
		{"explicit port wins", 9000, 3838, 9000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			cfg.Dashboard.Port = tt.cfgPort
			fb := &fakeBridge{}
			var out bytes.Buffer
			r := NewRunner(fb, cfg, &out, nil)

			if _, err := r.StartDashboard(context.Background(), tt.port); err != nil {
				t.Fatalf("StartDashboard() error = %v", err)
			}
			if fb.dashApp != "dashboard/app.R" || fb.dashPort != tt.wantPort {
				t.Errorf("started %q on %d, want dashboard/app.R on %d", fb.dashApp, fb.dashPort, tt.wantPort)
			}
			if out.String() != "Shiny app launch initiated. Press Ctrl+C to exit.\n" {
				t.Errorf("out = %q", out.String())
			}
		})
	}
}

func TestRunner_Pipeline(t *testing.T) {
	t.Parallel()

	t.Run("runs every step in order", func(t *testing.T) {
		t.Parallel()

		fb := &fakeBridge{}
		var out bytes.Buffer
		r := NewRunner(fb, nil, &out, nil)

		done, err := r.Pipeline(context.Background())
		if err != nil {
			t.Fatalf("Pipeline() error = %v", err)
		}
		want := []string{
			"scripts/create_dataset.R",
			"scripts/data_exploration.R",
			"scripts/generate_report.R",
			"visualizations/generate_visualizations.R",
		}
		if !slices.Equal(fb.scripts, want) {
			t.Errorf("scripts = %v, want %v", fb.scripts, want)
		}
		if len(done) != 4 {
			t.Errorf("completed %d steps, want 4", len(done))
		}
	})

	t.Run("stops at first failure", func(t *testing.T) {
		t.Parallel()

		fb := &fakeBridge{failOn: map[string]error{"scripts/data_exploration.R": bridge.ErrScriptNotFound}}
		r := NewRunner(fb, nil, &bytes.Buffer{}, nil)

		done, err := r.Pipeline(context.Background())
		var stepErr *StepError
		if !errors.As(err, &stepErr) || stepErr.Step != Explore {
			t.Fatalf("Pipeline() error = %v, want StepError for explore", err)
		}
		if !errors.Is(err, bridge.ErrScriptNotFound) {
			t.Errorf("error should wrap the step error")
		}
		if len(done) != 1 || len(fb.scripts) != 2 {
			t.Errorf("done = %d, scripts = %v", len(done), fb.scripts)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		fb := &fakeBridge{}
		r := NewRunner(fb, nil, &bytes.Buffer{}, nil)

		if _, err := r.Pipeline(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Pipeline() error = %v, want context.Canceled", err)
		}
		if len(fb.scripts) != 0 {
			t.Errorf("no step should run, got %v", fb.scripts)
		}
	})
}
