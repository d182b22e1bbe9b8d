// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package bridge

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/salesdash/rbridge/internal/issue"
	"github.com/salesdash/rbridge/internal/testutil"

	"github.com/charmbracelet/log"
)

type procBridge struct {
	*Bridge
	root   string
	stdout *testutil.SafeBuffer
	stderr *testutil.SafeBuffer
	logs   *testutil.SafeBuffer
}

// newProcBridge returns a bridge backed by the fake shell runtime with an
// empty project root.
func newProcBridge(t *testing.T, mutate func(*Options)) *procBridge {
	t.Helper()
	testutil.AcquireProcessSlot(t)

	pb := &procBridge{
		root:   t.TempDir(),
		stdout: &testutil.SafeBuffer{},
		stderr: &testutil.SafeBuffer{},
		logs:   &testutil.SafeBuffer{},
	}
	opts := Options{
		ProjectRoot: pb.root,
		RHome:       testutil.FakeRHome(t),
		LookPath:    func(string) (string, error) { return "", exec.ErrNotFound },
		Stdout:      pb.stdout,
		Stderr:      pb.stderr,
		Logger:      log.NewWithOptions(pb.logs, log.Options{Level: log.DebugLevel}),
		Dashboard: DashboardOptions{
			StopGrace:  time.Second,
			VerifyPort: false,
		},
	}
	if mutate != nil {
		mutate(&opts)
	}
	pb.Bridge = New(opts)
	return pb
}

func realPath(t *testing.T, p string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		t.Fatalf("EvalSymlinks(%s): %v", p, err)
	}
	return resolved
}

func TestRunScript_SubprocessSuccess(t *testing.T) {
	t.Parallel()

	pb := newProcBridge(t, nil)
	testutil.WriteScript(t, pb.root, "scripts/create_dataset.R",
		"echo 'Dataset created: data/sales_data.csv'\necho 'Warning: 3 rows dropped' >&2\n")

	inv, err := pb.RunScript(context.Background(), "scripts/create_dataset.R")
	if err != nil {
		t.Fatalf("RunScript() error = %v", err)
	}

	if inv.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", inv.ExitCode)
	}
	if inv.Mode != ModeSubprocess {
		t.Errorf("Mode = %q", inv.Mode)
	}
	if got := pb.stdout.String(); got != "Dataset created: data/sales_data.csv\n" {
		t.Errorf("relayed stdout = %q", got)
	}
	if got := pb.stderr.String(); got != "Warning: 3 rows dropped\n" {
		t.Errorf("relayed stderr = %q", got)
	}
	if !strings.Contains(pb.logs.String(), inv.ID.String()) {
		t.Errorf("log should mention invocation id %s:\n%s", inv.ID, pb.logs.String())
	}
}

func TestRunScript_BackgroundProcessHoldsOutput(t *testing.T) {
	t.Parallel()

	pb := newProcBridge(t, func(o *Options) { o.Dashboard.StopGrace = 200 * time.Millisecond })
	testutil.WriteScript(t, pb.root, "scripts/generate_report.R",
		"echo 'Report written'\n(sleep 3) &\nexit 0\n")

	inv, err := pb.RunScript(context.Background(), "scripts/generate_report.R")
	if err != nil {
		t.Fatalf("RunScript() error = %v", err)
	}
	if inv.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", inv.ExitCode)
	}
	if !strings.Contains(pb.stdout.String(), "Report written\n") {
		t.Errorf("relayed stdout = %q", pb.stdout.String())
	}
	if !strings.Contains(pb.logs.String(), "kept its output open") {
		t.Errorf("expected a warning in logs, got %q", pb.logs.String())
	}
}

func TestRunScript_WorkingDirectoryIsProjectRoot(t *testing.T) {
	t.Parallel()

	pb := newProcBridge(t, nil)
	testutil.WriteScript(t, pb.root, "scripts/data_exploration.R", "pwd\n")

	inv, err := pb.RunScript(context.Background(), "scripts/data_exploration.R")
	if err != nil {
		t.Fatalf("RunScript() error = %v", err)
	}

	if got, want := realPath(t, strings.TrimSpace(inv.Stdout)), realPath(t, pb.root); got != want {
		t.Errorf("script ran in %q, want %q", got, want)
	}
}

func TestRunScript_NonZeroExit(t *testing.T) {
	t.Parallel()

	pb := newProcBridge(t, nil)
	testutil.WriteScript(t, pb.root, "scripts/generate_report.R",
		"echo 'rendering report'\necho \"Error: object 'sales' not found\" >&2\nexit 2\n")

	inv, err := pb.RunScript(context.Background(), "scripts/generate_report.R")
	if !errors.Is(err, ErrScriptFailed) {
		t.Fatalf("RunScript() error = %v, want ErrScriptFailed", err)
	}

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecutionError in chain, got %T", err)
	}
	if execErr.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", execErr.ExitCode)
	}
	if !strings.Contains(err.Error(), "Error: object 'sales' not found") {
		t.Errorf("error should carry stderr: %v", err)
	}
	if !strings.Contains(err.Error(), "rendering report") {
		t.Errorf("error should carry stdout: %v", err)
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.ScriptExecutionFailedId {
		t.Errorf("expected actionable error with ScriptExecutionFailedId")
	}
	if inv == nil || inv.ExitCode != 2 {
		t.Errorf("invocation should record exit code 2, got %+v", inv)
	}
	if pb.stdout.String() != "" {
		t.Errorf("failed runs must not relay stdout, got %q", pb.stdout.String())
	}
}

func TestRunScript_AbsolutePath(t *testing.T) {
	t.Parallel()

	pb := newProcBridge(t, nil)
	elsewhere := t.TempDir()
	script := testutil.WriteScript(t, elsewhere, "standalone.R", "echo standalone\n")

	if _, err := pb.RunScript(context.Background(), script); err != nil {
		t.Fatalf("RunScript() error = %v", err)
	}
	if pb.stdout.String() != "standalone\n" {
		t.Errorf("stdout = %q", pb.stdout.String())
	}
}

func TestRunScript_CancelTerminatesChild(t *testing.T) {
	t.Parallel()

	pb := newProcBridge(t, func(o *Options) { o.Dashboard.StopGrace = 500 * time.Millisecond })
	testutil.WriteScript(t, pb.root, "scripts/install_r_packages.R", "sleep 30 &\nwait\n")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := pb.RunScript(ctx, "scripts/install_r_packages.R")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RunScript() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("cancellation took %v", elapsed)
	}
}

func TestRunScript_ReusesRuntimeAcrossRuns(t *testing.T) {
	t.Parallel()

	pb := newProcBridge(t, nil)
	testutil.WriteScript(t, pb.root, "a.R", "echo a\n")
	testutil.WriteScript(t, pb.root, "b.R", "echo b\n")

	first, err := pb.RunScript(context.Background(), "a.R")
	if err != nil {
		t.Fatal(err)
	}
	second, err := pb.RunScript(context.Background(), "b.R")
	if err != nil {
		t.Fatal(err)
	}

	if first.ID == second.ID {
		t.Error("each invocation should get a distinct id")
	}
	if pb.stdout.String() != "a\nb\n" {
		t.Errorf("stdout = %q", pb.stdout.String())
	}
}
