// SPDX-License-Identifier: MPL-2.0

package bridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

// Invocation records one script run.
type Invocation struct {
	ID       uuid.UUID
	Script   string
	WorkDir  string
	Mode     Mode
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// RunScript runs the script at path to completion. Relative paths resolve
// against the project root, which is also the working directory. In
// subprocess mode the captured output is written to the bridge's stdout and
// stderr after a successful run; a non-zero exit returns an error wrapping
// *ExecutionError. Cancelling ctx terminates the child.
func (b *Bridge) RunScript(ctx context.Context, path string) (*Invocation, error) {
	rt, err := b.Init(ctx)
	if err != nil {
		return nil, err
	}

	script, err := b.resolveScript(path)
	if err != nil {
		return nil, err
	}

	inv := &Invocation{
		ID:      uuid.New(),
		Script:  script,
		WorkDir: b.projectRoot,
		Mode:    rt.Mode,
	}
	logger := b.logger.With("invocation", inv.ID.String(), "script", script)

	if rt.Mode == ModeEmbedded {
		start := b.opts.Clock.Now()
		err := b.opts.Embedder.Source(ctx, script, b.projectRoot)
		inv.Duration = b.opts.Clock.Since(start)
		if err != nil {
			logger.Debug("embedded source failed", "error", err)
			return inv, err
		}
		logger.Info("script sourced", "duration", inv.Duration)
		return inv, nil
	}

	rscript, err := rt.rscript()
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(rscript, script)
	cmd.Dir = b.projectRoot
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = b.opts.Dashboard.StopGrace
	setProcessGroup(cmd)

	logger.Debug("running Rscript", "rscript", rscript, "dir", cmd.Dir)
	start := b.opts.Clock.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start Rscript for %s: %w", script, err)
	}

	cancelled, waitErr := b.waitCancellable(ctx, cmd)
	inv.Duration = b.opts.Clock.Since(start)
	inv.Stdout = stdout.String()
	inv.Stderr = stderr.String()

	if cancelled {
		logger.Warn("script cancelled", "duration", inv.Duration)
		return inv, fmt.Errorf("run %s: %w", script, context.Cause(ctx))
	}

	if heldOpen(cmd, waitErr) {
		logger.Warn("script exited but a background process kept its output open", "grace", cmd.WaitDelay)
		waitErr = nil
	}
	code, ok := exitCode(waitErr)
	inv.ExitCode = code
	if !ok {
		return inv, fmt.Errorf("wait for Rscript %s: %w", script, waitErr)
	}
	if code != 0 {
		logger.Info("script failed", "exit_code", code, "duration", inv.Duration)
		return inv, executionError(script, &ExecutionError{
			Script:   script,
			ExitCode: code,
			Stdout:   inv.Stdout,
			Stderr:   inv.Stderr,
		})
	}

	logger.Info("script finished", "exit_code", code, "duration", inv.Duration)
	if _, err := io.WriteString(b.stdout, inv.Stdout); err != nil {
		return inv, fmt.Errorf("relay stdout: %w", err)
	}
	if _, err := io.WriteString(b.stderr, inv.Stderr); err != nil {
		return inv, fmt.Errorf("relay stderr: %w", err)
	}
	return inv, nil
}

// waitCancellable waits for cmd, terminating its process group when ctx is
// cancelled first.
func (b *Bridge) waitCancellable(ctx context.Context, cmd *exec.Cmd) (cancelled bool, err error) {
	exited := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = cmd.Wait()
		close(exited)
	}()

	select {
	case <-exited:
		return false, waitErr
	case <-ctx.Done():
		terminate(cmd.Process, exited, b.opts.Dashboard.StopGrace)
		<-exited
		return true, waitErr
	}
}
