// SPDX-License-Identifier: MPL-2.0

package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/salesdash/rbridge/internal/core/proclife"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	maxRelayLine       = 1 << 20
	portVerifyInterval = 500 * time.Millisecond
)

type (
	// DashboardExit is how a dashboard process ended.
	DashboardExit struct {
		// ExitCode is the child's status, -1 when it was killed by a signal.
		ExitCode int
		// Stopped is true when the exit followed Stop or context cancellation.
		Stopped bool
		// Err is set when the process could not be waited on.
		Err error
	}

	// Dashboard is a running Shiny app. Its output is relayed line by line
	// until the process exits.
	Dashboard struct {
		ID      uuid.UUID
		App     string
		WorkDir string
		Port    int
		URL     string

		tracker   *proclife.Tracker
		cmd       *exec.Cmd
		output    io.ReadCloser
		prefix    string
		grace     time.Duration
		stdout    io.Writer
		logger    *log.Logger
		listPorts portLister

		verified atomic.Bool
		result   chan DashboardExit
		exit     DashboardExit
	}
)

// StartDashboard launches the Shiny app at appPath with Rscript and returns
// as soon as the process is spawned. The app's directory is its working
// directory. port is only echoed to the user; nothing checks that the app
// binds it unless port verification is enabled. Cancelling ctx stops the
// dashboard.
func (b *Bridge) StartDashboard(ctx context.Context, appPath string, port int) (*Dashboard, error) {
	rt, err := b.Init(ctx)
	if err != nil {
		return nil, err
	}

	app, err := b.resolveScript(appPath)
	if err != nil {
		return nil, err
	}
	rscript, err := rt.rscript()
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		ID:        uuid.New(),
		App:       app,
		WorkDir:   filepath.Dir(app),
		Port:      port,
		URL:       fmt.Sprintf("http://localhost:%d", port),
		tracker:   proclife.New(),
		prefix:    b.opts.Dashboard.Prefix,
		grace:     b.opts.Dashboard.StopGrace,
		stdout:    b.stdout,
		listPorts: b.listPorts,
		result:    make(chan DashboardExit, 1),
	}
	d.logger = b.logger.With("dashboard", d.ID.String())

	if err := d.tracker.Begin(ctx); err != nil {
		return nil, dashboardSpawnError(app, err)
	}

	cmd := exec.Command(rscript, app)
	cmd.Dir = d.WorkDir
	output, err := b.spawnDashboard(cmd)
	if err != nil {
		d.tracker.MarkFailed(err)
		return nil, dashboardSpawnError(app, err)
	}
	d.cmd = cmd
	d.output = output
	d.tracker.MarkRunning()
	d.logger.Info("dashboard started", "pid", cmd.Process.Pid, "app", app, "port", port)

	fmt.Fprintf(b.stdout, "Shiny launching. If running, visit %s\n", d.URL)

	relayDone := make(chan struct{})
	d.tracker.Go(func() {
		defer close(relayDone)
		d.relay(output)
	})
	d.tracker.Go(func() { d.supervise(relayDone) })
	if b.opts.Dashboard.VerifyPort {
		d.tracker.Go(func() { d.verifyPort(b.opts.Dashboard.VerifyTimeout, portVerifyInterval) })
	}

	return d, nil
}

// spawnDashboard starts cmd with stdout and stderr merged into a single
// stream and returns the read side.
func (b *Bridge) spawnDashboard(cmd *exec.Cmd) (io.ReadCloser, error) {
	if b.opts.Dashboard.PTY {
		f, err := startPTY(cmd)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, errPTYUnavailable) {
			return nil, err
		}
		b.logger.Debug("pseudo-terminal unavailable, relaying through a pipe", "error", err)
	}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create output pipe: %w", err)
	}
	cmd.Stdout = w
	cmd.Stderr = w
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, err
	}
	// The child holds its own copy of the write end.
	_ = w.Close()
	return r, nil
}

func (d *Dashboard) relay(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxRelayLine)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		fmt.Fprintf(d.stdout, "%s%s\n", d.prefix, line)
	}
	if err := sc.Err(); err != nil {
		// A pseudo-terminal reports EIO once the child side closes.
		d.logger.Debug("dashboard output relay ended", "error", err)
	}
}

func (d *Dashboard) supervise(relayDone <-chan struct{}) {
	exited := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = d.cmd.Wait()
		close(exited)
	}()

	stopped := false
	select {
	case <-exited:
	case <-d.tracker.Context().Done():
		stopped = true
		d.tracker.BeginStop()
		d.logger.Debug("stopping dashboard", "pid", d.Pid(), "grace", d.grace)
		terminate(d.cmd.Process, exited, d.grace)
		<-exited
	}

	// Let the relay drain, but a grandchild holding the stream open must
	// not keep the handle alive.
	select {
	case <-relayDone:
	case <-time.After(d.grace):
	}
	_ = d.output.Close()

	exit := DashboardExit{Stopped: stopped}
	code, ok := exitCode(waitErr)
	exit.ExitCode = code
	if !ok {
		exit.Err = fmt.Errorf("wait for Rscript: %w", waitErr)
	}

	switch {
	case exit.Err != nil:
		d.logger.Error("dashboard supervision failed", "error", exit.Err)
	case stopped:
		d.logger.Info("dashboard stopped", "exit_code", code)
	case code != 0:
		d.logger.Warn("dashboard exited", "exit_code", code)
		fmt.Fprintf(d.stdout, "Shiny app exited with code %d\n", code)
	default:
		d.logger.Info("dashboard exited", "exit_code", code)
	}

	d.exit = exit
	d.result <- exit
	close(d.result)
	if exit.Err != nil {
		d.tracker.MarkFailed(exit.Err)
		return
	}
	d.tracker.MarkExited()
}

// State returns the lifecycle state of the dashboard process.
func (d *Dashboard) State() proclife.State {
	return d.tracker.State()
}

// Pid returns the process ID of the Rscript child.
func (d *Dashboard) Pid() int {
	if d.cmd == nil || d.cmd.Process == nil {
		return 0
	}
	return d.cmd.Process.Pid
}

// Done is closed once the process has exited and its output is relayed.
func (d *Dashboard) Done() <-chan struct{} {
	return d.tracker.Done()
}

// Result delivers the exit status once, then is closed.
func (d *Dashboard) Result() <-chan DashboardExit {
	return d.result
}

// PortVerified reports whether the child was seen listening on Port.
func (d *Dashboard) PortVerified() bool {
	return d.verified.Load()
}

// Wait blocks until the dashboard exits or ctx is done. The error is ctx's
// error, or the supervision failure when the process could not be waited on.
func (d *Dashboard) Wait(ctx context.Context) (DashboardExit, error) {
	select {
	case <-d.tracker.Done():
		return d.exit, d.tracker.LastError()
	case <-ctx.Done():
		return DashboardExit{}, fmt.Errorf("waiting for dashboard: %w", ctx.Err())
	}
}

// Stop terminates the process group, escalating to a kill after the grace
// period, and waits for the exit.
func (d *Dashboard) Stop() DashboardExit {
	if !d.State().IsTerminal() {
		d.tracker.BeginStop()
	}
	<-d.tracker.Done()
	d.tracker.WaitGoroutines()
	return d.exit
}
