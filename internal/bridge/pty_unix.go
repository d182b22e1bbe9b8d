// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package bridge

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
)

var errPTYUnavailable = errors.New("pseudo-terminal unavailable")

// startPTY starts cmd attached to a new pseudo-terminal so R line-buffers
// its console output. The child leads its own session, which also makes it
// a process group leader for terminate.
func startPTY(cmd *exec.Cmd) (io.ReadCloser, error) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errPTYUnavailable, err)
	}
	defer tty.Close() //nolint:errcheck // the child keeps its own descriptor

	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.Stderr = tty
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}

	if err := cmd.Start(); err != nil {
		_ = ptmx.Close()
		return nil, err
	}
	return ptmx, nil
}
