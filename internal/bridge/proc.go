// SPDX-License-Identifier: MPL-2.0

package bridge

import (
	"errors"
	"os"
	"os/exec"
	"time"
)

// terminate asks the child's process group to exit, then kills it if it
// has not exited once grace elapses. exited must be closed when Wait returns.
func terminate(p *os.Process, exited <-chan struct{}, grace time.Duration) {
	if p == nil {
		return
	}
	if err := signalTerminate(p); err != nil {
		_ = signalKill(p)
		return
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-exited:
	case <-timer.C:
		_ = signalKill(p)
	}
}

// exitCode extracts the child's exit status from a Wait error. ok is false
// when the error is not an exit status (the process could not be waited on).
func exitCode(err error) (code int, ok bool) {
	if err == nil {
		return 0, true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return -1, false
}

// heldOpen reports whether err only says that output copying was cut off
// after WaitDelay while the child itself exited successfully. A background
// process started by the script can keep the output pipes open that long.
func heldOpen(cmd *exec.Cmd, err error) bool {
	return errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success()
}
