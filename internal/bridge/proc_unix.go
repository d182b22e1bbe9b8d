// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package bridge

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup starts the child in its own process group so signals
// reach the R session and anything it forks.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// Negative PIDs target the process group.
func signalTerminate(p *os.Process) error {
	return syscall.Kill(-p.Pid, syscall.SIGTERM)
}

func signalKill(p *os.Process) error {
	return syscall.Kill(-p.Pid, syscall.SIGKILL)
}
