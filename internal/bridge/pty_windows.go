// SPDX-License-Identifier: MPL-2.0

//go:build windows

package bridge

import (
	"errors"
	"io"
	"os/exec"
)

var errPTYUnavailable = errors.New("pseudo-terminal unavailable")

func startPTY(*exec.Cmd) (io.ReadCloser, error) {
	return nil, errPTYUnavailable
}
