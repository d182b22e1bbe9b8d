// SPDX-License-Identifier: MPL-2.0

package proclife

const (
	// StateCreated indicates the handle exists but the process was not spawned.
	StateCreated State = iota
	// StateStarting indicates the process is being spawned.
	StateStarting
	// StateRunning indicates the process was spawned and is being supervised.
	StateRunning
	// StateStopping indicates a stop was requested and termination is in progress.
	StateStopping
	// StateExited is terminal: the process exited, on its own or after a stop.
	StateExited
	// StateFailed is terminal: the process could not be spawned or waited on.
	StateFailed
)

// State is the lifecycle state of a supervised process.
type State int32

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateExited:
		return "exited"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition can happen.
func (s State) IsTerminal() bool {
	return s == StateExited || s == StateFailed
}
