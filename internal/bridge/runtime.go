// SPDX-License-Identifier: MPL-2.0

package bridge

const (
	// ModeSubprocess runs scripts through Rscript child processes.
	ModeSubprocess Mode = "subprocess"
	// ModeEmbedded runs scripts in an in-process R session.
	ModeEmbedded Mode = "embedded"

	// SourceConfig means the path came from the rbridge config.
	SourceConfig Source = "config"
	// SourceEnv means the path was derived from R_HOME.
	SourceEnv Source = "env"
	// SourcePath means the executable was found on PATH.
	SourcePath Source = "path"
)

const (
	initUninitialized initState = iota
	initInitializing
	initReady
	initFailed
)

type (
	// Mode is how the bridge executes R code.
	Mode string

	// Source records where an executable path was discovered.
	Source string

	initState int

	// Runtime is the result of a successful Init.
	Runtime struct {
		Mode Mode `json:"mode" toml:"mode"`
		// RHome is R_HOME at init time, empty when unset.
		RHome       string `json:"r_home" toml:"r_home"`
		RExecutable string `json:"r_executable" toml:"r_executable"`
		RSource     Source `json:"r_source" toml:"r_source"`
		// RscriptExecutable is empty when no Rscript was found. Spawns then
		// fail with ErrRuntimeNotFound.
		RscriptExecutable string `json:"rscript_executable" toml:"rscript_executable"`
		RscriptSource     Source `json:"rscript_source,omitempty" toml:"rscript_source,omitempty"`
		ProjectRoot       string `json:"project_root" toml:"project_root"`
	}
)

func (s initState) String() string {
	switch s {
	case initUninitialized:
		return "uninitialized"
	case initInitializing:
		return "initializing"
	case initReady:
		return "ready"
	case initFailed:
		return "failed"
	default:
		return "unknown"
	}
}
