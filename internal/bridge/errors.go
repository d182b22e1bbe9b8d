// SPDX-License-Identifier: MPL-2.0

package bridge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/salesdash/rbridge/internal/issue"
)

var (
	// ErrRuntimeNotFound is returned when no R executable can be located, or
	// when a spawn needs Rscript and none was found.
	ErrRuntimeNotFound = errors.New("R runtime not found")

	// ErrScriptNotFound is returned when a script or app path does not exist.
	ErrScriptNotFound = errors.New("R script not found")

	// ErrScriptFailed is the sentinel wrapped by ExecutionError.
	ErrScriptFailed = errors.New("R script failed")

	// ErrUnsupportedMode is returned by operations that need an embedded
	// session while the bridge runs in subprocess mode.
	ErrUnsupportedMode = errors.New("operation not supported in subprocess mode")
)

// ExecutionError is returned when Rscript exits with a non-zero status.
// It wraps ErrScriptFailed for errors.Is() compatibility.
type ExecutionError struct {
	Script   string
	ExitCode int
	Stdout   string
	Stderr   string
}

// Error includes both captured streams so the failure is diagnosable from
// the message alone.
func (e *ExecutionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Rscript failed (code %d)", e.ExitCode)
	sb.WriteString("\nSTDOUT:\n")
	sb.WriteString(e.Stdout)
	sb.WriteString("\nSTDERR:\n")
	sb.WriteString(e.Stderr)
	return sb.String()
}

// Unwrap returns ErrScriptFailed.
func (e *ExecutionError) Unwrap() error { return ErrScriptFailed }

func runtimeNotFoundError(what string) error {
	return issue.NewErrorContext().
		WithOperation("locate " + what).
		WithSuggestion("Install R from https://cran.r-project.org").
		WithSuggestion("Set R_HOME to the R installation root, or add R to PATH").
		WithSuggestion("Or set r.executable / r.rscript in the rbridge config").
		WithIssue(issue.RuntimeNotFoundId).
		Wrap(fmt.Errorf("could not locate %s; ensure R is installed and R_HOME/PATH is set: %w", what, ErrRuntimeNotFound)).
		BuildError()
}

func scriptNotFoundError(path string) error {
	return issue.NewErrorContext().
		WithOperation("find R script").
		WithResource(path).
		WithSuggestion("Check that the project root points at the analytics project").
		WithSuggestion("Override the script path under 'scripts' in the rbridge config").
		WithIssue(issue.ScriptNotFoundId).
		Wrap(ErrScriptNotFound).
		BuildError()
}

func executionError(script string, execErr *ExecutionError) error {
	return issue.NewErrorContext().
		WithOperation("run R script").
		WithResource(script).
		WithSuggestion("Read the STDERR section above for the R error").
		WithSuggestion("Run 'rbridge install-packages' if a package is missing").
		WithIssue(issue.ScriptExecutionFailedId).
		Wrap(execErr).
		BuildError()
}

func unsupportedModeError(op string) error {
	return issue.NewErrorContext().
		WithOperation(op).
		WithSuggestion("Evaluate the expression from an R script run with 'rbridge' tasks instead").
		WithIssue(issue.UnsupportedModeId).
		Wrap(fmt.Errorf("%s requires an embedded R session: %w", op, ErrUnsupportedMode)).
		BuildError()
}

func dashboardSpawnError(app string, err error) error {
	return issue.NewErrorContext().
		WithOperation("start dashboard").
		WithResource(app).
		WithSuggestion("Check that Rscript can be executed").
		WithIssue(issue.DashboardFailedId).
		Wrap(err).
		BuildError()
}
