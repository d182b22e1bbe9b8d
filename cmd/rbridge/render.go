// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/salesdash/rbridge/internal/issue"

	"github.com/charmbracelet/log"
)

// renderError prints err for the user. Actionable errors include their
// suggestions, and in verbose mode the full error chain. Errors linked to the
// issue catalogue also print its help card, except script failures outside
// verbose mode, whose captured output is already long.
func renderError(w io.Writer, err error, verbose bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	fmt.Fprintln(w, ErrorStyle.Render("✗ ")+formatErrorForDisplay(err, verbose))

	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue == 0 {
		return
	}
	if ae.Issue == issue.ScriptExecutionFailedId && !verbose {
		return
	}
	renderIssue(w, ae.Issue)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

func renderIssue(w io.Writer, id issue.Id) {
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, err := entry.Render("dark")
	if err != nil {
		log.Warn("failed to render issue help", "issue", id, "error", err)
		return
	}
	fmt.Fprint(w, rendered)
}
