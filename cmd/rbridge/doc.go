// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the rbridge command line.
//
// Every task command loads configuration, builds a runtime bridge for the
// project root and runs one analytics script through it. The dashboard
// command keeps the Shiny app in the foreground until interrupted.
package cmd
