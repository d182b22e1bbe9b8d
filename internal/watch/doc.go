// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a callback when files in a project tree change.
//
// Events are filtered through doublestar include and ignore patterns and
// coalesced over a debounce window, so a burst of writes from an editor or
// an R session produces a single run with the full set of changed paths.
package watch
