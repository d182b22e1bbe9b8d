// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints. Known failure classes are also linked to a markdown help
// card from the catalogue, rendered for the terminal with glamour.
package issue
