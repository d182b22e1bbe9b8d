// SPDX-License-Identifier: MPL-2.0

// Package proclife tracks the lifecycle of a supervised background child
// process: atomic state reads, mutex-protected transitions, goroutine
// tracking and a done channel closed once the process reaches a terminal
// state.
package proclife
