// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers for tests that fail fast on setup
// errors and reduce boilerplate.
//
// FakeRHome builds an R install root whose Rscript runs scripts with
// /bin/sh, so bridge and task tests exercise real child processes without
// R installed. Other helpers cover filesystem setup (MustMkdirAll,
// MustWriteFile, WriteScript), concurrent output capture (SafeBuffer),
// polling (WaitFor), spawn throttling (ProcessSemaphore) and deterministic
// time (FakeClock).
package testutil
