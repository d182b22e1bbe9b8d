// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"os"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"
)

// ProcessSemaphore returns a process-wide buffered channel that limits how
// many tests spawn Rscript children at once. Acquire a slot by sending,
// release by receiving:
//
//	sem := testutil.ProcessSemaphore()
//	sem <- struct{}{}
//	defer func() { <-sem }()
//
// The capacity is RBRIDGE_TEST_PROCESS_PARALLEL when set, otherwise
// min(GOMAXPROCS, 4).
var ProcessSemaphore = sync.OnceValue(func() chan struct{} {
	return make(chan struct{}, processParallelism())
})

func processParallelism() int {
	if v := os.Getenv("RBRIDGE_TEST_PROCESS_PARALLEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return min(runtime.GOMAXPROCS(0), 4)
}

// AcquireProcessSlot blocks until a spawn slot is free and releases it when
// the test finishes.
func AcquireProcessSlot(t testing.TB) {
	t.Helper()
	sem := ProcessSemaphore()
	sem <- struct{}{}
	t.Cleanup(func() { <-sem })
}

// MustMkdirAll creates a directory along with any necessary parents.
// The test fails immediately if the operation fails.
func MustMkdirAll(t testing.TB, path string, perm os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(path, perm); err != nil {
		t.Fatalf("failed to create directory %s: %v", path, err)
	}
}

// SafeBuffer is a bytes.Buffer safe for concurrent writers, for capturing
// output relayed from background goroutines.
type SafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write appends p to the buffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns the buffered contents.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// WaitFor polls cond every few milliseconds until it returns true or
// timeout elapses, failing the test on timeout.
func WaitFor(t testing.TB, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out after %v waiting for %s", timeout, what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
