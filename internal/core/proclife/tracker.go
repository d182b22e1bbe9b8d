// SPDX-License-Identifier: MPL-2.0

package proclife

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Tracker holds the lifecycle of one supervised process. Owners embed or
// hold a Tracker and drive it with the Begin/Mark* helpers.
//
// A Tracker is single-use: once exited or failed, create a new one.
type Tracker struct {
	state atomic.Int32

	// guards lastErr and the done channel close
	mu sync.Mutex

	ctx       context.Context
	cancel    context.CancelFunc
	wg      sync.WaitGroup
	doneCh  chan struct{}
	closed  bool
	lastErr error
}

// New creates a Tracker in the Created state.
func New() *Tracker {
	t := &Tracker{doneCh: make(chan struct{})}
	t.state.Store(int32(StateCreated))
	return t
}

// State returns the current state (atomic, lock-free read).
func (t *Tracker) State() State {
	return State(t.state.Load())
}

// Done returns a channel closed once the tracker reaches a terminal state.
func (t *Tracker) Done() <-chan struct{} {
	return t.doneCh
}

// LastError returns the error recorded by MarkFailed, or nil.
func (t *Tracker) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Context returns the supervision context. It is cancelled when the parent
// context passed to Begin is cancelled or when a stop begins. Nil before Begin.
func (t *Tracker) Context() context.Context {
	return t.ctx
}

// Begin moves Created to Starting and derives the supervision context from
// parent. A parent that is already cancelled fails the tracker.
func (t *Tracker) Begin(parent context.Context) error {
	if err := parent.Err(); err != nil {
		t.MarkFailed(fmt.Errorf("context cancelled before start: %w", err))
		return t.LastError()
	}

	if !t.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		return fmt.Errorf("cannot start process in state %s", t.State())
	}

	t.ctx, t.cancel = context.WithCancel(parent)
	return nil
}

// MarkRunning moves Starting to Running.
func (t *Tracker) MarkRunning() {
	t.state.CompareAndSwap(int32(StateStarting), int32(StateRunning))
}

// MarkFailed records err and moves to the terminal Failed state.
func (t *Tracker) MarkFailed(err error) {
	t.mu.Lock()
	t.lastErr = err
	t.mu.Unlock()

	t.state.Store(int32(StateFailed))
	if t.cancel != nil {
		t.cancel()
	}
	t.closeDone()
}

// BeginStop moves Starting or Running to Stopping and cancels the
// supervision context. It returns false when there is nothing to stop.
func (t *Tracker) BeginStop() bool {
	for {
		current := t.State()
		switch current {
		case StateExited, StateFailed, StateStopping:
			return false
		case StateCreated:
			if t.state.CompareAndSwap(int32(StateCreated), int32(StateExited)) {
				t.closeDone()
				return false
			}
		case StateStarting, StateRunning:
			if !t.state.CompareAndSwap(int32(current), int32(StateStopping)) {
				continue
			}
			if t.cancel != nil {
				t.cancel()
			}
			return true
		default:
			return false
		}
	}
}

// MarkExited moves to the terminal Exited state once the process is gone.
// A tracker that already failed stays failed.
func (t *Tracker) MarkExited() {
	for {
		current := t.State()
		if current == StateFailed {
			break
		}
		if t.state.CompareAndSwap(int32(current), int32(StateExited)) {
			break
		}
	}
	if t.cancel != nil {
		t.cancel()
	}
	t.closeDone()
}

// Go runs fn on a tracked goroutine.
func (t *Tracker) Go(fn func()) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fn()
	}()
}

// WaitGoroutines blocks until every goroutine started with Go has returned.
func (t *Tracker) WaitGoroutines() {
	t.wg.Wait()
}

func (t *Tracker) closeDone() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.doneCh)
	}
}
