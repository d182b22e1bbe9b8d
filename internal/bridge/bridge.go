// SPDX-License-Identifier: MPL-2.0

package bridge

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	defaultStopGrace     = 5 * time.Second
	defaultVerifyTimeout = 15 * time.Second
)

// Bridge is a handle on the external R runtime. Each Bridge initializes
// independently; the zero value is not usable, create one with New.
type Bridge struct {
	opts        Options
	projectRoot string
	logger      *log.Logger
	stdout      io.Writer
	stderr      io.Writer
	listPorts   portLister

	mu      sync.Mutex
	state   initState
	runtime Runtime
}

// New creates a Bridge. No probing happens until Init or the first operation.
func New(opts Options) *Bridge {
	opts = opts.withDefaults()

	root := opts.ProjectRoot
	if root == "" {
		if wd, err := os.Getwd(); err == nil {
			root = wd
		} else {
			root = "."
		}
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	out := &syncWriter{w: opts.Stdout}
	var errOut io.Writer = out
	if opts.Stderr != opts.Stdout {
		errOut = &syncWriter{w: opts.Stderr}
	}

	return &Bridge{
		opts:        opts,
		projectRoot: root,
		logger:      opts.Logger,
		stdout:      out,
		stderr:      errOut,
		listPorts:   listeningPorts,
	}
}

// ProjectRoot returns the absolute directory scripts are resolved against.
func (b *Bridge) ProjectRoot() string {
	return b.projectRoot
}

// Init checks the embedding capability and locates R. It is safe for
// concurrent use. After a success later calls return the cached Runtime
// without probing again; after a failure the next call retries.
func (b *Bridge) Init(ctx context.Context) (Runtime, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == initReady {
		return b.runtime, nil
	}
	if err := ctx.Err(); err != nil {
		return Runtime{}, fmt.Errorf("init R bridge: %w", err)
	}

	b.state = initInitializing

	mode := ModeSubprocess
	if b.opts.Embedder != nil && b.opts.Embedder.Available() {
		mode = ModeEmbedded
	}

	d := newDiscoverer(b.opts)
	rt, err := d.discover()
	if err != nil {
		b.state = initFailed
		b.logger.Debug("R runtime discovery failed", "error", err)
		return Runtime{}, err
	}
	rt.Mode = mode
	rt.ProjectRoot = b.projectRoot

	b.runtime = rt
	b.state = initReady
	b.logger.Debug("R bridge ready",
		"mode", rt.Mode,
		"r", rt.RExecutable,
		"r_source", rt.RSource,
		"rscript", rt.RscriptExecutable,
	)
	if rt.RscriptExecutable == "" {
		b.logger.Warn("Rscript not found; script runs and the dashboard will fail", "r", rt.RExecutable)
	}

	return rt, nil
}

// Runtime returns the initialized runtime, or false before a successful Init.
func (b *Bridge) Runtime() (Runtime, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.runtime, b.state == initReady
}

// rscript returns the Rscript path or a runtime-not-found error.
func (rt Runtime) rscript() (string, error) {
	if rt.RscriptExecutable == "" {
		return "", runtimeNotFoundError("Rscript")
	}
	return rt.RscriptExecutable, nil
}

// resolveScript makes path absolute against the project root and checks it
// exists.
func (b *Bridge) resolveScript(path string) (string, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(b.projectRoot, full)
	}
	full = filepath.Clean(full)

	info, err := b.opts.FS.Stat(full)
	if err != nil || info.IsDir() {
		return "", scriptNotFoundError(full)
	}
	return full, nil
}

// syncWriter serializes writes from the relay goroutine and callers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
