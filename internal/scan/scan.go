// Package scan coordinates concurrent scans of a directory tree.
//
// Every call to Start begins a new generation with its own store. The top
// level directories of the root are split into contiguous slices, one per
// worker, and each worker walks its slice depth first, feeding every file to
// the scanner pipeline. Cancellation is cooperative: workers poll an abort
// flag once per directory. The last worker to finish delivers exactly one
// ScanFinished notification.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/samtupy/folderstats/internal/log"
	"github.com/samtupy/folderstats/internal/model"
	"github.com/samtupy/folderstats/internal/parallel"
	"github.com/samtupy/folderstats/internal/registry"
	"github.com/samtupy/folderstats/internal/scanner"
	"github.com/samtupy/folderstats/internal/store"
	"github.com/samtupy/folderstats/internal/walk"
)

// Result is delivered once per generation.
type Result struct {
	Generation uint64 `json:"generation"`
	Success    bool   `json:"success"`
}

// Listener receives the notifications of a coordinator. Notifications of a
// superseded generation may still arrive after a new generation started;
// listeners compare the generation and drop stale ones. Both methods are
// called from worker goroutines and must not block for long.
type Listener interface {
	// ChildDiscovered is called when the directory child of parent is seen
	// for the first time. Top level children of the root are reported
	// synchronously from Start, in listing order.
	ChildDiscovered(generation uint64, parent, child string)
	// ScanFinished is called once, after all workers of a generation are done.
	ScanFinished(result Result)
}

// NopListener ignores all notifications.
type NopListener struct{}

func (NopListener) ChildDiscovered(uint64, string, string) {}
func (NopListener) ScanFinished(Result)                   {}

// State of a scan. A Coordinator reports only StateIdle and StateRunning,
// a Handle reports StateRunning until its generation completes or aborts.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Option func(*Coordinator)

func WithListener(l Listener) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.listener = l
		}
	}
}

func WithStats(s model.Stats) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.counter = s
		}
	}
}

// WithReadDir replaces os.ReadDir, used by tests to inject listing failures.
func WithReadDir(fn walk.ReadDirFunc) Option {
	return func(c *Coordinator) {
		c.readDir = fn
	}
}

// Coordinator runs at most one active scan generation at a time.
type Coordinator struct {
	pipeline *scanner.Pipeline
	reg      *registry.Registry
	listener Listener
	counter  model.Stats
	readDir  walk.ReadDirFunc

	mx         sync.Mutex
	generation uint64
	current    *Handle
}

// New returns an idle coordinator. The pipeline must have been built over
// reg.
func New(pipeline *scanner.Pipeline, reg *registry.Registry, opts ...Option) *Coordinator {
	c := &Coordinator{
		pipeline: pipeline,
		reg:      reg,
		listener: NopListener{},
		counter:  model.NopStats{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a new generation scanning root. A generation still running
// is asked to abort, Start does not wait for it. Top level directories
// whose names are in excluded are skipped. workers <= 0 means one worker
// per CPU; when there are fewer than two top level directories per worker
// a single worker is used.
//
// The scan runs until it completes, Cancel is called or ctx is done.
// Errors are returned only when root can't be listed, the running
// generation is left untouched then. A root without subdirectories
// completes at once with an empty result.
func (c *Coordinator) Start(ctx context.Context, root string, excluded []string, workers int) (*Handle, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving scan root: %w", err)
	}
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("scan root %s: %w", root, model.ErrNotDir)
	}

	w := walk.New(c.readDir, c.counter)
	top, err := w.List(ctx, root, excluded...)
	if err != nil {
		return nil, fmt.Errorf("listing scan root %s: %w", root, err)
	}

	c.mx.Lock()
	if c.current != nil {
		c.current.abort()
	}
	c.generation++
	gen := c.generation
	st := store.New(c.reg, gen)
	st.Seed(root)

	scanCtx, cancel := context.WithCancel(ctx)
	scanCtx = log.ContextAttrs(scanCtx, slog.Uint64("scan.generation", gen))
	h := &Handle{
		id:     uuid.New(),
		gen:    gen,
		root:   root,
		store:  st,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.current = h
	c.mx.Unlock()
	c.counter.IncScans()

	for _, child := range top.Subdirs {
		st.Seed(child)
		c.listener.ChildDiscovered(gen, root, child)
	}

	if len(top.Subdirs) == 0 {
		slog.DebugContext(scanCtx, "no directories to scan", "root", root)
		c.finish(scanCtx, h)
		return h, nil
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = parallel.Workers(workers, len(top.Subdirs))
	parts := parallel.Partition(top.Subdirs, workers)

	slog.DebugContext(scanCtx, "scan started", "root", root, "children", len(top.Subdirs), "workers", len(parts))
	h.remaining.Store(int32(len(parts)))
	for i, slice := range parts {
		var rootFiles []string
		if i == 0 {
			rootFiles = top.Files
		}
		go c.work(scanCtx, h, w, slice, rootFiles)
	}
	return h, nil
}

// Cancel asks the generation of h to stop. It does nothing when the
// generation is over and never waits for the workers.
func (c *Coordinator) Cancel(h *Handle) {
	if h == nil {
		return
	}
	h.abort()
}

// CancelCurrent cancels the latest generation, if any.
func (c *Coordinator) CancelCurrent() {
	c.Cancel(c.Current())
}

// Current returns the handle of the latest generation or nil when no scan
// has been started yet.
func (c *Coordinator) Current() *Handle {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.current
}

// State is StateRunning while the latest generation runs and StateIdle
// otherwise. The outcome of a finished generation is reported by its
// Handle.
func (c *Coordinator) State() State {
	h := c.Current()
	if h == nil {
		return StateIdle
	}
	if st := h.State(); st != StateRunning {
		return StateIdle
	}
	return StateRunning
}

func (c *Coordinator) work(ctx context.Context, h *Handle, w walk.Walker, slice []string, rootFiles []string) {
	defer c.workerDone(ctx, h)
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "scan worker panicked", "panic", r)
			h.failed.Store(true)
		}
	}()

	if h.aborted(ctx) {
		return
	}
	st := h.store
	if len(slice) > 0 {
		st.Increase(h.root, scanner.StatDirCount, float64(len(slice)))
	}
	for _, f := range rootFiles {
		c.scanFile(ctx, f, st)
	}

	for dir, err := range w.Tree(ctx, slice...) {
		if h.aborted(ctx) {
			return
		}
		if err != nil {
			slog.DebugContext(ctx, "can't list directory: skipping", "path", dir.Path, "error", err)
			continue
		}
		for _, sub := range dir.Subdirs {
			if st.Seed(sub) {
				c.listener.ChildDiscovered(h.gen, dir.Path, sub)
			}
		}
		if len(dir.Subdirs) > 0 {
			st.Increase(dir.Path, scanner.StatDirCount, float64(len(dir.Subdirs)))
		}
		for _, f := range dir.Files {
			c.scanFile(ctx, f, st)
		}
	}
}

func (c *Coordinator) scanFile(ctx context.Context, path string, st *store.Store) {
	if !c.pipeline.Scan(ctx, path, st) {
		c.counter.IncErrFiles()
	}
}

func (c *Coordinator) workerDone(ctx context.Context, h *Handle) {
	if h.remaining.Add(-1) != 0 {
		return
	}
	c.finish(ctx, h)
}

// finish is called exactly once per generation.
func (c *Coordinator) finish(ctx context.Context, h *Handle) {
	success := !h.aborted(ctx) && !h.failed.Load()
	h.result = Result{Generation: h.gen, Success: success}
	if !success {
		c.counter.IncAbortedScans()
	}
	slog.DebugContext(ctx, "scan finished", "success", success)
	c.listener.ScanFinished(h.result)
	h.cancel()
	close(h.done)
}
