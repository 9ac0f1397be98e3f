package scan

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/samtupy/folderstats/internal/store"
)

// Handle refers to one scan generation.
type Handle struct {
	id     uuid.UUID
	gen    uint64
	root   string
	store  *store.Store
	cancel context.CancelFunc

	stop      atomic.Bool
	failed    atomic.Bool
	remaining atomic.Int32

	// result is written once before done is closed
	result Result
	done   chan struct{}
}

func (h *Handle) ID() uuid.UUID {
	return h.id
}

func (h *Handle) Generation() uint64 {
	return h.gen
}

// Root is the absolute path of the scanned directory.
func (h *Handle) Root() string {
	return h.root
}

// Store holds the stats of this generation. It may be read at any time,
// including while the scan runs.
func (h *Handle) Store() *store.Store {
	return h.store
}

// Done is closed after ScanFinished has been delivered.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result returns the outcome, the second value is false while the scan runs.
func (h *Handle) Result() (Result, bool) {
	select {
	case <-h.done:
		return h.result, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the generation finishes or ctx is done.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (h *Handle) State() State {
	res, ok := h.Result()
	switch {
	case !ok:
		return StateRunning
	case res.Success:
		return StateCompleted
	default:
		return StateAborted
	}
}

func (h *Handle) abort() {
	select {
	case <-h.done:
		return
	default:
	}
	h.stop.Store(true)
	h.cancel()
}

func (h *Handle) aborted(ctx context.Context) bool {
	return h.stop.Load() || ctx.Err() != nil
}
