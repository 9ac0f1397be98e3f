// Package scanner turns single files into stat increments.
//
// A Pipeline runs scanners in a fixed priority order and stops at the first
// one which reports the file as handled. The generic Basic scanner is always
// the last one, so every file is accounted for at least by it.
package scanner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samtupy/folderstats/internal/log"
	"github.com/samtupy/folderstats/internal/registry"
	"github.com/samtupy/folderstats/internal/store"
)

// Scanner inspects a single file.
type Scanner interface {
	// Define registers the stats the scanner records. It is called once,
	// before any scan starts. Scanners may define more stats later from
	// Scan, through st.Registry().
	Define(reg *registry.Registry)
	// Scan records the stats of the file at path into st. It returns true
	// when the file has been fully accounted for and no other scanner
	// should look at it. Failures must not escape: a scanner which can't
	// read a file records nothing and returns false.
	Scan(ctx context.Context, path string, st *store.Store) bool
}

// Pipeline is an ordered list of scanners ending with Basic.
type Pipeline struct {
	scanners []Scanner
}

// NewPipeline defines the stats of all scanners in reg and returns a
// pipeline running them in the given order, followed by Basic. A Basic
// scanner found in scanners is moved to the end.
func NewPipeline(reg *registry.Registry, scanners ...Scanner) *Pipeline {
	var last Scanner = Basic{}
	ordered := make([]Scanner, 0, len(scanners)+1)
	for _, s := range scanners {
		if s == nil {
			continue
		}
		if b, ok := s.(Basic); ok {
			last = b
			continue
		}
		ordered = append(ordered, s)
	}
	// dir_count is recorded by the coordinator, the pipeline owns its definition
	reg.Define(registry.Definition{ID: StatDirCount, Format: "%s directories"}, "")
	ordered = append(ordered, last)
	for _, s := range ordered {
		s.Define(reg)
	}
	return &Pipeline{scanners: ordered}
}

// Scanners returns the scanners in the order they run.
func (p *Pipeline) Scanners() []Scanner {
	return append([]Scanner(nil), p.scanners...)
}

// Scan runs the scanners for a single file. It returns true when one of
// them handled the file.
func (p *Pipeline) Scan(ctx context.Context, path string, st *store.Store) bool {
	ctx = log.ContextAttrs(ctx, slog.String("path", path))
	for _, s := range p.scanners {
		if scanOne(ctx, s, path, st) {
			return true
		}
	}
	return false
}

func scanOne(ctx context.Context, s Scanner, path string, st *store.Store) (handled bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.WarnContext(ctx, "scanner panicked: skipping", "scanner", fmt.Sprintf("%T", s), "panic", r)
			handled = false
		}
	}()
	return s.Scan(ctx, path, st)
}
