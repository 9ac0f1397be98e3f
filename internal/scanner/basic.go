package scanner

import (
	"context"
	"log/slog"
	"os"

	"github.com/samtupy/folderstats/internal/model"
	"github.com/samtupy/folderstats/internal/registry"
	"github.com/samtupy/folderstats/internal/store"
)

const (
	StatDirCount  = "dir_count"
	StatFileCount = "file_count"
	StatFileSize  = "file_size"
)

// Basic counts every file and its size. It is the catch-all scanner and
// always reports the file as handled. Files which can't be stat'ed are
// counted, but add no size, and are reported to Counter when set.
type Basic struct {
	Counter model.Stats
}

func (Basic) Define(reg *registry.Registry) {
	reg.Define(registry.Definition{ID: StatFileCount, Format: "%s files"}, "")
	reg.Define(registry.Definition{ID: StatFileSize, Format: "%s of data", Kind: registry.KindSize}, "")
}

func (b Basic) Scan(ctx context.Context, path string, st *store.Store) bool {
	st.Increase(path, StatFileCount, 1)
	info, err := os.Stat(path)
	if err != nil {
		slog.DebugContext(ctx, "stat failed: size not counted", "error", err)
		if b.Counter != nil {
			b.Counter.IncErrFiles()
		}
		return true
	}
	st.Increase(path, StatFileSize, float64(info.Size()))
	return true
}
