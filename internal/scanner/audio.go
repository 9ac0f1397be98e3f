package scanner

import (
	"context"
	"log/slog"

	"github.com/samtupy/folderstats/internal/audio"
	"github.com/samtupy/folderstats/internal/registry"
	"github.com/samtupy/folderstats/internal/store"
)

const StatAudio = "audio"

// AudioFormatStat returns the id of the per-format audio duration stat.
func AudioFormatStat(format string) string {
	return StatAudio + "_" + format
}

// Audio sums the playback duration of audio files, in total and per
// format. The per-format stats are defined lazily, the first time a file
// of that format is seen. Audio never handles a file, so it is still
// counted by Basic.
type Audio struct {
	Extractor audio.Extractor
}

func (Audio) Define(reg *registry.Registry) {
	reg.Define(registry.Definition{ID: StatAudio, Format: "%s of audio in total", Kind: registry.KindElapsed}, "")
}

func (a Audio) Scan(ctx context.Context, path string, st *store.Store) bool {
	if a.Extractor == nil || !a.Extractor.Supported(path) {
		return false
	}
	info, err := a.Extractor.Extract(path)
	if err != nil {
		slog.DebugContext(ctx, "audio extraction failed", "error", err)
		return false
	}
	if info.Duration <= 0 {
		return false
	}
	format := info.Format
	if format == "" {
		format = audio.Format(path)
	}

	id := AudioFormatStat(format)
	st.Registry().Define(registry.Definition{
		ID:     id,
		Format: "%s of " + format + " audio in total",
		Kind:   registry.KindElapsed,
	}, StatAudio)

	st.Increase(path, StatAudio, info.Duration)
	st.Increase(path, id, info.Duration)
	return false
}
