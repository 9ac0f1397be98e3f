package main

import (
	"context"
	"maps"
	"os"
	"path/filepath"
	"testing"

	"github.com/samtupy/folderstats/internal/model"
	"github.com/samtupy/folderstats/internal/stats"

	"github.com/stretchr/testify/require"
)

func TestApp_ScanOnce(t *testing.T) {
	root := t.TempDir()
	for name, content := range map[string]string{
		"docs/readme.md": "# title\n\nbody\n",
		"docs/img.bin":   "\x00\x01\x02",
		"music/x.mp3":    "not really an mp3",
		"top.txt":        "single\n",
	} {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	counter := stats.New(t.Name())
	cfg := model.DefaultConfig()
	cfg.Scan.Root = root
	app, err := NewApp(cfg.Scan, counter, nil)
	require.NoError(t, err)

	res, h, err := app.ScanOnce(t.Context(), cfg.Scan)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, uint64(1), res.Generation)

	require.Equal(t, root+":\n"+
		"2 directories\n"+
		"4 lines of text\n"+
		"4 files\n"+
		"41.0B of data\n",
		h.Store().Render(root))

	got := maps.Collect(counter.Stats())
	require.Equal(t, "1", got[t.Name()+model.StatsScansTotal])
	require.Equal(t, "3", got[t.Name()+model.StatsDirsTotal])
	require.Equal(t, "4", got[t.Name()+model.StatsFilesTotal])
	require.Equal(t, "0", got[t.Name()+model.StatsScansAborted])
	require.Equal(t, "0", got[t.Name()+model.StatsFilesErr])

	app.Shutdown()
}

func TestApp_ScanOnceCanceled(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))

	app, err := NewApp(model.DefaultConfig().Scan, model.NopStats{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	res, _, err := app.ScanOnce(ctx, model.Scan{Root: root})
	require.NoError(t, err)
	require.False(t, res.Success)
}

func TestApp_Errors(t *testing.T) {
	_, err := NewApp(model.Scan{}, nil, nil)
	require.Error(t, err)

	app, err := NewApp(model.Scan{}, model.NopStats{}, nil)
	require.NoError(t, err)
	_, _, err = app.ScanOnce(t.Context(), model.Scan{Root: filepath.Join(t.TempDir(), "missing")})
	require.ErrorIs(t, err, os.ErrNotExist)

	// nothing to shut down
	app.Shutdown()
}
