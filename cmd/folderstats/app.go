package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samtupy/folderstats/internal/audio"
	"github.com/samtupy/folderstats/internal/model"
	"github.com/samtupy/folderstats/internal/registry"
	"github.com/samtupy/folderstats/internal/scan"
	"github.com/samtupy/folderstats/internal/scanner"
)

// App is a component, which wires the scanners into a coordinator.
type App struct {
	coord *scan.Coordinator
}

func NewApp(config model.Scan, counter model.Stats, listener scan.Listener) (*App, error) {
	if counter == nil {
		return nil, fmt.Errorf("counter is nil")
	}
	reg := registry.New()
	pipeline := scanner.NewPipeline(reg,
		scanner.Audio{Extractor: audio.NewFiles()},
		scanner.NewText(config.TextExtensions...),
		scanner.Basic{Counter: counter},
	)

	opts := []scan.Option{scan.WithStats(counter)}
	if listener != nil {
		opts = append(opts, scan.WithListener(listener))
	}
	return &App{
		coord: scan.New(pipeline, reg, opts...),
	}, nil
}

func (a *App) Coordinator() *scan.Coordinator {
	return a.coord
}

// ScanOnce scans config.Root and waits for the result. When ctx is done the
// scan is aborted and the unsuccessful result is returned.
func (a *App) ScanOnce(ctx context.Context, config model.Scan) (scan.Result, *scan.Handle, error) {
	h, err := a.coord.Start(ctx, config.Root, config.Exclude, config.Workers)
	if err != nil {
		return scan.Result{}, nil, err
	}
	slog.DebugContext(ctx, "scan started", "root", h.Root(), "id", h.ID().String())
	<-h.Done()
	res, _ := h.Result()
	return res, h, nil
}

// Shutdown aborts the running scan and waits for its workers.
func (a *App) Shutdown() {
	h := a.coord.Current()
	if h == nil {
		return
	}
	a.coord.Cancel(h)
	<-h.Done()
}
