// Package log configures log/slog for folderstats and carries log
// attributes through a context.Context.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
)

type ctxKey struct{}

// New returns a JSON logger writing to stderr. Verbose enables debug level.
func New(verbose bool) *slog.Logger {
	return NewWriter(os.Stderr, verbose)
}

// NewWriter returns a JSON logger writing to w. Attributes stored by
// ContextAttrs are added to every record.
func NewWriter(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	base := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(NewContextHandler(base))
}

// Open resolves a log destination: "stderr", "stdout", "discard" or a file
// path, which is appended to. The returned close function must be called
// when the logger is no longer used.
func Open(dest string, verbose bool) (*slog.Logger, func() error, error) {
	nop := func() error { return nil }
	switch dest {
	case "", "stderr":
		return NewWriter(os.Stderr, verbose), nop, nil
	case "stdout":
		return NewWriter(os.Stdout, verbose), nop, nil
	case "discard":
		return slog.New(slog.DiscardHandler), nop, nil
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nop, fmt.Errorf("opening log file: %w", err)
	}
	return NewWriter(f, verbose), f.Close, nil
}

// ContextAttrs returns a copy of ctx carrying attrs in addition to those
// already stored in ctx.
func ContextAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}
	prev, _ := ctx.Value(ctxKey{}).([]slog.Attr)
	return context.WithValue(ctx, ctxKey{}, append(slices.Clip(prev), attrs...))
}

// ContextHandler adds attributes stored by ContextAttrs to each record.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) ContextHandler {
	return ContextHandler{Handler: h}
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithGroup(name)}
}
