// Package server exposes the scan coordinator over HTTP.
package server

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/samtupy/folderstats/internal/log"
	"github.com/samtupy/folderstats/internal/model"
	"github.com/samtupy/folderstats/internal/scan"
)

const shutdownTimeout = 5 * time.Second

//go:generate mockgen -destination=./mock/coordinator.go -package=mock github.com/samtupy/folderstats/internal/server CoordinatorContract
type CoordinatorContract interface {
	Start(ctx context.Context, root string, excluded []string, workers int) (*scan.Handle, error)
	Current() *scan.Handle
	CancelCurrent()
}

type Server struct {
	// scans outlive the requests which started them
	ctx      context.Context
	cfg      model.Config
	coord    CoordinatorContract
	children *Children
}

// New returns a server starting scans within ctx. children must be the
// listener the coordinator was built with, it is bound to coord here.
func New(ctx context.Context, cfg model.Config, coord CoordinatorContract, children *Children) *Server {
	if children == nil {
		children = NewChildren()
	}
	children.bind(coord.Current)
	return &Server{
		ctx:      ctx,
		cfg:      cfg,
		coord:    coord,
		children: children,
	}
}

func (s *Server) Handler() *mux.Router {
	r := mux.NewRouter()
	r.Use(httpInfoContext)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/scans", s.startScan).Methods(http.MethodPost)
	api.HandleFunc("/scans/current", s.currentScan).Methods(http.MethodGet)
	api.HandleFunc("/scans/current", s.cancelScan).Methods(http.MethodDelete)
	api.HandleFunc("/stats", s.stats).Methods(http.MethodGet)
	api.HandleFunc("/children", s.listChildren).Methods(http.MethodGet)

	r.Handle("/debug/vars", expvar.Handler()).Methods(http.MethodGet)
	return r
}

// ListenAndServe serves the API on cfg.Service.Server.Addr until ctx is
// done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Service.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "starting http server", slog.String("addr", srv.Addr))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.InfoContext(ctx, "http server shutdown gracefully")
	return nil
}

func httpInfoContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := log.ContextAttrs(r.Context(), slog.Group("http-info",
			slog.String("method", r.Method),
			slog.String("url-path", r.URL.Path),
		))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Children records the directories discovered by the latest scan
// generation, in the order they were reported. The lists live in the
// attachment slot of the parent node in the generation's store, so they
// go away with it. It is a scan.Listener; New binds it to the coordinator
// and notifications received before that are dropped.
type Children struct {
	mx      sync.Mutex
	current func() *scan.Handle
}

func NewChildren() *Children {
	return &Children{}
}

func (c *Children) bind(current func() *scan.Handle) {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.current = current
}

func (c *Children) ChildDiscovered(generation uint64, parent, child string) {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.current == nil {
		return
	}
	h := c.current()
	if h == nil || h.Generation() != generation {
		slog.Debug("stale child notification", "generation", generation, "path", child)
		return
	}
	v, _ := h.Store().Attachment(parent)
	list, _ := v.([]string)
	if !h.Store().Attach(parent, append(list, child)) {
		slog.Debug("child of unknown parent", "generation", generation, "parent", parent)
	}
}

func (c *Children) ScanFinished(res scan.Result) {
	slog.Info("scan finished", "generation", res.Generation, "success", res.Success)
}

// Of returns a copy of the children of parent discovered by the generation
// of h. Nil means parent has no subdirectories or was not scanned.
func (c *Children) Of(h *scan.Handle, parent string) []string {
	c.mx.Lock()
	defer c.mx.Unlock()
	v, _ := h.Store().Attachment(parent)
	list, _ := v.([]string)
	return slices.Clone(list)
}
