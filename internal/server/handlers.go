package server

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"

	pd "github.com/kodeart/go-problem/v2"

	"github.com/samtupy/folderstats/internal/model"
	"github.com/samtupy/folderstats/internal/scan"
)

type startScanRequest struct {
	Root    string   `json:"root"`
	Exclude []string `json:"exclude,omitempty"`
	Workers *int     `json:"workers,omitempty"`
}

type startScanResponse struct {
	ID         string `json:"id"`
	Generation uint64 `json:"generation"`
}

type scanResponse struct {
	ID         string `json:"id"`
	Generation uint64 `json:"generation"`
	Root       string `json:"root"`
	State      string `json:"state"`
	Success    *bool  `json:"success,omitempty"`
}

func (s *Server) startScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var request startScanRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			slog.DebugContext(ctx, "decoding request failed", slog.String("error", err.Error()))
			problem(w, http.StatusBadRequest, "Failed to decode request: "+err.Error())
			return
		}
	}

	root := request.Root
	if root == "" {
		root = s.cfg.Scan.Root
	}
	if root == "" {
		problem(w, http.StatusBadRequest, "Missing scan root.")
		return
	}
	exclude := request.Exclude
	if exclude == nil {
		exclude = s.cfg.Scan.Exclude
	}
	workers := s.cfg.Scan.Workers
	if request.Workers != nil {
		workers = *request.Workers
	}
	if workers < 0 {
		problem(w, http.StatusBadRequest, "Workers must not be negative.")
		return
	}

	h, err := s.coord.Start(s.ctx, root, exclude, workers)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		problem(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, model.ErrNotDir):
		problem(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.ErrorContext(ctx, "starting scan failed", slog.String("error", err.Error()))
		problem(w, http.StatusInternalServerError, err.Error())
		return
	}

	slog.InfoContext(ctx, "scan started", "root", h.Root(), "generation", h.Generation())
	toJson(ctx, w, http.StatusAccepted, startScanResponse{
		ID:         h.ID().String(),
		Generation: h.Generation(),
	})
}

func (s *Server) currentScan(w http.ResponseWriter, r *http.Request) {
	h := s.coord.Current()
	if h == nil {
		problem(w, http.StatusNotFound, "No scan has been started.")
		return
	}
	resp := scanResponse{
		ID:         h.ID().String(),
		Generation: h.Generation(),
		Root:       h.Root(),
		State:      h.State().String(),
	}
	if res, ok := h.Result(); ok {
		resp.Success = &res.Success
	}
	toJson(r.Context(), w, http.StatusOK, resp)
}

func (s *Server) cancelScan(w http.ResponseWriter, r *http.Request) {
	if s.coord.Current() == nil {
		problem(w, http.StatusNotFound, "No scan has been started.")
		return
	}
	s.coord.CancelCurrent()
	slog.InfoContext(r.Context(), "scan cancel requested")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	h, path, ok := s.lookup(w, r)
	if !ok {
		return
	}
	text := h.Store().Render(path)
	if text == "" {
		problem(w, http.StatusNotFound, "Path "+path+" was not scanned.")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func (s *Server) listChildren(w http.ResponseWriter, r *http.Request) {
	h, path, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if !h.Store().Has(path) {
		problem(w, http.StatusNotFound, "Path "+path+" was not scanned.")
		return
	}
	children := s.children.Of(h, path)
	if children == nil {
		children = []string{}
	}
	toJson(r.Context(), w, http.StatusOK, children)
}

// lookup resolves the current scan and the path query parameter, which
// defaults to the scan root.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*scan.Handle, string, bool) {
	h := s.coord.Current()
	if h == nil {
		problem(w, http.StatusNotFound, "No scan has been started.")
		return nil, "", false
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		return h, h.Root(), true
	}
	return h, filepath.Clean(path), true
}

func problem(w http.ResponseWriter, status int, detail string) {
	p := pd.Problem{
		Status: status,
		Detail: detail,
	}
	p.JSON(w)
}

func toJson(ctx context.Context, w http.ResponseWriter, status int, resp any) {
	b, err := json.Marshal(resp)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to marshal structure to json.", slog.String("error", err.Error()))
		problem(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
