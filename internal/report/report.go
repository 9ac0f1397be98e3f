// Package report prints the result of a finished scan.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samtupy/folderstats/internal/model"
	"github.com/samtupy/folderstats/internal/scan"
	"github.com/samtupy/folderstats/internal/store"
)

// Report is a snapshot of a scan store, limited to a depth below the root.
type Report struct {
	Root       string `json:"root" yaml:"root"`
	Generation uint64 `json:"generation" yaml:"generation"`
	Success    bool   `json:"success" yaml:"success"`
	Dirs       []Dir  `json:"dirs" yaml:"dirs"`
}

// Dir holds the stats of one directory.
type Dir struct {
	Path  string `json:"path" yaml:"path"`
	Depth int    `json:"depth" yaml:"depth"`
	Stats []Stat `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// Stat is a single value, Text is the formatted line shown to people.
type Stat struct {
	ID    string  `json:"id" yaml:"id"`
	Value float64 `json:"value" yaml:"value"`
	Text  string  `json:"text" yaml:"text"`
}

// New builds a report of root and every directory at most depth levels
// below it. Directories are listed depth first, siblings in lexical order,
// stats in display order.
func New(st *store.Store, root string, depth int, res scan.Result) Report {
	root = filepath.Clean(root)
	paths := make([]string, 0, st.Len())
	for _, p := range st.Paths() {
		if d, ok := level(root, p); ok && d <= depth {
			paths = append(paths, p)
		}
	}
	slices.SortFunc(paths, treeOrder)

	reg := st.Registry()
	order := reg.DisplayOrder()
	r := Report{
		Root:       root,
		Generation: res.Generation,
		Success:    res.Success,
		Dirs:       make([]Dir, 0, len(paths)),
	}
	for _, p := range paths {
		d, _ := level(root, p)
		values := st.Values(p)
		dir := Dir{Path: p, Depth: d}
		for _, id := range order {
			v, ok := values[id]
			if !ok {
				continue
			}
			text := reg.FormatValue(id, v)
			if text == "" {
				continue
			}
			dir.Stats = append(dir.Stats, Stat{ID: id, Value: v, Text: text})
		}
		r.Dirs = append(r.Dirs, dir)
	}
	return r
}

// Write encodes r in format, one of model.OutputText, model.OutputJSON or
// model.OutputYAML.
func Write(w io.Writer, format string, r Report) error {
	switch format {
	case model.OutputText, "":
		return writeText(w, r)
	case model.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case model.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("output format %q: %w", format, model.ErrUnsupported)
	}
}

// writeText prints the same lines as store.Render, nested directories
// indented by their depth.
func writeText(w io.Writer, r Report) error {
	var sb strings.Builder
	for _, d := range r.Dirs {
		indent := strings.Repeat("  ", d.Depth)
		if len(d.Stats) == 0 {
			sb.WriteString(indent + "No available stats for " + d.Path + "\n")
			continue
		}
		sb.WriteString(indent + d.Path + ":\n")
		for _, s := range d.Stats {
			sb.WriteString(indent + s.Text + "\n")
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// level returns how many levels below root path is.
func level(root, path string) (int, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return 0, false
	}
	if rel == "." {
		return 0, true
	}
	return strings.Count(rel, string(filepath.Separator)) + 1, true
}

// treeOrder compares paths element by element, so a directory is followed
// by its whole subtree before its next sibling.
func treeOrder(a, b string) int {
	return slices.Compare(
		strings.Split(filepath.ToSlash(a), "/"),
		strings.Split(filepath.ToSlash(b), "/"),
	)
}
