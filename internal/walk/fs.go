// Package walk lists directories for the scan workers.
package walk

import (
	"context"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/samtupy/folderstats/internal/model"
)

// ReadDirFunc lists a directory, os.ReadDir is the default.
type ReadDirFunc func(name string) ([]fs.DirEntry, error)

// Dir is a single listed directory. Subdirectories and regular files are
// returned as absolute paths in the order of the listing. Symbolic links
// to regular files are files, links to directories are never followed.
// Broken links and other special files are left out.
type Dir struct {
	Path    string
	Subdirs []string
	Files   []string
}

// Walker lists directories and walks trees depth first.
type Walker struct {
	readDir ReadDirFunc
	counter model.Stats
}

// New returns a Walker. A nil readDir means os.ReadDir, a nil counter
// disables counting.
func New(readDir ReadDirFunc, counter model.Stats) Walker {
	if readDir == nil {
		readDir = os.ReadDir
	}
	if counter == nil {
		counter = model.NopStats{}
	}
	return Walker{readDir: readDir, counter: counter}
}

// List reads a single directory. Names in exclude are dropped from the
// subdirectories.
func (w Walker) List(ctx context.Context, path string, exclude ...string) (Dir, error) {
	entries, err := w.readDir(path)
	if err != nil {
		w.counter.IncErrDirs()
		return Dir{Path: path}, err
	}
	w.counter.IncDirs()

	dir := Dir{Path: path}
	for _, e := range entries {
		switch t := e.Type(); {
		case t.IsDir():
			if slices.Contains(exclude, e.Name()) {
				slog.DebugContext(ctx, "directory excluded", "name", e.Name())
				continue
			}
			dir.Subdirs = append(dir.Subdirs, filepath.Join(path, e.Name()))
		case t.IsRegular():
			w.counter.IncFiles()
			dir.Files = append(dir.Files, filepath.Join(path, e.Name()))
		case t&fs.ModeSymlink != 0:
			name := filepath.Join(path, e.Name())
			info, err := os.Stat(name)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			w.counter.IncFiles()
			dir.Files = append(dir.Files, name)
		default:
			// sockets, devices, pipes
		}
	}
	return dir, nil
}

// Tree walks every directory below and including roots depth first, in
// pre-order, yielding each directory before its children. A directory
// which can't be listed is yielded with the error and not descended into.
// The walk stops when ctx is done or yield returns false; the caller
// polls its own cancellation between directories.
func (w Walker) Tree(ctx context.Context, roots ...string) iter.Seq2[Dir, error] {
	return func(yield func(Dir, error) bool) {
		stack := make([]string, 0, len(roots))
		for i := len(roots) - 1; i >= 0; i-- {
			stack = append(stack, roots[i])
		}
		for len(stack) > 0 {
			if ctx.Err() != nil {
				return
			}
			path := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			dir, err := w.List(ctx, path)
			if !yield(dir, err) {
				return
			}
			for i := len(dir.Subdirs) - 1; i >= 0; i-- {
				stack = append(stack, dir.Subdirs[i])
			}
		}
	}
}
