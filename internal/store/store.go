// Package store keeps the accumulated stat values of every scanned directory.
//
// Nodes are keyed by path. An increment made against a path is applied to
// the path itself and then to each ancestor that has a node, stopping at the
// first ancestor without one. As the coordinator seeds the scan root and
// every directory below it, this yields roll-up totals at every level while
// never leaking above the root.
package store

import (
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/samtupy/folderstats/internal/registry"
)

type node struct {
	mx         sync.Mutex
	values     map[string]float64
	attachment any
}

// Store is safe for concurrent use. The node map is guarded by a RWMutex,
// values of each node by the node's own mutex, so increments on the same
// (path, stat) pair are serialized and never lost.
type Store struct {
	reg        *registry.Registry
	generation uint64

	mx    sync.RWMutex
	nodes map[string]*node
}

// New creates an empty store bound to reg. The generation tags the scan the
// store belongs to.
func New(reg *registry.Registry, generation uint64) *Store {
	return &Store{
		reg:        reg,
		generation: generation,
		nodes:      make(map[string]*node),
	}
}

func (s *Store) Registry() *registry.Registry {
	return s.reg
}

func (s *Store) Generation() uint64 {
	return s.generation
}

// Seed creates an empty node for path. It returns false if the node already
// existed.
func (s *Store) Seed(path string) bool {
	path = filepath.Clean(path)
	s.mx.Lock()
	defer s.mx.Unlock()
	if _, ok := s.nodes[path]; ok {
		return false
	}
	s.nodes[path] = &node{values: make(map[string]float64)}
	return true
}

// Has reports whether path has been seeded.
func (s *Store) Has(path string) bool {
	_, ok := s.lookup(filepath.Clean(path))
	return ok
}

// Len returns the number of seeded nodes.
func (s *Store) Len() int {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return len(s.nodes)
}

// Paths returns all seeded paths in lexical order.
func (s *Store) Paths() []string {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return slices.Sorted(maps.Keys(s.nodes))
}

// Increase adds amount to stat id of path and of every seeded ancestor of
// path, stopping at the first ancestor without a node. Path itself does not
// need a node, so file paths may be passed directly. Unknown ids are
// ignored.
func (s *Store) Increase(path, id string, amount float64) {
	if !s.reg.Has(id) {
		return
	}

	s.mx.RLock()
	defer s.mx.RUnlock()

	cur := filepath.Clean(path)
	for {
		if n, ok := s.nodes[cur]; ok {
			n.mx.Lock()
			n.values[id] += amount
			n.mx.Unlock()
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return
		}
		if _, ok := s.nodes[parent]; !ok {
			return
		}
		cur = parent
	}
}

// Value returns the accumulated value of stat id at path.
func (s *Store) Value(path, id string) (float64, bool) {
	n, ok := s.lookup(filepath.Clean(path))
	if !ok {
		return 0, false
	}
	n.mx.Lock()
	defer n.mx.Unlock()
	v, ok := n.values[id]
	return v, ok
}

// Values returns a snapshot of all stats recorded at path, or nil if path
// is unknown.
func (s *Store) Values(path string) map[string]float64 {
	n, ok := s.lookup(filepath.Clean(path))
	if !ok {
		return nil
	}
	n.mx.Lock()
	defer n.mx.Unlock()
	return maps.Clone(n.values)
}

// Attach stores an opaque value on the node of path. The store never
// interprets it. Returns false when path is unknown.
func (s *Store) Attach(path string, v any) bool {
	n, ok := s.lookup(filepath.Clean(path))
	if !ok {
		return false
	}
	n.mx.Lock()
	n.attachment = v
	n.mx.Unlock()
	return true
}

// Attachment returns the value stored by Attach.
func (s *Store) Attachment(path string) (any, bool) {
	n, ok := s.lookup(filepath.Clean(path))
	if !ok {
		return nil, false
	}
	n.mx.Lock()
	defer n.mx.Unlock()
	return n.attachment, n.attachment != nil
}

// Render returns the human readable summary of path: the path followed by
// one line per stat in the registry display order. It can be called at any
// time, mid-scan it shows what has been accumulated so far. Unknown paths
// render as an empty string.
func (s *Store) Render(path string) string {
	path = filepath.Clean(path)
	values := s.Values(path)
	if values == nil {
		return ""
	}

	var sb strings.Builder
	for _, id := range s.reg.DisplayOrder() {
		v, ok := values[id]
		if !ok {
			continue
		}
		line := s.reg.FormatValue(id, v)
		if line == "" {
			continue
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if sb.Len() == 0 {
		return "No available stats for " + path
	}
	return path + ":\n" + sb.String()
}

func (s *Store) lookup(path string) (*node, bool) {
	s.mx.RLock()
	defer s.mx.RUnlock()
	n, ok := s.nodes[path]
	return n, ok
}
