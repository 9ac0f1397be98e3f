// Package registry holds the catalog of stat definitions: how a measured
// quantity is named, ordered and rendered. It does not hold any values.
package registry

import (
	"slices"
	"sync"
)

// Kind tells how a stat value is interpreted when rendered.
type Kind int

const (
	// KindNumeric is a plain number substituted into the format.
	KindNumeric Kind = iota
	// KindElapsed is a number of seconds rendered as "1 hour, 1 minute, and 1 second".
	KindElapsed
	// KindSize is a number of bytes rendered with a binary unit, like "1.5KB".
	KindSize
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindElapsed:
		return "elapsed"
	case KindSize:
		return "size"
	default:
		return "unknown"
	}
}

// Definition describes a single stat. Format is a fmt template with exactly
// one %s verb, which receives the already formatted value.
type Definition struct {
	ID          string
	Format      string
	Kind        Kind
	PrintIfZero bool
}

// Registry is an append-only, ordered catalog of stat definitions. It is
// safe for concurrent use: scanners may define new ids while a scan runs.
type Registry struct {
	mx    sync.RWMutex
	defs  map[string]Definition
	order []string
}

func New() *Registry {
	return &Registry{
		defs: make(map[string]Definition),
	}
}

// Define inserts def unless a definition with the same id already exists.
// A non-empty after places the new id immediately behind the current
// position of after; an unknown or empty after appends it. Define returns
// true only for the call which actually inserted the definition.
func (r *Registry) Define(def Definition, after string) bool {
	r.mx.Lock()
	defer r.mx.Unlock()

	if _, ok := r.defs[def.ID]; ok {
		return false
	}

	idx := len(r.order)
	if after != "" {
		if pos := slices.Index(r.order, after); pos >= 0 {
			idx = pos + 1
		}
	}
	r.order = slices.Insert(r.order, idx, def.ID)
	r.defs[def.ID] = def
	return true
}

// Lookup returns the definition registered under id.
func (r *Registry) Lookup(id string) (Definition, bool) {
	r.mx.RLock()
	defer r.mx.RUnlock()
	def, ok := r.defs[id]
	return def, ok
}

// Has reports whether id has been defined.
func (r *Registry) Has(id string) bool {
	_, ok := r.Lookup(id)
	return ok
}

// DisplayOrder returns a copy of the ids in their display order.
func (r *Registry) DisplayOrder() []string {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return slices.Clone(r.order)
}

// Len returns the number of definitions.
func (r *Registry) Len() int {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return len(r.order)
}

// FormatValue renders value according to the definition of id. An empty
// string means the line should be suppressed: either the id is unknown or
// the value is zero and the definition does not print zeroes.
func (r *Registry) FormatValue(id string, value float64) string {
	def, ok := r.Lookup(id)
	if !ok {
		return ""
	}
	return def.FormatValue(value)
}
