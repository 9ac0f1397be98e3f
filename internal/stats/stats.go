package stats

import (
	"expvar"
	"iter"
	"maps"
	"slices"
)

// Stats holds expvar-backed counters for the scanning process and publishes
// them under a common key prefix. All counters are expvar.Map and are safe for
// concurrent updates. When the standard expvar HTTP handler is registered,
// these values are available at /debug/vars.
//
// - folderstats_scans_total: scans started
// - folderstats_scans_aborted: scans which finished with success:false
// - folderstats_dirs_total: directories listed by workers
// - folderstats_dirs_errors: directories which could not be listed
// - folderstats_files_total: regular files found by workers
// - folderstats_files_errors: files which could not be stat'ed or scanned
type Stats struct {
	prefix string
	root   *expvar.Map
	scans  *expvar.Map
	dirs   *expvar.Map
	files  *expvar.Map
}

// New publishes new set of metrics. Registering the same metrics twice causes panic, so for tests, the prefix should be unique.
func New(prefix string) *Stats {
	root := expvar.NewMap(prefix)
	scans := new(expvar.Map).Init()
	dirs := new(expvar.Map).Init()
	files := new(expvar.Map).Init()

	scans.Add("total", 0)
	scans.Add("aborted", 0)

	dirs.Add("total", 0)
	dirs.Add("errors", 0)

	files.Add("total", 0)
	files.Add("errors", 0)

	root.Set("scans", scans)
	root.Set("dirs", dirs)
	root.Set("files", files)

	return &Stats{
		prefix: prefix,
		root:   root,
		scans:  scans,
		dirs:   dirs,
		files:  files,
	}
}

func (s *Stats) IncScans() {
	s.scans.Add("total", 1)
}
func (s *Stats) IncAbortedScans() {
	s.scans.Add("aborted", 1)
}
func (s *Stats) IncDirs() {
	s.dirs.Add("total", 1)
}
func (s *Stats) IncErrDirs() {
	s.dirs.Add("errors", 1)
}
func (s *Stats) IncFiles() {
	s.files.Add("total", 1)
}
func (s *Stats) IncErrFiles() {
	s.files.Add("errors", 1)
}

// Stats returns a name, value iterator across registered metrics. This uses expvar.Do under the hood, so is safe to be called concurrently.
// Stats are returned in an alphabetic order.
func (s *Stats) Stats() iter.Seq2[string, string] {
	stats := make(map[string]string, 6)
	for name, m := range map[string]*expvar.Map{"scans": s.scans, "dirs": s.dirs, "files": s.files} {
		m.Do(func(kv expvar.KeyValue) {
			stats[name+"_"+kv.Key] = kv.Value.String()
		})
	}

	keys := slices.Sorted(maps.Keys(stats))
	return func(yield func(string, string) bool) {
		for _, key := range keys {
			if !yield(s.prefix+"_"+key, stats[key]) {
				return
			}
		}
	}
}
