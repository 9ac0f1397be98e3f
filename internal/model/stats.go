package model

import "iter"

const (
	StatsScansTotal   = "_scans_total"
	StatsScansAborted = "_scans_aborted"
	StatsDirsTotal    = "_dirs_total"
	StatsDirsErr      = "_dirs_errors"
	StatsFilesTotal   = "_files_total"
	StatsFilesErr     = "_files_errors"
)

// Stats counts what the scanner went through. Implementations must be safe
// for concurrent use, all workers share one.
type Stats interface {
	IncScans()
	IncAbortedScans()
	IncDirs()
	IncErrDirs()
	IncFiles()
	IncErrFiles()
	Stats() iter.Seq2[string, string]
}

// NopStats counts nothing.
type NopStats struct{}

func (NopStats) IncScans()        {}
func (NopStats) IncAbortedScans() {}
func (NopStats) IncDirs()         {}
func (NopStats) IncErrDirs()      {}
func (NopStats) IncFiles()        {}
func (NopStats) IncErrFiles()     {}

func (NopStats) Stats() iter.Seq2[string, string] {
	return func(func(string, string) bool) {}
}
