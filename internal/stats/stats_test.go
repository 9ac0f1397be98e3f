package stats_test

import (
	"maps"
	"sync"
	"testing"

	"github.com/samtupy/folderstats/internal/model"
	"github.com/samtupy/folderstats/internal/stats"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s := stats.New(t.Name())
	require.NotNil(t, s)
}

func TestIncScans(t *testing.T) {
	s := stats.New(t.Name())

	s.IncScans()
	s.IncScans()
	s.IncAbortedScans()

	collected := maps.Collect(s.Stats())
	require.Equal(t, "2", collected[t.Name()+model.StatsScansTotal])
	require.Equal(t, "1", collected[t.Name()+model.StatsScansAborted])
}

func TestIncDirs(t *testing.T) {
	s := stats.New(t.Name())

	for range 10 {
		s.IncDirs()
	}
	s.IncErrDirs()

	collected := maps.Collect(s.Stats())
	require.Equal(t, "10", collected[t.Name()+model.StatsDirsTotal])
	require.Equal(t, "1", collected[t.Name()+model.StatsDirsErr])
}

func TestIncFiles(t *testing.T) {
	s := stats.New(t.Name())

	s.IncFiles()
	s.IncErrFiles()
	s.IncErrFiles()
	s.IncErrFiles()

	collected := maps.Collect(s.Stats())
	require.Equal(t, "1", collected[t.Name()+model.StatsFilesTotal])
	require.Equal(t, "3", collected[t.Name()+model.StatsFilesErr])
}

func TestStatsIterator(t *testing.T) {
	s := stats.New(t.Name())
	s.IncFiles()

	collected := maps.Collect(s.Stats())
	require.Len(t, collected, 6)
	for key, value := range collected {
		if key == t.Name()+model.StatsFilesTotal {
			require.Equal(t, "1", value)
			continue
		}
		require.Equal(t, "0", value, key)
	}
}

func TestStatsIteratorFiltersPrefix(t *testing.T) {
	s1 := stats.New("prefix-1")
	s2 := stats.New("prefix-2")

	s1.IncScans()
	s2.IncScans()
	s2.IncScans()

	collected := maps.Collect(s1.Stats())

	require.Len(t, collected, 6)
	for k := range collected {
		require.True(t, len(k) > 0 && k[:8] == "prefix-1", "key %s should start with prefix-1", k)
	}
}

func TestStatsInterfaceImplementation(t *testing.T) {
	var _ model.Stats = (*stats.Stats)(nil)
}

func TestConcurrentIncrements(t *testing.T) {
	s := stats.New(t.Name())

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			for range 100 {
				s.IncDirs()
				s.IncFiles()
			}
		})
	}
	wg.Wait()

	collected := maps.Collect(s.Stats())
	require.Equal(t, "1000", collected[t.Name()+model.StatsDirsTotal])
	require.Equal(t, "1000", collected[t.Name()+model.StatsFilesTotal])
}
