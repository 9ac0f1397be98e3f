package store_test

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/samtupy/folderstats/internal/registry"
	"github.com/samtupy/folderstats/internal/store"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	reg.Define(registry.Definition{ID: "dir_count", Format: "%s directories"}, "")
	reg.Define(registry.Definition{ID: "file_count", Format: "%s files"}, "")
	reg.Define(registry.Definition{ID: "file_size", Format: "%s of data", Kind: registry.KindSize}, "")
	reg.Define(registry.Definition{ID: "audio", Format: "%s of audio in total", Kind: registry.KindElapsed}, "")
	return reg
}

func seed(s *store.Store, paths ...string) {
	for _, p := range paths {
		s.Seed(p)
	}
}

func TestSeed(t *testing.T) {
	t.Parallel()
	s := store.New(newRegistry(t), 7)

	require.True(t, s.Seed("/root"))
	require.False(t, s.Seed("/root"))
	require.False(t, s.Seed("/root/"))
	require.True(t, s.Has("/root"))
	require.False(t, s.Has("/other"))
	require.Equal(t, 1, s.Len())
	require.Equal(t, uint64(7), s.Generation())
}

func TestIncrease_UnknownID(t *testing.T) {
	t.Parallel()
	s := store.New(newRegistry(t), 1)
	seed(s, "/root", "/root/a")

	s.Increase("/root/a/file", "not_defined", 10)

	require.Empty(t, s.Values("/root"))
	require.Empty(t, s.Values("/root/a"))
}

func TestIncrease_Propagation(t *testing.T) {
	t.Parallel()
	s := store.New(newRegistry(t), 1)
	seed(s, "/root", "/root/a", "/root/a/b", "/root/a/b/c")

	s.Increase("/root/a/b/c/file.txt", "file_count", 1)
	s.Increase("/root/a/b", "file_count", 2)

	for path, expected := range map[string]float64{
		"/root":       3,
		"/root/a":     3,
		"/root/a/b":   3,
		"/root/a/b/c": 1,
	} {
		v, ok := s.Value(path, "file_count")
		require.True(t, ok, path)
		require.Equal(t, expected, v, path)
	}
}

func TestIncrease_StopsAtFirstMissingAncestor(t *testing.T) {
	t.Parallel()
	s := store.New(newRegistry(t), 1)
	// /top/mid is not seeded, so /top must never see increments from below it
	seed(s, "/top", "/top/mid/low", "/top/mid/low/leaf")

	s.Increase("/top/mid/low/leaf/f", "file_size", 100)

	v, ok := s.Value("/top/mid/low/leaf", "file_size")
	require.True(t, ok)
	require.Equal(t, float64(100), v)
	v, ok = s.Value("/top/mid/low", "file_size")
	require.True(t, ok)
	require.Equal(t, float64(100), v)
	_, ok = s.Value("/top", "file_size")
	require.False(t, ok)
}

func TestIncrease_Concurrent(t *testing.T) {
	t.Parallel()
	const workers = 16
	const times = 500
	s := store.New(newRegistry(t), 1)
	seed(s, "/root", "/root/a")

	var wg sync.WaitGroup
	for i := range workers {
		wg.Go(func() {
			path := "/root"
			if i%2 == 0 {
				path = "/root/a"
			}
			for range times {
				s.Increase(path, "dir_count", 1)
			}
		})
	}
	wg.Wait()

	v, _ := s.Value("/root", "dir_count")
	require.Equal(t, float64(workers*times), v)
	v, _ = s.Value("/root/a", "dir_count")
	require.Equal(t, float64(workers/2*times), v)
}

func TestIncrease_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		depth := rapid.IntRange(1, 8).Draw(t, "depth")
		// seeded[i] tells whether the i-th ancestor level has a node
		seeded := rapid.SliceOfN(rapid.Bool(), depth, depth).Draw(t, "seeded")
		amount := float64(rapid.IntRange(0, 1<<20).Draw(t, "amount"))

		reg := registry.New()
		reg.Define(registry.Definition{ID: "n", Format: "%s"}, "")
		s := store.New(reg, 1)

		paths := make([]string, depth)
		cur := string(filepath.Separator) + "r"
		for i := range depth {
			cur = filepath.Join(cur, "d")
			paths[i] = cur
			if seeded[i] {
				s.Seed(cur)
			}
		}

		s.Increase(filepath.Join(paths[depth-1], "file"), "n", amount)

		reached := true
		for i := depth - 1; i >= 0; i-- {
			reached = reached && seeded[i]
			v, ok := s.Value(paths[i], "n")
			if reached {
				if !ok || v != amount {
					t.Fatalf("level %d: expected %v, got %v (ok=%t)", i, amount, v, ok)
				}
			} else if ok {
				t.Fatalf("level %d beyond first missing ancestor got %v", i, v)
			}
		}
	})
}

func TestRender(t *testing.T) {
	t.Parallel()
	reg := newRegistry(t)
	s := store.New(reg, 1)
	seed(s, "/root", "/root/empty", "/root/zero")

	s.Increase("/root", "dir_count", 2)
	s.Increase("/root/f", "file_count", 1)
	s.Increase("/root/f", "file_size", 1536)
	s.Increase("/root/f", "audio", 61)
	s.Increase("/root/zero", "dir_count", 0)

	require.Equal(t,
		"/root:\n2 directories\n1 files\n1.5KB of data\n1 minute and 1 second of audio in total\n",
		s.Render("/root"),
	)
	require.Equal(t, "No available stats for /root/empty", s.Render("/root/empty"))
	require.Equal(t, "No available stats for /root/zero", s.Render("/root/zero"))
	require.Empty(t, s.Render("/unknown"))
}

func TestRender_DisplayOrderFollowsRegistry(t *testing.T) {
	t.Parallel()
	reg := newRegistry(t)
	s := store.New(reg, 1)
	seed(s, "/root")

	s.Increase("/root/f", "audio", 120)
	reg.Define(registry.Definition{ID: "audio_mp3", Format: "%s of mp3 audio in total", Kind: registry.KindElapsed}, "audio")
	s.Increase("/root/f", "audio_mp3", 120)
	s.Increase("/root/f", "file_count", 1)

	lines := strings.Split(strings.TrimSpace(s.Render("/root")), "\n")
	require.Equal(t, []string{
		"/root:",
		"1 files",
		"2 minutes of audio in total",
		"2 minutes of mp3 audio in total",
	}, lines)
}

func TestAttachment(t *testing.T) {
	t.Parallel()
	s := store.New(newRegistry(t), 1)
	seed(s, "/root")

	_, ok := s.Attachment("/root")
	require.False(t, ok)
	require.False(t, s.Attach("/unknown", 1))

	type handle struct{ id int }
	require.True(t, s.Attach("/root", &handle{id: 42}))
	v, ok := s.Attachment("/root")
	require.True(t, ok)
	require.Equal(t, &handle{id: 42}, v)
}

func TestPaths(t *testing.T) {
	t.Parallel()
	s := store.New(newRegistry(t), 1)
	seed(s, "/root/b", "/root", "/root/a")
	require.Equal(t, []string{"/root", "/root/a", "/root/b"}, s.Paths())
}
