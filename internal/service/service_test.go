package service_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samtupy/folderstats/internal/model"
	"github.com/samtupy/folderstats/internal/registry"
	"github.com/samtupy/folderstats/internal/scan"
	"github.com/samtupy/folderstats/internal/scanner"
	"github.com/samtupy/folderstats/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newCoordinator() *scan.Coordinator {
	reg := registry.New()
	return scan.New(scanner.NewPipeline(reg, scanner.NewText()), reg)
}

func mkTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range map[string]string{
		"a/notes.txt": "one\ntwo\n",
		"b/c/data":    "12345",
	} {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func loadConfig(t *testing.T, yml string, root string) model.Config {
	t.Helper()
	cfg, err := model.LoadConfig(strings.NewReader(yml))
	require.NoError(t, err)
	cfg.Scan.Root = root
	return cfg
}

func TestSupervisor_Manual(t *testing.T) {
	t.Parallel()
	root := mkTree(t)
	cfg := loadConfig(t, "version: 0\n", root)

	var buf bytes.Buffer
	supervisor, err := service.NewSupervisor(t.Context(), cfg, newCoordinator(),
		service.NewWriteReporter(&buf, model.OutputText, 1))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	t.Cleanup(cancel)
	require.NoError(t, supervisor.Do(ctx))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, root+":\n3 directories\n2 lines of text\n2 files\n"), out)
	require.Contains(t, out, "  "+filepath.Join(root, "a")+":\n")
	require.NotContains(t, out, filepath.Join(root, "b", "c")+":")
}

func TestSupervisor_ManualStartError(t *testing.T) {
	t.Parallel()
	cfg := loadConfig(t, "version: 0\n", filepath.Join(t.TempDir(), "missing"))
	supervisor, err := service.NewSupervisor(t.Context(), cfg, newCoordinator(), failingReporter{})
	require.NoError(t, err)

	err = supervisor.Do(t.Context())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSupervisor_ManualReportError(t *testing.T) {
	t.Parallel()
	cfg := loadConfig(t, "version: 0\n", mkTree(t))
	supervisor, err := service.NewSupervisor(t.Context(), cfg, newCoordinator(), failingReporter{})
	require.NoError(t, err)

	err = supervisor.Do(t.Context())
	require.ErrorIs(t, err, errReport)
}

func TestSupervisor_ManualCanceled(t *testing.T) {
	t.Parallel()
	cfg := loadConfig(t, "version: 0\n", mkTree(t))
	supervisor, err := service.NewSupervisor(t.Context(), cfg, newCoordinator(), failingReporter{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err = supervisor.Do(ctx)
	require.ErrorIs(t, err, model.ErrAborted)
}

func TestSupervisor_Timer(t *testing.T) {
	t.Parallel()
	var testCases = []struct {
		scenario string
		given    string
	}{
		{
			scenario: "cron",
			given: `
version: 0
service:
    mode: timer
    schedule:
       cron: "@every 1s"
`,
		},
		{
			scenario: "duration",
			given: `
version: 0
service:
    mode: timer
    schedule:
       duration: "1s"
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			root := mkTree(t)
			cfg := loadConfig(t, tc.given, root)
			rep := &countingReporter{}
			supervisor, err := service.NewSupervisor(t.Context(), cfg, newCoordinator(), rep)
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(t.Context(), 2500*time.Millisecond)
			t.Cleanup(cancel)
			require.NoError(t, supervisor.Do(ctx))

			results := rep.results()
			require.GreaterOrEqual(t, len(results), 2)
			for i, res := range results {
				require.True(t, res.Success)
				if i > 0 {
					require.Greater(t, res.Generation, results[i-1].Generation)
				}
			}
		})
	}
}

func TestSupervisor_Restart(t *testing.T) {
	t.Parallel()
	cfg := loadConfig(t, "version: 0\nservice:\n  mode: timer\n  schedule:\n    duration: 1h\n", mkTree(t))
	rep := &countingReporter{}
	supervisor, err := service.NewSupervisor(t.Context(), cfg, newCoordinator(), rep)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	var wg sync.WaitGroup
	wg.Go(func() {
		require.NoError(t, supervisor.Do(ctx))
	})
	// extra starts on top of the immediate one
	for range 5 {
		supervisor.Start()
	}
	require.Eventually(t, func() bool {
		return len(rep.results()) >= 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	wg.Wait()

	for _, res := range rep.results() {
		require.True(t, res.Success)
	}
}

func TestNewSupervisor_Fail(t *testing.T) {
	t.Parallel()
	var testCases = []struct {
		scenario string
		cfg      model.Config
	}{
		{"server mode", model.Config{Service: model.Service{Mode: model.ServiceModeServer}}},
		{"timer without schedule", model.Config{Service: model.Service{Mode: model.ServiceModeTimer}}},
		{"bad cron", model.Config{Service: model.Service{
			Mode:     model.ServiceModeTimer,
			Schedule: &model.Schedule{Cron: "every monday"},
		}}},
		{"missing report dir", model.Config{Output: model.Output{Dir: filepath.Join(t.TempDir(), "missing")}}},
	}
	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			_, err := service.NewSupervisor(t.Context(), tc.cfg, newCoordinator())
			require.Error(t, err)
		})
	}
}

func TestDirReporter(t *testing.T) {
	t.Parallel()
	root := mkTree(t)
	dir := t.TempDir()
	cfg := loadConfig(t, "version: 0\noutput:\n  format: json\n  dir: "+dir+"\n", root)

	supervisor, err := service.NewSupervisor(t.Context(), cfg, newCoordinator())
	require.NoError(t, err)
	require.NoError(t, supervisor.Do(t.Context()))

	matches, err := filepath.Glob(filepath.Join(dir, "folderstats-*-1.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	raw, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	require.Contains(t, string(raw), `"root": "`+root+`"`)

	r, err := service.NewDirReporter(dir, model.OutputText, 1)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.Error(t, r.Close())
}

var errReport = errors.New("report failed")

type failingReporter struct{}

func (failingReporter) Report(context.Context, *scan.Handle, scan.Result) error {
	return errReport
}

type countingReporter struct {
	mx  sync.Mutex
	res []scan.Result
}

func (r *countingReporter) Report(_ context.Context, _ *scan.Handle, res scan.Result) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.res = append(r.res, res)
	return nil
}

func (r *countingReporter) results() []scan.Result {
	r.mx.Lock()
	defer r.mx.Unlock()
	return append([]scan.Result(nil), r.res...)
}
