// Package service runs scans unattended, once or on a schedule, and reports
// their results.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	gocron "github.com/go-co-op/gocron/v2"

	"github.com/samtupy/folderstats/internal/model"
	"github.com/samtupy/folderstats/internal/report"
	"github.com/samtupy/folderstats/internal/scan"
)

// Reporter receives every scan which completed successfully.
type Reporter interface {
	Report(ctx context.Context, h *scan.Handle, res scan.Result) error
}

// Supervisor drives scans of a single root in manual or timer mode.
type Supervisor struct {
	coord     *scan.Coordinator
	reporters []Reporter
	cfg       model.Service
	scanCfg   model.Scan
	scheduler gocron.Scheduler
	duration  time.Duration

	starts   chan struct{}
	finished chan finished
	wg       sync.WaitGroup
}

type finished struct {
	handle *scan.Handle
	result scan.Result
}

// NewSupervisor configures a supervisor from cfg. Reports go to reporters
// or, when none are given, are derived from cfg.Output.
func NewSupervisor(ctx context.Context, cfg model.Config, coord *scan.Coordinator, reporters ...Reporter) (*Supervisor, error) {
	var supervisor = &Supervisor{
		coord:    coord,
		cfg:      cfg.Service,
		scanCfg:  cfg.Scan,
		starts:   make(chan struct{}, 1),
		finished: make(chan finished),
	}

	switch cfg.Service.Mode {
	case model.ServiceModeManual, "":
	case model.ServiceModeTimer:
		d, scheduler, err := newScheduler(ctx, cfg.Service.Schedule, supervisor.Start)
		if err != nil {
			return nil, fmt.Errorf("timer mode failed: %w", err)
		}
		supervisor.duration = d
		supervisor.scheduler = scheduler
	default:
		return nil, fmt.Errorf("service mode %q: %w", cfg.Service.Mode, model.ErrUnsupported)
	}

	if len(reporters) == 0 {
		r, err := reporterFromConfig(cfg.Output)
		if err != nil {
			return nil, fmt.Errorf("initializing reporter: %w", err)
		}
		reporters = []Reporter{r}
	}
	supervisor.reporters = reporters
	return supervisor, nil
}

// Start asks for a new scan. It only signals the Do loop and returns
// immediately; a scan still running is restarted.
func (s *Supervisor) Start() {
	select {
	case s.starts <- struct{}{}:
	default:
		// a start is already pending
	}
}

// Do runs the supervisor event loop.
//
// Manual mode scans once and returns the reporting error, or
// model.ErrAborted when the scan did not finish. Timer mode starts a scan
// on every tick and runs until ctx is done; errors are only logged.
//
// On return the running scan is canceled and waited for.
func (s *Supervisor) Do(ctx context.Context) error {
	slog.DebugContext(ctx, "starting a supervisor", "mode", s.cfg.Mode)
	manual := s.scheduler == nil

	stop := make(chan struct{})
	defer s.closeReporters(ctx)
	defer s.wg.Wait()
	defer close(stop)
	defer s.coord.CancelCurrent()

	if s.scheduler != nil {
		slog.InfoContext(ctx, "timer mode", "root", s.scanCfg.Root, "interval", s.duration.String())
		s.scheduler.Start()
		defer func() {
			err := s.scheduler.Shutdown()
			if err != nil {
				slog.ErrorContext(ctx, "shutting down gocron has failed", "error", err)
			}
		}()
	} else {
		s.Start()
	}

	for {
		select {
		case <-ctx.Done():
			if manual {
				return fmt.Errorf("%w: %w", model.ErrAborted, ctx.Err())
			}
			return nil
		case <-s.starts:
			err := s.callStart(ctx, stop)
			if err != nil {
				if manual {
					return err
				}
				slog.ErrorContext(ctx, "start returned", "error", err)
			}
		case f := <-s.finished:
			if f.handle != s.coord.Current() {
				slog.DebugContext(ctx, "scan superseded: dropping", "generation", f.result.Generation)
				continue
			}
			if !f.result.Success {
				if manual {
					return model.ErrAborted
				}
				slog.WarnContext(ctx, "scan aborted", "generation", f.result.Generation)
				continue
			}

			slog.DebugContext(ctx, "scan succeeded: reporting", "generation", f.result.Generation)
			err := s.report(ctx, f.handle, f.result)
			if manual {
				return err
			}
			if err != nil {
				slog.ErrorContext(ctx, "report failed", "error", err)
			}
		}
	}
}

func (s *Supervisor) callStart(ctx context.Context, stop <-chan struct{}) error {
	root := s.scanCfg.Root
	if root == "" {
		root = "."
	}
	h, err := s.coord.Start(ctx, root, s.scanCfg.Exclude, s.scanCfg.Workers)
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "scan started", "root", h.Root(), "generation", h.Generation(), "id", h.ID().String())

	s.wg.Go(func() {
		<-h.Done()
		res, _ := h.Result()
		select {
		case s.finished <- finished{handle: h, result: res}:
		case <-stop:
		}
	})
	return nil
}

func (s *Supervisor) report(ctx context.Context, h *scan.Handle, res scan.Result) error {
	var errs []error
	for _, r := range s.reporters {
		err := r.Report(ctx, h, res)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Supervisor) closeReporters(ctx context.Context) {
	for _, r := range s.reporters {
		if closer, ok := r.(io.Closer); ok {
			err := closer.Close()
			if err != nil {
				slog.ErrorContext(ctx, "closing reporter have failed", "error", err)
			}
		}
	}
}

func newScheduler(ctx context.Context, cfgp *model.Schedule, startFunc func()) (time.Duration, gocron.Scheduler, error) {
	if cfgp == nil {
		return 0, nil, errors.New("service.schedule is nil")
	}
	cfg := *cfgp
	d, err := cfg.Interval()
	if err != nil {
		return 0, nil, err
	}

	var job gocron.JobDefinition
	if cfg.Cron != "" {
		job = gocron.CronJob(cfg.Cron, false)
		slog.DebugContext(ctx, "successfully parsed", "cron", cfg.Cron)
	} else {
		job = gocron.DurationJob(d)
		slog.DebugContext(ctx, "successfully parsed", "duration", d.String())
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return 0, nil, fmt.Errorf("initializing gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		job,
		gocron.NewTask(startFunc),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("initializing gocron job: %w", err)
	}
	return d, s, nil
}

func reporterFromConfig(cfg model.Output) (Reporter, error) {
	if cfg.Dir == "" {
		return NewWriteReporter(os.Stdout, cfg.Format, cfg.Depth), nil
	}
	return NewDirReporter(cfg.Dir, cfg.Format, cfg.Depth)
}

// WriteReporter writes reports to a single writer.
type WriteReporter struct {
	w      io.Writer
	format string
	depth  int
}

func NewWriteReporter(w io.Writer, format string, depth int) WriteReporter {
	return WriteReporter{w: w, format: format, depth: depth}
}

func (r WriteReporter) Report(_ context.Context, h *scan.Handle, res scan.Result) error {
	if r.w == nil {
		r.w = os.Stdout
	}
	return report.Write(r.w, r.format, report.New(h.Store(), h.Root(), r.depth, res))
}

// DirReporter stores every report in a new file inside a directory.
type DirReporter struct {
	root   *os.Root
	format string
	depth  int
}

func NewDirReporter(path, format string, depth int) (*DirReporter, error) {
	root, err := os.OpenRoot(path)
	if err != nil {
		return nil, err
	}
	return &DirReporter{root: root, format: format, depth: depth}, nil
}

func (r *DirReporter) Report(ctx context.Context, h *scan.Handle, res scan.Result) error {
	if r.root == nil {
		return errors.New("root already closed")
	}

	ext := r.format
	if ext == "" || ext == model.OutputText {
		ext = "txt"
	}
	path := fmt.Sprintf("folderstats-%s-%d.%s", time.Now().Format("2006-01-02-15-04-05"), res.Generation, ext)

	f, err := r.root.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	err = report.Write(f, r.format, report.New(h.Store(), h.Root(), r.depth, res))
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("saving report: %w", err)
	}
	err = f.Close()
	if err != nil {
		return fmt.Errorf("closing report: %w", err)
	}
	slog.InfoContext(ctx, "report saved", "path", path)
	return nil
}

func (r *DirReporter) Close() error {
	if r.root == nil {
		return errors.New("reporter already closed")
	}
	err := r.root.Close()
	r.root = nil
	return err
}
