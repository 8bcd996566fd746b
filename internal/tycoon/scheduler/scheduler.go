// Package scheduler drives the simulation: every tick it runs the jobs that
// are due, one after another, in registry order.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/jobs"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/lock"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/metrics"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Config struct {
	Interval        time.Duration
	TicksPerGameDay int
	// Cadence overrides how many ticks apart a job runs, by job name.
	Cadence map[string]int
	LockTTL time.Duration
}

// dailyJobs run once per game day unless overridden.
var dailyJobs = map[string]bool{
	jobs.PaySalaries:  true,
	jobs.IncrementDay: true,
}

type entry struct {
	job   jobs.Job
	every uint64
}

// Scheduler runs ticks. At most one tick runs at a time; a tick that fires
// while another is running is dropped.
type Scheduler struct {
	entries    []entry
	locker     lock.Locker
	cfg        Config
	logger     *zap.Logger
	running    atomic.Bool
	generation atomic.Uint64
	wg         sync.WaitGroup
}

// TickReport is the outcome of one tick.
type TickReport struct {
	Generation uint64
	Results    []jobs.Result
	Locked     []string
	Failed     []string
}

func New(js []jobs.Job, locker lock.Locker, cfg Config, logger *zap.Logger) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("%w: tick interval must be positive", e.ErrInvalidInput)
	}
	if cfg.TicksPerGameDay < 1 {
		cfg.TicksPerGameDay = 1
	}
	if locker == nil {
		locker = lock.NewMemoryLocker()
	}

	known := make(map[string]bool, len(js))
	entries := make([]entry, 0, len(js))
	for _, j := range js {
		every := 1
		if dailyJobs[j.Name()] {
			every = cfg.TicksPerGameDay
		}
		if n, ok := cfg.Cadence[j.Name()]; ok {
			if n < 1 {
				return nil, fmt.Errorf("%w: cadence of %s must be at least 1", e.ErrInvalidInput, j.Name())
			}
			every = n
		}
		known[j.Name()] = true
		entries = append(entries, entry{job: j, every: uint64(every)})
	}
	for name := range cfg.Cadence {
		if !known[name] {
			return nil, fmt.Errorf("%w: cadence for %s", e.ErrUnknownJob, name)
		}
	}

	return &Scheduler{
		entries: entries,
		locker:  locker,
		cfg:     cfg,
		logger:  logger.Named("scheduler"),
	}, nil
}

// Cadence returns the tick spacing of every job in run order.
func (s *Scheduler) Cadence() map[string]int {
	out := make(map[string]int, len(s.entries))
	for _, en := range s.entries {
		out[en.job.Name()] = int(en.every)
	}
	return out
}

// Generation is the number of the last started tick.
func (s *Scheduler) Generation() uint64 {
	return s.generation.Load()
}

// Run fires a tick every interval until ctx is done, then waits for the
// tick in flight.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("Scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Int("ticks_per_game_day", s.cfg.TicksPerGameDay),
	)
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.Info("Scheduler stopped", zap.Uint64("generation", s.Generation()))
			return nil
		case <-ticker.C:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				_, err := s.Tick(ctx)
				if err != nil && !errors.Is(err, e.ErrTickInProgress) && !errors.Is(err, context.Canceled) {
					s.logger.Error("Tick finished with failures", zap.Error(err))
				}
			}()
		}
	}
}

// Tick runs the jobs due at the next generation.
func (s *Scheduler) Tick(ctx context.Context) (*TickReport, error) {
	return s.tick(ctx, false)
}

// RunOnce runs every job once regardless of cadence.
func (s *Scheduler) RunOnce(ctx context.Context) (*TickReport, error) {
	return s.tick(ctx, true)
}

func (s *Scheduler) tick(ctx context.Context, all bool) (*TickReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		metrics.TicksTotal.WithLabelValues("skipped").Inc()
		s.logger.Warn("Skipping tick, previous tick still running", zap.Uint64("generation", s.Generation()))
		return nil, e.ErrTickInProgress
	}
	defer s.running.Store(false)

	gen := s.generation.Add(1)
	metrics.TicksTotal.WithLabelValues("run").Inc()
	metrics.TickGeneration.Set(float64(gen))

	ctx, span := tracing.Start(ctx, "tick", trace.WithAttributes(attribute.Int64("tick.generation", int64(gen))))
	defer span.End()

	report := &TickReport{Generation: gen}
	start := time.Now()
	for _, en := range s.entries {
		if ctx.Err() != nil {
			break
		}
		if !all && gen%en.every != 0 {
			continue
		}
		res, err := s.run(ctx, en.job)
		switch {
		case errors.Is(err, e.ErrLockHeld):
			report.Locked = append(report.Locked, en.job.Name())
		case err != nil:
			report.Failed = append(report.Failed, en.job.Name())
		default:
			report.Results = append(report.Results, res)
		}
	}

	s.logger.Info("Tick complete",
		zap.Uint64("generation", gen),
		zap.Int("jobs", len(report.Results)),
		zap.Strings("locked", report.Locked),
		zap.Strings("failed", report.Failed),
		zap.Duration("took", time.Since(start)),
	)
	if len(report.Failed) > 0 {
		span.SetStatus(codes.Error, "job failures")
		return report, fmt.Errorf("tick %d: %d job(s) failed: %v", gen, len(report.Failed), report.Failed)
	}
	return report, ctx.Err()
}

// RunJob runs a single job by name under its lock.
func (s *Scheduler) RunJob(ctx context.Context, name string) (jobs.Result, error) {
	for _, en := range s.entries {
		if en.job.Name() == name {
			return s.run(ctx, en.job)
		}
	}
	return jobs.Result{Job: name}, fmt.Errorf("%w: %s", e.ErrUnknownJob, name)
}

func (s *Scheduler) run(ctx context.Context, j jobs.Job) (jobs.Result, error) {
	name := j.Name()
	release, err := s.locker.TryLock(ctx, "job:"+name, s.cfg.LockTTL)
	if errors.Is(err, e.ErrLockHeld) {
		metrics.JobRunsTotal.WithLabelValues(name, "locked").Inc()
		s.logger.Info("Job skipped, lock held elsewhere", zap.String("job", name))
		return jobs.Result{Job: name}, err
	}
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(name, "error").Inc()
		s.logger.Error("Failed to acquire job lock", zap.String("job", name), zap.Error(err))
		return jobs.Result{Job: name}, fmt.Errorf("lock %s: %w", name, err)
	}
	defer release()

	ctx, span := tracing.Start(ctx, "job "+name, trace.WithAttributes(attribute.String("job.name", name)))
	defer span.End()

	start := time.Now()
	res, err := j.Run(ctx)
	metrics.JobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(name, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("Job failed", zap.String("job", name), zap.Error(err))
		return res, err
	}

	metrics.JobRunsTotal.WithLabelValues(name, "ok").Inc()
	metrics.JobEntities.WithLabelValues(name, "processed").Add(float64(res.Processed))
	metrics.JobEntities.WithLabelValues(name, "changed").Add(float64(res.Changed))
	metrics.JobEntities.WithLabelValues(name, "skipped").Add(float64(res.Skipped))
	metrics.JobEntities.WithLabelValues(name, "failed").Add(float64(res.Failed))
	span.SetAttributes(
		attribute.Int("job.processed", res.Processed),
		attribute.Int("job.changed", res.Changed),
		attribute.Int("job.failed", res.Failed),
	)
	s.logger.Debug("Job finished", zap.String("job", name), zap.Stringer("result", res), zap.Duration("took", time.Since(start)))
	return res, nil
}
