package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/sagabank-backend/pkg/logger"
	"github.com/angelmondragon/sagabank-backend/pkg/metrics"
)

const defaultInterval = time.Hour

// Job is one housekeeping task over a service store.
type Job interface {
	Name() string
	Run(ctx context.Context) (Report, error)
}

// Report is what a job did in one run. Affected counts the rows it deleted or
// found; Fields are added to the job's completion log line.
type Report struct {
	Affected int64
	Fields   map[string]any
}

type ServiceParams struct {
	Logger   *logger.Logger
	Jobs     []Job
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service runs its jobs once per interval on whichever replica holds the lock.
type Service struct {
	logg     *logger.Logger
	jobs     []Job
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	seen := make(map[string]struct{}, len(params.Jobs))
	jobs := make([]Job, 0, len(params.Jobs))
	for _, job := range params.Jobs {
		if job == nil {
			continue
		}
		name := strings.TrimSpace(job.Name())
		if name == "" {
			return nil, fmt.Errorf("job name required")
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("job %q registered twice", name)
		}
		seen[name] = struct{}{}
		jobs = append(jobs, job)
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		jobs:     jobs,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// JobNames lists the jobs in run order.
func (s *Service) JobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for _, job := range s.jobs {
		names = append(names, job.Name())
	}
	return names
}

// Run executes a cycle immediately and then every interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service stopping")
			return ctx.Err()
		case <-timer.C:
			if _, err := s.RunCycle(ctx); err != nil {
				s.logg.Error(ctx, "cron cycle failed", err)
			}
			timer.Reset(s.interval)
		}
	}
}

// RunCycle runs every job once if this replica wins the lock and returns the
// names of the jobs that failed. A failing job never stops the others.
func (s *Service) RunCycle(ctx context.Context) ([]string, error) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "cron lock held elsewhere; cycle skipped")
		return nil, nil
	}
	defer func() {
		if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	var failed []string
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return failed, ctx.Err()
		}
		if !s.runJob(ctx, job) {
			failed = append(failed, job.Name())
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs":   len(s.jobs),
		"failed": len(failed),
	}), "cron cycle complete")
	return failed, nil
}

func (s *Service) runJob(ctx context.Context, job Job) bool {
	name := job.Name()
	jobCtx := s.logg.WithField(ctx, "job", name)

	start := time.Now()
	report, err := job.Run(jobCtx)
	elapsed := time.Since(start)
	s.metrics.ObserveDuration(name, elapsed)

	fields := map[string]any{"duration_ms": elapsed.Milliseconds()}
	if err != nil {
		s.metrics.IncFailure(name)
		s.logg.Error(s.logg.WithFields(jobCtx, fields), "cron job failed", err)
		return false
	}
	s.metrics.IncSuccess(name)
	s.metrics.SetAffected(name, report.Affected)
	fields["affected"] = report.Affected
	for k, v := range report.Fields {
		fields[k] = v
	}
	s.logg.Info(s.logg.WithFields(jobCtx, fields), "cron job complete")
	return true
}
