package worker

import (
	"context"
	"errors"
	"time"

	"book-store/internal/metrics"

	"go.uber.org/zap"
)

// Job is one run of a periodic task.
type Job func(ctx context.Context) error

// Periodic runs a job on a fixed interval until its context is cancelled.
// A failed run is logged and counted; the schedule continues.
type Periodic struct {
	name     string
	interval time.Duration
	job      Job
	metrics  *metrics.JobMetrics
	logger   *zap.Logger
}

func NewPeriodic(name string, interval time.Duration, job Job, m *metrics.JobMetrics, logger *zap.Logger) (*Periodic, error) {
	if job == nil {
		return nil, errors.New("job is required")
	}
	if interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Periodic{
		name:     name,
		interval: interval,
		job:      job,
		metrics:  m,
		logger:   logger.With(zap.String("job", name)),
	}, nil
}

func (p *Periodic) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.runOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Periodic) runOnce(ctx context.Context) {
	start := time.Now()
	err := p.job(ctx)
	p.metrics.ObserveDuration(p.name, time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.metrics.IncFailure(p.name)
		p.logger.Error("Periodic job failed", zap.Error(err))
		return
	}
	p.metrics.IncSuccess(p.name)
}
