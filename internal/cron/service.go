package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pasabuy/pasabuy-backend/pkg/logger"
	"github.com/pasabuy/pasabuy-backend/pkg/metrics"
)

const defaultTick = time.Minute

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	// Tick is how often due jobs are looked for.
	Tick time.Duration
}

// Service wakes every tick and runs due jobs while holding the cluster lock.
// Replicas that lose the lock skip the cycle.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	tick     time.Duration
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	}
	svc := &Service{
		logg:     params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		tick:     params.Tick,
		now:      time.Now,
	}
	if svc.registry == nil {
		svc.registry = NewRegistry()
	}
	if svc.tick <= 0 {
		svc.tick = defaultTick
	}
	return svc, nil
}

// Run executes a cycle immediately and then once per tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	due := s.registry.due(s.now())
	if len(due) == 0 {
		return nil
	}

	unlock, err := s.lock.TryLock(ctx)
	switch {
	case errors.Is(err, ErrLockHeld):
		s.logg.Debug(ctx, "cron lock held elsewhere; skipping cycle")
		return nil
	case err != nil:
		return fmt.Errorf("lock acquire: %w", err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron lock release failed", err)
		}
	}()

	for _, slot := range due {
		s.runSlot(ctx, slot)
	}
	return nil
}

// runSlot runs one job. A failing job still counts as run so it waits a full
// interval before the next attempt.
func (s *Service) runSlot(ctx context.Context, slot *slot) {
	name := slot.job.Name()
	slot.lastRun = s.now()
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})

	started := time.Now()
	err := slot.job.Run(jobCtx)
	took := time.Since(started)
	s.metrics.Record(name, took, err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return
	}
	s.logg.Debug(jobCtx, "job completed")
}
