package cron

import (
	"context"
	"time"
)

// DefaultJobInterval applies to jobs that do not declare their own cadence.
const DefaultJobInterval = 24 * time.Hour

// Job is a unit of scheduled maintenance.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// IntervalJob overrides DefaultJobInterval.
type IntervalJob interface {
	Job
	Interval() time.Duration
}

func intervalOf(job Job) time.Duration {
	if scheduled, ok := job.(IntervalJob); ok && scheduled.Interval() > 0 {
		return scheduled.Interval()
	}
	return DefaultJobInterval
}

type slot struct {
	job     Job
	every   time.Duration
	lastRun time.Time
}

func (s *slot) due(now time.Time) bool {
	return s.lastRun.IsZero() || now.Sub(s.lastRun) >= s.every
}

// Registry is the ordered job list plus when each job last started. It is
// owned by a single Service goroutine.
type Registry struct {
	slots []*slot
}

func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register appends job; nil is ignored.
func (r *Registry) Register(job Job) {
	if job != nil {
		r.slots = append(r.slots, &slot{job: job, every: intervalOf(job)})
	}
}

// Jobs returns a copy of the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.slots))
	for _, s := range r.slots {
		jobs = append(jobs, s.job)
	}
	return jobs
}

// due returns the slots whose interval elapsed at now.
func (r *Registry) due(now time.Time) []*slot {
	var out []*slot
	for _, s := range r.slots {
		if s.due(now) {
			out = append(out, s)
		}
	}
	return out
}
