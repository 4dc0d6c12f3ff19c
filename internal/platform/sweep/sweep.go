// Package sweep runs the clinic's periodic maintenance jobs: discharging
// stale outpatients and advancing certification states.
package sweep

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicops/clinic/internal/platform/clock"
)

// JobFunc performs one pass and returns the number of records it changed.
// A pass must be idempotent.
type JobFunc func(ctx context.Context, now time.Time) (int, error)

type Job struct {
	Name     string
	Interval time.Duration
	Run      JobFunc
}

// Observer receives the outcome of every run.
type Observer interface {
	ObserveSweep(job string, affected int, d time.Duration, err error)
}

type Runner struct {
	logger   zerolog.Logger
	observer Observer
	now      clock.Clock

	mu   sync.Mutex
	jobs map[string]Job
}

func NewRunner(logger zerolog.Logger, observer Observer, now clock.Clock) *Runner {
	return &Runner{
		logger:   logger.With().Str("component", "sweep").Logger(),
		observer: observer,
		now:      now,
		jobs:     make(map[string]Job),
	}
}

func (r *Runner) Register(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.Name] = job
}

// Names lists registered jobs alphabetically.
func (r *Runner) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.jobs))
	for n := range r.jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RunOnce executes the named job a single time.
func (r *Runner) RunOnce(ctx context.Context, name string) (int, error) {
	r.mu.Lock()
	job, ok := r.jobs[name]
	r.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("unknown sweep job %q", name)
	}
	return r.run(ctx, job)
}

func (r *Runner) run(ctx context.Context, job Job) (int, error) {
	logger := r.logger.With().Str("job", job.Name).Logger()
	ctx = logger.WithContext(ctx)

	start := time.Now()
	affected, err := job.Run(ctx, r.now())
	elapsed := time.Since(start)

	if r.observer != nil {
		r.observer.ObserveSweep(job.Name, affected, elapsed, err)
	}
	if err != nil {
		logger.Error().Err(err).Dur("duration", elapsed).Msg("sweep failed")
		return affected, err
	}
	logger.Info().Int("affected", affected).Dur("duration", elapsed).Msg("sweep completed")
	return affected, nil
}

// Start runs every job immediately and then on its interval until ctx is
// cancelled. It blocks until all job loops have returned.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	jobs := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			r.loop(ctx, job)
		}(job)
	}
	wg.Wait()
}

func (r *Runner) loop(ctx context.Context, job Job) {
	r.run(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.run(ctx, job)
		}
	}
}
