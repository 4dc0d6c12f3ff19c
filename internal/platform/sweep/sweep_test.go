package sweep

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicops/clinic/internal/platform/clock"
)

type recordingObserver struct {
	mu   sync.Mutex
	runs []string
	errs int
}

func (o *recordingObserver) ObserveSweep(job string, affected int, d time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs = append(o.runs, job)
	if err != nil {
		o.errs++
	}
}

func TestRunOnce_PassesClockTime(t *testing.T) {
	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	obs := &recordingObserver{}
	r := NewRunner(zerolog.New(io.Discard), obs, clock.Fixed(at))

	var got time.Time
	r.Register(Job{Name: "patients", Interval: time.Hour, Run: func(ctx context.Context, now time.Time) (int, error) {
		got = now
		return 2, nil
	}})

	n, err := r.RunOnce(context.Background(), "patients")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 affected, got %d", n)
	}
	if !got.Equal(at) {
		t.Errorf("expected job to receive %s, got %s", at, got)
	}
	if len(obs.runs) != 1 || obs.runs[0] != "patients" {
		t.Errorf("unexpected observations %v", obs.runs)
	}
}

func TestRunOnce_UnknownJob(t *testing.T) {
	r := NewRunner(zerolog.New(io.Discard), nil, clock.System)
	if _, err := r.RunOnce(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown job")
	}
}

func TestRunOnce_ReportsFailure(t *testing.T) {
	obs := &recordingObserver{}
	r := NewRunner(zerolog.New(io.Discard), obs, clock.System)
	r.Register(Job{Name: "certifications", Interval: time.Hour, Run: func(ctx context.Context, now time.Time) (int, error) {
		return 0, errors.New("db down")
	}})

	if _, err := r.RunOnce(context.Background(), "certifications"); err == nil {
		t.Fatal("expected job error")
	}
	if obs.errs != 1 {
		t.Errorf("expected 1 failed observation, got %d", obs.errs)
	}
}

func TestStart_RunsImmediatelyAndStops(t *testing.T) {
	r := NewRunner(zerolog.New(io.Discard), nil, clock.System)
	var calls int32
	started := make(chan struct{}, 1)
	r.Register(Job{Name: "patients", Interval: time.Hour, Run: func(ctx context.Context, now time.Time) (int, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			started <- struct{}{}
		}
		return 0, nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("expected immediate first run")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Start to return after cancel")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected exactly one run within the hour interval, got %d", calls)
	}
}

func TestNames_Sorted(t *testing.T) {
	r := NewRunner(zerolog.New(io.Discard), nil, clock.System)
	noop := func(ctx context.Context, now time.Time) (int, error) { return 0, nil }
	r.Register(Job{Name: "patients", Interval: time.Hour, Run: noop})
	r.Register(Job{Name: "certifications", Interval: time.Hour, Run: noop})

	names := r.Names()
	if len(names) != 2 || names[0] != "certifications" || names[1] != "patients" {
		t.Errorf("unexpected names %v", names)
	}
}

func TestRunOnce_JobLogsThroughContext(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(zerolog.New(&buf), nil, clock.System)
	r.Register(Job{Name: "certifications", Interval: time.Hour, Run: func(ctx context.Context, now time.Time) (int, error) {
		zerolog.Ctx(ctx).Error().Msg("expiry reminder failed")
		return 0, nil
	}})

	if _, err := r.RunOnce(context.Background(), "certifications"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "expiry reminder failed") {
		t.Fatalf("expected job log line in runner output, got %s", out)
	}
	if !strings.Contains(out, `"job":"certifications"`) {
		t.Errorf("expected job field on log lines, got %s", out)
	}
}
