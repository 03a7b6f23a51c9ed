// Package worker runs the tracking loop. A Runner samples the clock and the
// host idle time on a fixed interval, feeds every sample to the state and
// saves snapshots periodically. All access to the state goes through the
// Runner so that ticks, edits and saves never interleave.
package worker

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/imkarma/zedd/internal/idle"
	"github.com/imkarma/zedd/internal/slice"
	"github.com/imkarma/zedd/internal/state"
	"github.com/imkarma/zedd/internal/store"
	"github.com/imkarma/zedd/internal/tracker"
)

// TickResult describes what one sample did.
type TickResult struct {
	Now  time.Time
	Mode tracker.Mode
	Idle []slice.Interval // Away periods reported during the tick
	Err  error            // Reconciliation failure, if any
}

// RunnerConfig holds configuration for creating a Runner.
type RunnerConfig struct {
	State     *state.State
	Store     *store.Store  // Optional; without it nothing is saved
	Idle      idle.Detector // Optional; without it the user counts as always present
	Interval  time.Duration // Between samples, default 5s
	Threshold int           // Away threshold in minutes
	SaveEvery int           // Save every N ticks, 0 disables autosave
	History   bool          // Keep a thinned-out history instead of the newest snapshot only
	Now       func() time.Time
	Logger    *log.Logger
}

// Runner serializes ticks, edits and saves on one state.
type Runner struct {
	st        *state.State
	store     *store.Store
	detector  idle.Detector
	interval  time.Duration
	saveEvery int
	history   bool
	now       func() time.Time
	logger    *log.Logger

	mu        sync.Mutex
	threshold int
	ticks     int
	pending   []slice.Interval
	idleErr   string
}

// NewRunner creates a Runner and takes over the engine's idle callback.
func NewRunner(rc RunnerConfig) *Runner {
	r := &Runner{
		st:        rc.State,
		store:     rc.Store,
		detector:  rc.Idle,
		interval:  rc.Interval,
		saveEvery: rc.SaveEvery,
		history:   rc.History,
		now:       rc.Now,
		logger:    rc.Logger,
		threshold: rc.Threshold,
	}
	if r.interval <= 0 {
		r.interval = 5 * time.Second
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard, "", 0)
	}
	if r.threshold < 1 {
		r.threshold = tracker.DefaultIdleThresholdMinutes
	}
	r.st.Engine.SetIdleFunc(func(away slice.Interval) error {
		r.pending = append(r.pending, away)
		return nil
	})
	return r
}

// Interval returns the time between samples.
func (r *Runner) Interval() time.Duration { return r.interval }

// SetThreshold changes the away threshold from the next tick on.
func (r *Runner) SetThreshold(minutes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if minutes < 1 {
		minutes = 1
	}
	r.threshold = minutes
}

// Threshold returns the current away threshold in minutes.
func (r *Runner) Threshold() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.threshold
}

// TickOnce takes one sample.
func (r *Runner) TickOnce(ctx context.Context) TickResult {
	sinceInput := r.sinceInput(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.pending = nil
	err := r.st.Tick(now, sinceInput, r.threshold)
	if err != nil {
		r.logger.Printf("worker: tick at %s: %v", now.Format(slice.Layout), err)
	}

	res := TickResult{Now: now, Mode: r.st.Engine.Mode(), Idle: r.pending, Err: err}
	r.pending = nil

	r.ticks++
	if r.saveEvery > 0 && r.ticks%r.saveEvery == 0 {
		if err := r.saveLocked(now); err != nil {
			r.logger.Printf("worker: autosave: %v", err)
		}
	}
	return res
}

// sinceInput probes the idle detector outside the lock. A failing probe is
// logged once per distinct error and counts as present.
func (r *Runner) sinceInput(ctx context.Context) time.Duration {
	if r.detector == nil {
		return 0
	}
	d, err := r.detector.Idle(ctx)
	if err != nil {
		r.mu.Lock()
		if msg := err.Error(); msg != r.idleErr {
			r.idleErr = msg
			r.logger.Printf("worker: idle probe: %v", err)
		}
		r.mu.Unlock()
		return 0
	}
	return d
}

// Run ticks until ctx is cancelled, handing each result to onTick. A final
// snapshot is saved on the way out.
func (r *Runner) Run(ctx context.Context, onTick func(TickResult)) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for ctx.Err() == nil {
		res := r.TickOnce(ctx)
		if onTick != nil {
			onTick(res)
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}

	if err := r.Save(); err != nil {
		return err
	}
	return ctx.Err()
}

// Do runs fn with exclusive access to the state.
func (r *Runner) Do(fn func(st *state.State) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.st)
}

// Save writes a snapshot now.
func (r *Runner) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked(r.now())
}

func (r *Runner) saveLocked(now time.Time) error {
	if r.store == nil {
		return nil
	}
	if _, err := r.store.Save(r.st.Snapshot(), now); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	prune := r.store.Trim
	if r.history {
		prune = func() (int, error) { return r.store.Prune(now) }
	}
	if _, err := prune(); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
