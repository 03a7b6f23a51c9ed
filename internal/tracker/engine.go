// Package tracker turns periodic samples of "now" and "time since last
// input" into time slices.
//
// The engine keeps the slice most recently touched near "now" as a cursor
// that the current task claims territory from. Short slices (under five
// minutes) are absorbed by whatever task is active, so flipping between tasks
// for a few seconds does not fragment the timeline. Once the user has been
// away longer than the idle threshold the cursor slice is cut back to the last
// input, and when input resumes the away period is reported through the idle
// callback exactly once.
package tracker

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/imkarma/zedd/internal/slice"
	"github.com/imkarma/zedd/internal/task"
	"github.com/imkarma/zedd/internal/timeline"
	"github.com/imkarma/zedd/internal/timeutil"
)

const (
	// NearbyMinutes is how close a slice's end must be to now for the slice
	// to be picked up as the candidate for extension.
	NearbyMinutes = 5
	// ShortSliceMinutes is the length under which a candidate is rebooked
	// onto the current task instead of being preserved.
	ShortSliceMinutes = 5
	// DefaultIdleThresholdMinutes is the away threshold used when none is configured.
	DefaultIdleThresholdMinutes = 15
)

// Mode is what the engine concluded about the user on the last tick.
type Mode int

const (
	Active Mode = iota
	Away
)

func (m Mode) String() string {
	if m == Away {
		return "away"
	}
	return "active"
}

// IdleFunc receives an away period once the user is back. A returned error
// or a panic is logged and otherwise ignored.
type IdleFunc func(away slice.Interval) error

// Engine is the tracking state machine. It is not safe for concurrent use;
// callers serialize Tick with every other mutation of the timeline.
type Engine struct {
	tl  *timeline.Timeline
	reg *task.Registry

	current        task.ID
	timing         bool
	lastUserAction time.Time
	cursor         *slice.Slice
	mode           Mode

	onIdle IdleFunc
	logger *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for recovered failures.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithIdleFunc sets the idle callback.
func WithIdleFunc(fn IdleFunc) Option {
	return func(e *Engine) { e.onIdle = fn }
}

// New returns an engine over tl. Tracking is enabled, the current task is
// the undefined task, so nothing is recorded until a task is chosen.
func New(tl *timeline.Timeline, reg *task.Registry, opts ...Option) *Engine {
	e := &Engine{
		tl:      tl,
		reg:     reg,
		current: reg.Undefined().ID,
		timing:  true,
		logger:  log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetIdleFunc replaces the idle callback; nil disables it.
func (e *Engine) SetIdleFunc(fn IdleFunc) { e.onIdle = fn }

// Current returns the task new time is booked on.
func (e *Engine) Current() task.ID { return e.current }

// SetCurrent changes the task new time is booked on.
func (e *Engine) SetCurrent(id task.ID) { e.current = id }

// Timing reports whether tracking is enabled.
func (e *Engine) Timing() bool { return e.timing }

// SetTiming enables or pauses tracking.
func (e *Engine) SetTiming(on bool) { e.timing = on }

// LastUserAction is the most recent instant input was observed.
func (e *Engine) LastUserAction() time.Time { return e.lastUserAction }

// Cursor returns the slice most recently created or extended by the engine,
// or nil.
func (e *Engine) Cursor() *slice.Slice {
	if !e.tl.Contains(e.cursor) {
		return nil
	}
	return e.cursor
}

// Mode returns the user state derived on the last tick.
func (e *Engine) Mode() Mode { return e.mode }

// Restore resumes from persisted engine state. cursor may be nil.
func (e *Engine) Restore(lastUserAction time.Time, cursor *slice.Slice) {
	e.lastUserAction = lastUserAction
	e.cursor = cursor
}

// Tick samples the clock. now is the current time, sinceInput the time since
// the last user input and thresholdMinutes the away threshold (values below
// one are raised to one). All slice mutations of a tick are engine-internal
// and never reach the undo journal.
//
// The returned error is non-nil only when a slice could not be reshaped
// because its endpoints were moved by hand into a state the engine cannot
// extend; the timeline is left as it was at the point of failure.
func (e *Engine) Tick(now time.Time, sinceInput time.Duration, thresholdMinutes int) error {
	if thresholdMinutes < 1 {
		thresholdMinutes = 1
	}
	if sinceInput < 0 {
		sinceInput = 0
	}

	prevUserAction := e.lastUserAction
	e.lastUserAction = now.Add(-sinceInput)
	if prevUserAction.IsZero() {
		// First sample ever: there is no earlier input to have been away from.
		prevUserAction = e.lastUserAction
	}

	away := timeutil.Minutes(e.lastUserAction, now) > thresholdMinutes
	if away {
		e.mode = Away
	} else {
		e.mode = Active
	}

	if !e.timing || e.reg.IsUndefined(e.current) {
		e.cursor = nil
		return nil
	}

	tx := e.tl.Begin(timeline.EngineInternal)
	defer tx.Commit()

	candidate := e.candidate(now)

	if away {
		if candidate != nil {
			e.cut(tx, candidate, timeutil.StartOfNextMinute(e.lastUserAction))
			e.cursor = nil
		}
		return nil
	}

	if e.lastUserAction.After(prevUserAction) && timeutil.Minutes(prevUserAction, now) > thresholdMinutes {
		if candidate != nil && e.cut(tx, candidate, timeutil.StartOfNextMinute(prevUserAction)) {
			candidate = nil
		}
		e.notifyIdle(slice.Interval{
			Start: timeutil.StartOfNextMinute(prevUserAction),
			End:   timeutil.StartOfMinute(now),
		})
	}

	return e.reconcile(tx, candidate, now)
}

// candidate picks the slice to extend: the latest-starting slice that began
// before now and ends within NearbyMinutes of now, else the cursor.
func (e *Engine) candidate(now time.Time) *slice.Slice {
	var best *slice.Slice
	e.tl.Each(func(s *slice.Slice) bool {
		if timeutil.AbsMinutes(now, s.End()) < NearbyMinutes && s.Start().Before(now) {
			if best == nil || s.Start().After(best.Start()) {
				best = s
			}
		}
		return true
	})
	if best == nil {
		best = e.Cursor()
	}
	return best
}

func (e *Engine) reconcile(tx *timeline.Tx, candidate *slice.Slice, now time.Time) error {
	nextMinute := timeutil.StartOfNextMinute(now)

	if candidate == nil {
		start := timeutil.StartOfMinute(now)
		s, err := e.add(tx, start, start.Add(time.Minute))
		if err != nil {
			return err
		}
		e.cursor = s
		return nil
	}

	if timeutil.AbsMinutes(candidate.Start(), candidate.End()) < ShortSliceMinutes && candidate.Task() != e.current {
		if err := tx.SetTask(candidate, e.current); err != nil {
			return fmt.Errorf("rebook short slice: %w", err)
		}
	}

	if candidate.Task() == e.current {
		if timeutil.SameDay(candidate.Start(), now) {
			if err := tx.SetEnd(candidate, nextMinute); err != nil {
				return fmt.Errorf("extend slice: %w", err)
			}
			e.cursor = candidate
			return nil
		}
		if err := tx.SetEnd(candidate, timeutil.StartOfNextDay(candidate.Start())); err != nil {
			return fmt.Errorf("close slice at midnight: %w", err)
		}
		s, err := e.add(tx, timeutil.StartOfDay(now), nextMinute)
		if err != nil {
			return err
		}
		e.cursor = s
		return nil
	}

	if minute := timeutil.StartOfMinute(now); minute.Before(candidate.End()) {
		if err := tx.SetEnd(candidate, minute); err != nil {
			return fmt.Errorf("clamp previous slice: %w", err)
		}
	}
	start := candidate.End()
	if !timeutil.SameDay(start, now) {
		start = timeutil.StartOfDay(now)
	}
	s, err := e.add(tx, start, nextMinute)
	if err != nil {
		return err
	}
	e.cursor = s
	return nil
}

func (e *Engine) add(tx *timeline.Tx, start, end time.Time) (*slice.Slice, error) {
	s, err := slice.New(start, end, e.current)
	if err != nil {
		return nil, fmt.Errorf("create slice: %w", err)
	}
	if _, err := tx.Add(s); err != nil {
		return nil, fmt.Errorf("create slice: %w", err)
	}
	return s, nil
}

// cut moves the end of s to end and reports whether it did. A slice that
// would become shorter than a minute is left alone and stays eligible for
// extension. The end never moves past the midnight following the start.
func (e *Engine) cut(tx *timeline.Tx, s *slice.Slice, end time.Time) bool {
	if limit := timeutil.StartOfNextDay(s.Start()); end.After(limit) {
		end = limit
	}
	if err := tx.SetEnd(s, end); err != nil {
		e.logger.Printf("tracker: keep %s: %v", s.Interval(), err)
		return false
	}
	return true
}

func (e *Engine) notifyIdle(away slice.Interval) {
	if e.onIdle == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("tracker: idle callback panicked for %s: %v", away, r)
		}
	}()
	if err := e.onIdle(away); err != nil {
		e.logger.Printf("tracker: idle callback failed for %s: %v", away, err)
	}
}
