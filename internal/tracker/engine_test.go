package tracker

import (
	"bytes"
	"errors"
	"log"
	"math/rand"
	"testing"
	"time"

	"github.com/imkarma/zedd/internal/slice"
	"github.com/imkarma/zedd/internal/task"
	"github.com/imkarma/zedd/internal/timeline"
	"github.com/imkarma/zedd/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2020, 1, 1, 10, 0, 2, 0, time.Local)

func newEngine(opts ...Option) (*Engine, *timeline.Timeline, *task.Registry) {
	tl := timeline.New()
	reg := task.NewRegistry()
	return New(tl, reg, opts...), tl, reg
}

func TestTick_UndefinedTaskRecordsNothing(t *testing.T) {
	e, tl, _ := newEngine()
	require.NoError(t, e.Tick(t0, 0, 15))
	assert.Zero(t, tl.Len())
	assert.Nil(t, e.Cursor())
}

func TestTick_PauseClearsCursor(t *testing.T) {
	e, tl, reg := newEngine()
	e.SetCurrent(reg.GetOrCreate("foo").ID)
	require.NoError(t, e.Tick(t0, 0, 15))
	require.NotNil(t, e.Cursor())

	e.SetTiming(false)
	require.NoError(t, e.Tick(t0.Add(time.Minute), 0, 15))
	assert.Nil(t, e.Cursor())
	assert.Equal(t, t0.Add(time.Minute), e.LastUserAction())
	assert.Equal(t, 1, tl.Len())
}

func TestTick_ThresholdBelowOneIsRaised(t *testing.T) {
	e, _, reg := newEngine()
	e.SetCurrent(reg.GetOrCreate("foo").ID)
	require.NoError(t, e.Tick(t0, 120*time.Second, 0))
	assert.Equal(t, Away, e.Mode())
	require.NoError(t, e.Tick(t0, 60*time.Second, -3))
	assert.Equal(t, Active, e.Mode())
}

func TestTick_EngineEditsAreNotUndoable(t *testing.T) {
	e, tl, reg := newEngine()
	e.SetCurrent(reg.GetOrCreate("foo").ID)
	for i := 0; i < 10; i++ {
		require.NoError(t, e.Tick(t0.Add(time.Duration(i)*time.Minute), 0, 15))
	}
	assert.Equal(t, 1, tl.Len())
	assert.False(t, tl.Journal().CanUndo())
}

func TestTick_RemovedCursorIsNotRevived(t *testing.T) {
	e, tl, reg := newEngine()
	e.SetCurrent(reg.GetOrCreate("foo").ID)
	require.NoError(t, e.Tick(t0, 0, 15))
	cursor := e.Cursor()
	require.NotNil(t, cursor)
	require.NoError(t, tl.Remove(timeline.UserEdit, cursor))
	assert.Nil(t, e.Cursor())

	require.NoError(t, e.Tick(t0.Add(10*time.Minute), 0, 15))
	require.Equal(t, 1, tl.Len())
	assert.Equal(t, t0.Add(10*time.Minute).Truncate(time.Minute), tl.Slices()[0].Start())
}

func TestTick_IdleCallbackFailuresAreLogged(t *testing.T) {
	for name, fn := range map[string]IdleFunc{
		"panic": func(slice.Interval) error { panic("boom") },
		"error": func(slice.Interval) error { return errors.New("boom") },
	} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			e, tl, reg := newEngine(WithLogger(log.New(&buf, "", 0)), WithIdleFunc(fn))
			e.SetCurrent(reg.GetOrCreate("foo").ID)
			require.NoError(t, e.Tick(t0, 0, 15))
			require.NoError(t, e.Tick(t0.Add(time.Hour), 0, 15))

			assert.Contains(t, buf.String(), "boom")
			assert.Equal(t, 2, tl.Len(), "tracking continues after a failed callback")
		})
	}
}

func TestTick_HandShortenedSliceIsKept(t *testing.T) {
	var buf bytes.Buffer
	e, tl, reg := newEngine(WithLogger(log.New(&buf, "", 0)))
	e.SetCurrent(reg.GetOrCreate("foo").ID)
	require.NoError(t, e.Tick(t0, 0, 15))
	require.NoError(t, e.Tick(t0.Add(5*time.Minute), 0, 15))
	cursor := e.Cursor()

	// Move the start past the point the engine would cut back to.
	start := time.Date(2020, 1, 1, 10, 5, 30, 0, time.Local)
	end := time.Date(2020, 1, 1, 10, 10, 0, 0, time.Local)
	require.NoError(t, tl.SetInterval(timeline.UserEdit, cursor, &start, &end))

	require.NoError(t, e.Tick(t0.Add(30*time.Minute), 25*time.Minute, 15))
	assert.Equal(t, Away, e.Mode())
	assert.Equal(t, slice.Interval{Start: start, End: end}, cursor.Interval())
	assert.Contains(t, buf.String(), "invalid interval")
}

func TestTick_Idempotent(t *testing.T) {
	e, tl, reg := newEngine()
	foo := reg.GetOrCreate("foo").ID
	bar := reg.GetOrCreate("bar").ID
	e.SetCurrent(foo)

	now := t0
	for i := 0; i < 200; i++ {
		if i == 80 {
			e.SetCurrent(bar)
		}
		since := time.Duration(0)
		if i >= 120 && i < 160 {
			since = time.Duration(i-120) * time.Minute
		}
		require.NoError(t, e.Tick(now, since, 15))
		before := render(tl)
		require.NoError(t, e.Tick(now, since, 15))
		assert.Equal(t, before, render(tl), "tick %d", i)
		now = now.Add(time.Minute)
	}
}

func TestTick_SwitchAfterPausedMidnightStartsAtMidnight(t *testing.T) {
	e, tl, reg := newEngine()
	a := reg.GetOrCreate("a").ID
	b := reg.GetOrCreate("b").ID
	e.SetCurrent(a)
	start := time.Date(2020, 1, 1, 23, 40, 2, 0, time.Local)
	for now := start; now.Before(start.Add(18 * time.Minute)); now = now.Add(10 * time.Second) {
		require.NoError(t, e.Tick(now, 0, 15))
	}
	e.SetTiming(false)

	e.SetTiming(true)
	e.SetCurrent(b)
	require.NoError(t, e.Tick(time.Date(2020, 1, 2, 0, 1, 10, 0, time.Local), 0, 15))

	assert.Equal(t, []string{
		"2020-01-01 23:40 - 2020-01-01 23:58",
		"2020-01-02 00:00 - 2020-01-02 00:02",
	}, render(tl))
	slices := tl.Slices()
	assert.Equal(t, a, slices[0].Task())
	assert.Equal(t, b, slices[1].Task())
}

func TestTick_RestoredCursorFromEarlierDayClosesAtOwnMidnight(t *testing.T) {
	e, tl, reg := newEngine()
	e.SetCurrent(reg.GetOrCreate("a").ID)
	start := time.Date(2020, 1, 1, 23, 40, 2, 0, time.Local)
	require.NoError(t, e.Tick(start, 0, 15))
	require.NoError(t, e.Tick(start.Add(10*time.Minute), 0, 15))
	cursor := e.Cursor()
	require.NotNil(t, cursor)

	now := time.Date(2020, 1, 3, 0, 0, 30, 0, time.Local)
	e.Restore(now.Add(-time.Minute), cursor)
	require.NoError(t, e.Tick(now, 0, 15))

	assert.Equal(t, []string{
		"2020-01-01 23:40 - 2020-01-02 00:00",
		"2020-01-03 00:00 - 2020-01-03 00:01",
	}, render(tl))
}

func render(tl *timeline.Timeline) []string {
	var out []string
	for _, s := range tl.Slices() {
		out = append(out, s.Interval().String())
	}
	return out
}

// TestTick_Invariants runs a seeded random walk of task switches, pauses,
// absences and sleeps and checks the timeline after every sample.
func TestTick_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var idles []slice.Interval
	e, tl, reg := newEngine(WithIdleFunc(func(iv slice.Interval) error {
		idles = append(idles, iv)
		return nil
	}))
	tasks := []task.ID{reg.GetOrCreate("a").ID, reg.GetOrCreate("b").ID, reg.GetOrCreate("c").ID}

	now := t0
	lastInput := now
	idle := false
	for i := 0; i < 5000; i++ {
		switch r := rng.Intn(100); {
		case r < 3:
			e.SetCurrent(tasks[rng.Intn(len(tasks))])
		case r < 4:
			e.SetTiming(!e.Timing())
		case r < 6:
			idle = !idle
		case r < 7:
			now = now.Add(time.Duration(rng.Intn(180)) * time.Minute)
			lastInput = now
		}
		now = now.Add(10 * time.Second)
		if !idle {
			lastInput = now.Add(-2 * time.Second)
		}

		before := snapshot(tl)
		require.NoError(t, e.Tick(now, now.Sub(lastInput), 15))
		after := snapshot(tl)

		slices := tl.Slices()
		for j, s := range slices {
			require.GreaterOrEqual(t, s.Duration(), time.Minute, "slice too short at %s", now)
			require.True(t, timeutil.SameDay(s.Start(), s.End()) || s.End().Equal(timeutil.StartOfDay(s.End())),
				"slice spans midnight at %s: %s", now, s.Interval())
			if j > 0 {
				require.False(t, slices[j-1].End().After(s.Start()), "overlap at %s: %s / %s",
					now, slices[j-1].Interval(), s.Interval())
			}
		}
		require.LessOrEqual(t, changedOrAdded(before, after), 2, "too many slices touched at %s", now)
	}
	for _, iv := range idles {
		assert.True(t, iv.Start.Before(iv.End) || iv.Start.Equal(iv.End))
	}
}

type shape struct {
	iv   slice.Interval
	task task.ID
}

func snapshot(tl *timeline.Timeline) map[uint64]shape {
	out := map[uint64]shape{}
	tl.Each(func(s *slice.Slice) bool {
		out[s.ID()] = shape{s.Interval(), s.Task()}
		return true
	})
	return out
}

// changedOrAdded counts slices that are new or differ after a tick. A tick
// reshapes at most the candidate and adds at most one slice.
func changedOrAdded(before, after map[uint64]shape) int {
	n := 0
	for id, s := range after {
		if prev, ok := before[id]; !ok || prev != s {
			n++
		}
	}
	return n
}
