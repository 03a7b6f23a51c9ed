// Package state ties the task registry, the timeline and the tracking engine
// together into the application state that is saved and restored as a unit.
package state

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/imkarma/zedd/internal/slice"
	"github.com/imkarma/zedd/internal/task"
	"github.com/imkarma/zedd/internal/timeline"
	"github.com/imkarma/zedd/internal/tracker"
)

// RecentTaskLimit bounds the list of last interacted tasks.
const RecentTaskLimit = 5

// ErrOverlap is returned when a manual slice has no free room left after
// being clamped to its neighbours.
var ErrOverlap = errors.New("slice overlaps existing time")

// State is the complete tracker state.
type State struct {
	Registry *task.Registry
	Timeline *timeline.Timeline
	Engine   *tracker.Engine

	recent []task.ID
	loc    *time.Location
	logger *log.Logger
}

// Option configures a State.
type Option func(*State)

// WithLocation sets the location restored timestamps are shown in. Day
// boundaries follow it.
func WithLocation(loc *time.Location) Option {
	return func(s *State) { s.loc = loc }
}

// WithLogger sets the logger for recoverable problems.
func WithLogger(l *log.Logger) Option {
	return func(s *State) { s.logger = l }
}

// New returns an empty state: no slices, timing on, undefined current task.
func New(opts ...Option) *State {
	s := &State{
		Registry: task.NewRegistry(),
		Timeline: timeline.New(),
		loc:      time.Local,
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Engine = tracker.New(s.Timeline, s.Registry, tracker.WithLogger(s.logger))
	return s
}

// Location returns the location day boundaries are computed in.
func (s *State) Location() *time.Location { return s.loc }

// Tick forwards a clock sample to the engine.
func (s *State) Tick(now time.Time, sinceInput time.Duration, thresholdMinutes int) error {
	return s.Engine.Tick(now, sinceInput, thresholdMinutes)
}

// CurrentTask returns the task new time is booked on.
func (s *State) CurrentTask() *task.Task {
	return s.Registry.Get(s.Engine.Current())
}

// SetCurrentTask switches the task new time is booked on and records the
// interaction.
func (s *State) SetCurrentTask(t *task.Task) {
	if t == nil {
		t = s.Registry.Undefined()
	}
	s.Engine.SetCurrent(t.ID)
	s.NotifyTaskInteraction(t)
}

// StartTiming enables tracking on the named task.
func (s *State) StartTiming(name string) *task.Task {
	t := s.Registry.GetOrCreate(name)
	s.SetCurrentTask(t)
	s.Engine.SetTiming(true)
	return t
}

// StopTiming pauses tracking and clears the current task.
func (s *State) StopTiming() {
	s.Engine.SetCurrent(s.Registry.Undefined().ID)
	s.Engine.SetTiming(false)
}

// ToggleTiming flips the timing flag and reports the new value. The current
// task is kept.
func (s *State) ToggleTiming() bool {
	s.Engine.SetTiming(!s.Engine.Timing())
	return s.Engine.Timing()
}

// TaskName returns the name of id, or the undefined name for unknown ids.
func (s *State) TaskName(id task.ID) string {
	if t := s.Registry.Get(id); t != nil {
		return t.Name
	}
	return task.UndefinedName
}

// FormatSlice renders sl in the legacy textual encoding.
func (s *State) FormatSlice(sl *slice.Slice) string {
	return sl.Format(s.TaskName(sl.Task()))
}

// NotifyTaskInteraction moves t to the front of the recently used list.
func (s *State) NotifyTaskInteraction(t *task.Task) {
	if t == nil || s.Registry.IsUndefined(t.ID) {
		return
	}
	recent := []task.ID{t.ID}
	for _, id := range s.recent {
		if id != t.ID && len(recent) < RecentTaskLimit {
			recent = append(recent, id)
		}
	}
	s.recent = recent
}

// RecentTasks returns the last interacted tasks, most recent first.
func (s *State) RecentTasks() []*task.Task {
	out := make([]*task.Task, 0, len(s.recent))
	for _, id := range s.recent {
		if t := s.Registry.Get(id); t != nil {
			out = append(out, t)
		}
	}
	return out
}

// TaskInfo pairs a task with the end of its latest slice.
type TaskInfo struct {
	Task    *task.Task
	LastEnd time.Time
}

// TasksInfos lists every task that has slices, most recently worked first.
// The undefined task is left out.
func (s *State) TasksInfos() []TaskInfo {
	var infos []TaskInfo
	for _, id := range s.Timeline.TaskIDs() {
		if s.Registry.IsUndefined(id) {
			continue
		}
		slices := s.Timeline.ByTask(id)
		if len(slices) == 0 {
			continue
		}
		info := TaskInfo{Task: s.Registry.Get(id)}
		for _, sl := range slices {
			if sl.End().After(info.LastEnd) {
				info.LastEnd = sl.End()
			}
		}
		infos = append(infos, info)
	}
	sort.SliceStable(infos, func(i, j int) bool {
		if !infos[i].LastEnd.Equal(infos[j].LastEnd) {
			return infos[i].LastEnd.After(infos[j].LastEnd)
		}
		return infos[i].Task.ID < infos[j].Task.ID
	})
	return infos
}

// MostRecentTasks returns up to n tasks from TasksInfos.
func (s *State) MostRecentTasks(n int) []*task.Task {
	infos := s.TasksInfos()
	if len(infos) > n {
		infos = infos[:n]
	}
	out := make([]*task.Task, len(infos))
	for i, info := range infos {
		out[i] = info.Task
	}
	return out
}

// SuggestedTasks returns the tasks worth offering when switching: recently
// interacted, recently worked and the given extras, each work item once.
// Extras are registered.
func (s *State) SuggestedTasks(extra ...task.Task) []*task.Task {
	var out []*task.Task
	seen := map[task.ID]bool{}
	push := func(t *task.Task) {
		if t == nil || seen[t.ID] || s.Registry.IsUndefined(t.ID) {
			return
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	for _, t := range s.RecentTasks() {
		push(t)
	}
	for _, t := range s.MostRecentTasks(7) {
		push(t)
	}
	for _, t := range extra {
		push(s.Registry.Normalize(t))
	}
	return out
}

// AddSlice books iv on the named task as a user edit. The interval is
// clamped so it does not overlap its neighbours.
func (s *State) AddSlice(iv slice.Interval, name string) (*slice.Slice, error) {
	t := s.Registry.GetOrCreate(name)
	tx := s.Timeline.Begin(timeline.UserEdit)
	defer tx.Commit()
	sl, err := s.addClamped(tx, iv, t.ID)
	if err != nil {
		return nil, err
	}
	s.NotifyTaskInteraction(t)
	return sl, nil
}

// AssignInterval books an away period on t, one slice per calendar day, as a
// single undoable edit. Days whose share is fully covered already are
// skipped.
func (s *State) AssignInterval(iv slice.Interval, t *task.Task) ([]*slice.Slice, error) {
	if t == nil || s.Registry.IsUndefined(t.ID) {
		return nil, fmt.Errorf("assign %s: no task", iv)
	}
	tx := s.Timeline.Begin(timeline.UserEdit)
	defer tx.Commit()
	var added []*slice.Slice
	for _, part := range slice.SplitByDay(iv) {
		sl, err := s.addClamped(tx, part, t.ID)
		if errors.Is(err, ErrOverlap) {
			continue
		}
		if err != nil {
			return added, err
		}
		added = append(added, sl)
	}
	s.NotifyTaskInteraction(t)
	return added, nil
}

// RemoveSlice deletes sl as a user edit.
func (s *State) RemoveSlice(sl *slice.Slice) error {
	return s.Timeline.Remove(timeline.UserEdit, sl)
}

// Undo reverts the last user edit.
func (s *State) Undo() (bool, error) { return s.Timeline.Journal().Undo() }

// Redo reapplies the last undone user edit.
func (s *State) Redo() (bool, error) { return s.Timeline.Journal().Redo() }

func (s *State) addClamped(tx *timeline.Tx, iv slice.Interval, id task.ID) (*slice.Slice, error) {
	if prev := s.Timeline.Previous(iv); prev != nil && prev.End().After(iv.Start) {
		iv.Start = prev.End()
	}
	if next := s.Timeline.Next(iv); next != nil && next.Start().Before(iv.End) {
		iv.End = next.Start()
	}
	if iv.Duration() < slice.MinDuration {
		return nil, fmt.Errorf("add %s: %w", iv, ErrOverlap)
	}
	overlap := false
	s.Timeline.Each(func(sl *slice.Slice) bool {
		overlap = sl.Interval().Overlaps(iv)
		return !overlap
	})
	if overlap {
		return nil, fmt.Errorf("add %s: %w", iv, ErrOverlap)
	}
	sl, err := slice.New(iv.Start, iv.End, id)
	if err != nil {
		return nil, fmt.Errorf("add slice: %w", err)
	}
	return tx.Add(sl)
}
