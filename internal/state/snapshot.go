package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/imkarma/zedd/internal/slice"
	"github.com/imkarma/zedd/internal/task"
	"github.com/imkarma/zedd/internal/timeline"
)

// ErrLoad is returned when a snapshot cannot be restored as a whole.
var ErrLoad = errors.New("load state")

// NoCursor is the LastTimedSlice value meaning "no cursor".
const NoCursor = -1

// SliceRecord is a slice as persisted: task referenced by name.
type SliceRecord struct {
	Start time.Time
	End   time.Time
	Task  string
}

// Snapshot is everything needed to resume tracking.
type Snapshot struct {
	Tasks            []task.Task
	Slices           []SliceRecord
	CurrentTask      string
	TimingInProgress bool
	LastUserAction   time.Time
	// LastTimedSlice indexes Slices, or is NoCursor.
	LastTimedSlice int
	RecentTasks    []string
}

// Snapshot captures the state. Slices are ordered by start and every task
// they reference appears once in Tasks.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		CurrentTask:      s.CurrentTask().Name,
		TimingInProgress: s.Engine.Timing(),
		LastUserAction:   s.Engine.LastUserAction(),
		LastTimedSlice:   NoCursor,
	}
	used := map[task.ID]bool{}
	cursor := s.Engine.Cursor()
	for i, sl := range s.Timeline.Slices() {
		if sl == cursor {
			snap.LastTimedSlice = i
		}
		used[sl.Task()] = true
		snap.Slices = append(snap.Slices, SliceRecord{
			Start: sl.Start(),
			End:   sl.End(),
			Task:  s.TaskName(sl.Task()),
		})
	}
	used[s.Engine.Current()] = true
	for _, t := range s.RecentTasks() {
		used[t.ID] = true
		snap.RecentTasks = append(snap.RecentTasks, t.Name)
	}
	for _, t := range s.Registry.All() {
		if used[t.ID] && !s.Registry.IsUndefined(t.ID) {
			snap.Tasks = append(snap.Tasks, *t)
		}
	}
	return snap
}

// Restore rebuilds a State from snap. Slices that are malformed or reference
// an unknown task are logged and skipped; a cursor index outside the slice
// list fails the whole restore with ErrLoad. The undo journal starts empty.
func Restore(snap Snapshot, opts ...Option) (*State, error) {
	if snap.LastTimedSlice < NoCursor || snap.LastTimedSlice >= len(snap.Slices) {
		return nil, fmt.Errorf("%w: cursor index %d outside %d slices", ErrLoad, snap.LastTimedSlice, len(snap.Slices))
	}

	s := New(opts...)
	byName := map[string]*task.Task{}
	for _, t := range snap.Tasks {
		if t.Name == "" {
			s.logger.Printf("state: skip unnamed task (key %q)", t.Key)
			continue
		}
		byName[t.Name] = s.Registry.Normalize(t)
	}
	lookup := func(name string) *task.Task {
		if t, ok := byName[name]; ok {
			return t
		}
		return s.Registry.FindByName(name)
	}

	var cursor *slice.Slice
	for i, rec := range snap.Slices {
		t := lookup(rec.Task)
		if t == nil {
			s.logger.Printf("state: skip slice %d: unknown task %q", i, rec.Task)
			continue
		}
		sl, err := slice.New(rec.Start.In(s.loc), rec.End.In(s.loc), t.ID)
		if err != nil {
			s.logger.Printf("state: skip slice %d: %v", i, err)
			continue
		}
		if _, err := s.Timeline.Add(timeline.EngineInternal, sl); err != nil {
			s.logger.Printf("state: skip slice %d: %v", i, err)
			continue
		}
		if i == snap.LastTimedSlice {
			cursor = sl
		}
	}

	current := s.Registry.Undefined()
	if snap.CurrentTask != "" {
		if t := lookup(snap.CurrentTask); t != nil {
			current = t
		} else {
			current = s.Registry.GetOrCreate(snap.CurrentTask)
		}
	}
	s.Engine.SetCurrent(current.ID)
	s.Engine.SetTiming(snap.TimingInProgress)

	var lastUserAction time.Time
	if !snap.LastUserAction.IsZero() {
		lastUserAction = snap.LastUserAction.In(s.loc)
	}
	s.Engine.Restore(lastUserAction, cursor)

	for i := len(snap.RecentTasks) - 1; i >= 0; i-- {
		if t := lookup(snap.RecentTasks[i]); t != nil {
			s.NotifyTaskInteraction(t)
		}
	}
	s.Timeline.Journal().Reset()
	return s, nil
}
