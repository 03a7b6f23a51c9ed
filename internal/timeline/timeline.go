// Package timeline is the authoritative set of time slices.
//
// All mutations go through a Tx tagged with its Source. Grouping views
// (by task, by day) subscribe to the timeline's change hooks and move
// slices between groups as they are added, removed or edited; slices owned
// by a timeline must therefore never be mutated directly.
//
// The timeline does not check for overlaps. Keeping slices disjoint is the
// job of the tracking engine and of whoever performs manual edits.
package timeline

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/imkarma/zedd/internal/slice"
	"github.com/imkarma/zedd/internal/task"
	"github.com/imkarma/zedd/internal/timeutil"
)

// Source tags who performed a mutation.
type Source int

const (
	UserEdit       Source = iota // Recorded in the undo journal.
	EngineInternal               // Automatic tracking; never recorded.
)

func (s Source) String() string {
	if s == EngineInternal {
		return "engine"
	}
	return "user"
}

var (
	// ErrMalformedSlice is returned when adding a slice without valid timestamps.
	ErrMalformedSlice = errors.New("malformed slice")
	// ErrUnknownSlice is returned for operations on slices not in the timeline.
	ErrUnknownSlice = errors.New("slice not in timeline")
)

// Change describes an edit of a slice that stayed in the timeline.
type Change struct {
	Slice    *slice.Slice
	Prev     slice.Interval
	PrevTask task.ID
}

// Timeline holds the slices and their derived groupings.
type Timeline struct {
	slices []*slice.Slice
	pos    map[uint64]int
	nextID uint64

	onAdded   []func(*slice.Slice)
	onRemoved []func(*slice.Slice)
	onChanged []func(Change)

	byTask  *Group[task.ID]
	byDay   *Group[int64]
	journal *Journal
}

// New returns an empty timeline with its task and day groupings attached.
func New() *Timeline {
	t := &Timeline{pos: map[uint64]int{}}
	t.journal = newJournal(t)
	t.byTask = NewGroup(t, func(s *slice.Slice) task.ID { return s.Task() })
	t.byDay = NewGroup(t, func(s *slice.Slice) int64 { return timeutil.DayKey(s.Start()) })
	return t
}

// OnSliceAdded registers fn to run after a slice joins the timeline.
func (t *Timeline) OnSliceAdded(fn func(*slice.Slice)) { t.onAdded = append(t.onAdded, fn) }

// OnSliceRemoved registers fn to run after a slice leaves the timeline.
func (t *Timeline) OnSliceRemoved(fn func(*slice.Slice)) { t.onRemoved = append(t.onRemoved, fn) }

// OnSliceChanged registers fn to run after a slice's interval or task changed.
func (t *Timeline) OnSliceChanged(fn func(Change)) { t.onChanged = append(t.onChanged, fn) }

// Journal returns the undo journal of user edits.
func (t *Timeline) Journal() *Journal { return t.journal }

// Len returns the number of slices.
func (t *Timeline) Len() int { return len(t.slices) }

// Contains reports whether s is currently part of the timeline.
func (t *Timeline) Contains(s *slice.Slice) bool {
	if s == nil || s.ID() == 0 {
		return false
	}
	i, ok := t.pos[s.ID()]
	return ok && t.slices[i] == s
}

// Each calls fn for every slice in storage order until fn returns false.
func (t *Timeline) Each(fn func(*slice.Slice) bool) {
	for _, s := range t.slices {
		if !fn(s) {
			return
		}
	}
}

// Slices returns all slices ordered by start.
func (t *Timeline) Slices() []*slice.Slice {
	out := make([]*slice.Slice, len(t.slices))
	copy(out, t.slices)
	sortByStart(out)
	return out
}

// ByTask returns the slices booked on id.
func (t *Timeline) ByTask(id task.ID) []*slice.Slice {
	out := t.byTask.Get(id)
	sortByStart(out)
	return out
}

// TaskIDs returns every task that has at least one slice.
func (t *Timeline) TaskIDs() []task.ID {
	return t.byTask.Keys()
}

// ByDay returns the slices starting on day's calendar day.
func (t *Timeline) ByDay(day time.Time) []*slice.Slice {
	out := t.byDay.Get(timeutil.DayKey(day))
	sortByStart(out)
	return out
}

// InRange returns the slices starting on any calendar day from from to to,
// both inclusive, ordered by start.
func (t *Timeline) InRange(from, to time.Time) []*slice.Slice {
	var out []*slice.Slice
	for _, day := range timeutil.EachDay(from, to) {
		out = append(out, t.byDay.Get(timeutil.DayKey(day))...)
	}
	sortByStart(out)
	return out
}

// IsDayEmpty reports whether no slice starts on day's calendar day.
func (t *Timeline) IsDayEmpty(day time.Time) bool {
	return t.byDay.Count(timeutil.DayKey(day)) == 0
}

// Previous returns the slice with the latest start strictly before iv.Start.
func (t *Timeline) Previous(iv slice.Interval) *slice.Slice {
	var result *slice.Slice
	for _, s := range t.slices {
		if !s.Start().Before(iv.Start) {
			continue
		}
		if result == nil || s.Start().After(result.Start()) {
			result = s
		}
	}
	return result
}

// Next returns the slice with the earliest start strictly after iv.Start.
func (t *Timeline) Next(iv slice.Interval) *slice.Slice {
	var result *slice.Slice
	for _, s := range t.slices {
		if !s.Start().After(iv.Start) {
			continue
		}
		if result == nil || s.Start().Before(result.Start()) {
			result = s
		}
	}
	return result
}

// Begin starts a transaction. Mutations apply immediately; Commit records
// the transaction in the undo journal when src is UserEdit.
func (t *Timeline) Begin(src Source) *Tx {
	return &Tx{tl: t, src: src}
}

// Add appends s in a single-operation transaction.
func (t *Timeline) Add(src Source, s *slice.Slice) (*slice.Slice, error) {
	tx := t.Begin(src)
	defer tx.Commit()
	return tx.Add(s)
}

// Remove drops s in a single-operation transaction.
func (t *Timeline) Remove(src Source, s *slice.Slice) error {
	tx := t.Begin(src)
	defer tx.Commit()
	return tx.Remove(s)
}

// SetInterval moves endpoints of s in a single-operation transaction.
func (t *Timeline) SetInterval(src Source, s *slice.Slice, start, end *time.Time) error {
	tx := t.Begin(src)
	defer tx.Commit()
	return tx.SetInterval(s, start, end)
}

// SetTask rebooks s in a single-operation transaction.
func (t *Timeline) SetTask(src Source, s *slice.Slice, id task.ID) error {
	tx := t.Begin(src)
	defer tx.Commit()
	return tx.SetTask(s, id)
}

// AddIfDayEmpty adds s only if no slice starts on its day. It reports whether
// s was added.
func (t *Timeline) AddIfDayEmpty(src Source, s *slice.Slice) (bool, error) {
	if !timeutil.SameDay(s.Start(), s.End()) && !s.End().Equal(timeutil.StartOfNextDay(s.Start())) {
		return false, fmt.Errorf("add full-day slice: %w: spans more than one day", ErrMalformedSlice)
	}
	if !t.IsDayEmpty(s.Start()) {
		return false, nil
	}
	if _, err := t.Add(src, s); err != nil {
		return false, err
	}
	return true, nil
}

func (t *Timeline) insert(s *slice.Slice) error {
	if s.Start().IsZero() || s.End().IsZero() {
		return fmt.Errorf("add slice: %w: zero timestamp", ErrMalformedSlice)
	}
	if err := s.Interval().Validate(); err != nil {
		return fmt.Errorf("add slice: %w", err)
	}
	if t.Contains(s) {
		return fmt.Errorf("add slice: already in timeline")
	}
	if s.ID() == 0 {
		t.nextID++
		s.SetID(t.nextID)
	} else if s.ID() > t.nextID {
		t.nextID = s.ID()
	}
	t.pos[s.ID()] = len(t.slices)
	t.slices = append(t.slices, s)
	for _, fn := range t.onAdded {
		fn(s)
	}
	return nil
}

func (t *Timeline) delete(s *slice.Slice) error {
	if !t.Contains(s) {
		return ErrUnknownSlice
	}
	i := t.pos[s.ID()]
	last := len(t.slices) - 1
	if i != last {
		moved := t.slices[last]
		t.slices[i] = moved
		t.pos[moved.ID()] = i
	}
	t.slices[last] = nil
	t.slices = t.slices[:last]
	delete(t.pos, s.ID())
	for _, fn := range t.onRemoved {
		fn(s)
	}
	return nil
}

func (t *Timeline) setInterval(s *slice.Slice, start, end *time.Time) error {
	if !t.Contains(s) {
		return ErrUnknownSlice
	}
	prev := s.Interval()
	if err := s.SetInterval(start, end); err != nil {
		return err
	}
	if prev == s.Interval() {
		return nil
	}
	t.changed(Change{Slice: s, Prev: prev, PrevTask: s.Task()})
	return nil
}

func (t *Timeline) setTask(s *slice.Slice, id task.ID) error {
	if !t.Contains(s) {
		return ErrUnknownSlice
	}
	prev := s.Task()
	if prev == id {
		return nil
	}
	s.SetTask(id)
	t.changed(Change{Slice: s, Prev: s.Interval(), PrevTask: prev})
	return nil
}

func (t *Timeline) changed(c Change) {
	for _, fn := range t.onChanged {
		fn(c)
	}
}

func sortByStart(ss []*slice.Slice) {
	sort.SliceStable(ss, func(i, j int) bool {
		if ss[i].Start().Equal(ss[j].Start()) {
			return ss[i].End().Before(ss[j].End())
		}
		return ss[i].Start().Before(ss[j].Start())
	})
}
