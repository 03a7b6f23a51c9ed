// Package slice defines the time slice: a contiguous span of work on one task.
package slice

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/imkarma/zedd/internal/task"
	"github.com/imkarma/zedd/internal/timeutil"
)

// ErrInvalidInterval is returned when a slice would end less than one minute
// after it starts.
var ErrInvalidInterval = errors.New("invalid interval")

// MinDuration is the shortest allowed slice.
const MinDuration = time.Minute

// Layout is the fixed-width timestamp format of the textual slice encoding.
const Layout = "2006-01-02 15:04"

// Interval is a half-open time span [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether i and o share any instant.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// String formats the interval as "<start> - <end>".
func (i Interval) String() string {
	return i.Start.Format(Layout) + " - " + i.End.Format(Layout)
}

// Validate checks the one-minute minimum.
func (i Interval) Validate() error {
	if i.End.Sub(i.Start) < MinDuration {
		return fmt.Errorf("%w: start (%s) must be at least one minute before end (%s)",
			ErrInvalidInterval, i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
	}
	return nil
}

// Slice is a span of work on one task. Its endpoints may move, but never
// closer than MinDuration to each other.
type Slice struct {
	id    uint64
	start time.Time
	end   time.Time
	task  task.ID
}

// New returns a slice for [start, end) booked on taskID.
func New(start, end time.Time, taskID task.ID) (*Slice, error) {
	s := &Slice{task: taskID}
	if err := s.SetInterval(&start, &end); err != nil {
		return nil, err
	}
	return s, nil
}

// ID is the stable identity assigned when the slice joins a timeline, or 0.
func (s *Slice) ID() uint64 { return s.id }

// SetID is called by the owning timeline. It has no effect once an ID is set.
func (s *Slice) SetID(id uint64) {
	if s.id == 0 {
		s.id = id
	}
}

func (s *Slice) Start() time.Time { return s.start }
func (s *Slice) End() time.Time   { return s.end }
func (s *Slice) Task() task.ID    { return s.task }

// Interval returns the current endpoints.
func (s *Slice) Interval() Interval {
	return Interval{Start: s.start, End: s.end}
}

// Duration returns End - Start.
func (s *Slice) Duration() time.Duration {
	return s.end.Sub(s.start)
}

// SetInterval updates either or both endpoints; a nil argument keeps the
// current value. The combined result is validated before anything changes,
// so a failed call leaves the slice untouched.
func (s *Slice) SetInterval(start, end *time.Time) error {
	next := s.Interval()
	if start != nil {
		next.Start = *start
	}
	if end != nil {
		next.End = *end
	}
	if err := next.Validate(); err != nil {
		return err
	}
	s.start, s.end = next.Start, next.End
	return nil
}

// SetTask rebooks the slice on another task.
func (s *Slice) SetTask(id task.ID) {
	s.task = id
}

// Format renders the legacy textual encoding "<start> - <end> <taskName>".
func (s *Slice) Format(taskName string) string {
	return Format(s.Interval(), taskName)
}

// Format renders an interval and task name in the legacy textual encoding.
func Format(i Interval, taskName string) string {
	return i.String() + " " + taskName
}

// SplitByDay cuts i at every midnight it crosses. Pieces shorter than
// MinDuration are dropped.
func SplitByDay(i Interval) []Interval {
	var out []Interval
	for start := i.Start; start.Before(i.End); {
		end := timeutil.StartOfNextDay(start)
		if end.After(i.End) {
			end = i.End
		}
		if end.Sub(start) >= MinDuration {
			out = append(out, Interval{Start: start, End: end})
		}
		start = end
	}
	return out
}

var lineRe = regexp.MustCompile(`^(.{16}) - (.{16}) (.*)$`)

// Parse splits a legacy slice line into its interval and task name. Times are
// read in loc. Parse does not apply the one-minute rule; callers that build
// slices from the result get that check from New.
func Parse(line string, loc *time.Location) (Interval, string, error) {
	if loc == nil {
		loc = time.Local
	}
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return Interval{}, "", fmt.Errorf("parse slice %q: expected \"<start> - <end> <task>\"", line)
	}
	start, err := time.ParseInLocation(Layout, m[1], loc)
	if err != nil {
		return Interval{}, "", fmt.Errorf("parse slice start: %w", err)
	}
	end, err := time.ParseInLocation(Layout, m[2], loc)
	if err != nil {
		return Interval{}, "", fmt.Errorf("parse slice end: %w", err)
	}
	return Interval{Start: start, End: end}, m[3], nil
}
