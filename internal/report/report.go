// Package report computes worked and target hours from a timeline and
// fills placeholder days.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/imkarma/zedd/internal/slice"
	"github.com/imkarma/zedd/internal/task"
	"github.com/imkarma/zedd/internal/timeline"
	"github.com/imkarma/zedd/internal/timeutil"
)

// Hour formats.
const (
	FormatHHMM = "hhmm"
	FormatBT   = "bt"
)

// HoursPerBT is the length of one working day ("Berufstag").
const HoursPerBT = 8

// Calendar describes the working week.
type Calendar struct {
	// Workmask holds target hours Monday through Sunday.
	Workmask  []float64
	StartHour int
}

// DayTarget returns the hours to work on day.
func (c Calendar) DayTarget(day time.Time) float64 {
	i := timeutil.ISOWeekday(day) - 1
	if i >= len(c.Workmask) {
		return 0
	}
	return c.Workmask[i]
}

// TargetHours sums the day targets of every calendar day in [from, to].
func (c Calendar) TargetHours(from, to time.Time) float64 {
	var sum float64
	for _, day := range timeutil.EachDay(from, to) {
		sum += c.DayTarget(day)
	}
	return sum
}

// FullDay returns the working hours of day starting at StartHour. ok is
// false on days without a target.
func (c Calendar) FullDay(day time.Time) (iv slice.Interval, ok bool) {
	hours := c.DayTarget(day)
	if hours <= 0 {
		return slice.Interval{}, false
	}
	start := timeutil.StartOfDay(day).Add(time.Duration(c.StartHour) * time.Hour)
	end := start.Add(time.Duration(hours * float64(time.Hour)))
	return slice.Interval{Start: start, End: end}, true
}

func hours(slices []*slice.Slice) float64 {
	minutes := 0
	for _, s := range slices {
		minutes += timeutil.Minutes(s.Start(), s.End())
	}
	return float64(minutes) / 60
}

// DayWorkedHours sums the whole minutes of the slices starting on day.
func DayWorkedHours(tl *timeline.Timeline, day time.Time) float64 {
	return hours(tl.ByDay(day))
}

// DayProgress is worked over target hours for day; 1 on days without a target.
func DayProgress(tl *timeline.Timeline, cal Calendar, day time.Time) float64 {
	target := cal.DayTarget(day)
	if target == 0 {
		return 1
	}
	return DayWorkedHours(tl, day) / target
}

// TaskHours sums the whole minutes booked on id.
func TaskHours(tl *timeline.Timeline, id task.ID) float64 {
	return hours(tl.ByTask(id))
}

// TaskTotal is the time booked on one task in a range.
type TaskTotal struct {
	Task  task.ID
	Hours float64
}

// TaskTotals sums the slices starting on the days [from, to] per task,
// largest first.
func TaskTotals(tl *timeline.Timeline, from, to time.Time) []TaskTotal {
	byTask := map[task.ID][]*slice.Slice{}
	for _, s := range tl.InRange(from, to) {
		byTask[s.Task()] = append(byTask[s.Task()], s)
	}
	totals := make([]TaskTotal, 0, len(byTask))
	for id, ss := range byTask {
		totals = append(totals, TaskTotal{Task: id, Hours: hours(ss)})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Hours != totals[j].Hours {
			return totals[i].Hours > totals[j].Hours
		}
		return totals[i].Task < totals[j].Task
	})
	return totals
}

// FormatHours renders hours as "H:MM", or for FormatBT as working days with
// a decimal comma ("1,25 BT", "-" for zero).
func FormatHours(h float64, format string) string {
	if format == FormatBT {
		if h == 0 {
			return "-"
		}
		return strings.Replace(fmt.Sprintf("%.2f BT", h/HoursPerBT), ".", ",", 1)
	}
	sign := ""
	if h < 0 {
		sign, h = "-", -h
	}
	m := int(math.Round(h * 60))
	return fmt.Sprintf("%s%d:%02d", sign, m/60, m%60)
}

// FillErsatz books a full working day on ersatz for every day in [from, to]
// that has a target and no slices yet. All additions form one undoable edit.
func FillErsatz(tl *timeline.Timeline, cal Calendar, ersatz task.ID, from, to time.Time) (int, error) {
	tx := tl.Begin(timeline.UserEdit)
	defer tx.Commit()
	added := 0
	for _, day := range timeutil.EachDay(from, to) {
		iv, ok := cal.FullDay(day)
		if !ok || !tl.IsDayEmpty(day) {
			continue
		}
		s, err := slice.New(iv.Start, iv.End, ersatz)
		if err != nil {
			return added, fmt.Errorf("fill %s: %w", day.Format("2006-01-02"), err)
		}
		if _, err := tx.Add(s); err != nil {
			return added, fmt.Errorf("fill %s: %w", day.Format("2006-01-02"), err)
		}
		added++
	}
	return added, nil
}

// ClearErsatz removes the ersatz slices touching the days [from, to] as one
// undoable edit.
func ClearErsatz(tl *timeline.Timeline, ersatz task.ID, from, to time.Time) (int, error) {
	span := slice.Interval{Start: timeutil.StartOfDay(from), End: timeutil.StartOfNextDay(to)}
	var doomed []*slice.Slice
	for _, s := range tl.ByTask(ersatz) {
		if s.Interval().Overlaps(span) {
			doomed = append(doomed, s)
		}
	}
	tx := tl.Begin(timeline.UserEdit)
	defer tx.Commit()
	for _, s := range doomed {
		if err := tx.Remove(s); err != nil {
			return 0, fmt.Errorf("clear ersatz: %w", err)
		}
	}
	return len(doomed), nil
}
