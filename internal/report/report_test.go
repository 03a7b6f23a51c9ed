package report

import (
	"fmt"
	"testing"
	"time"

	"github.com/imkarma/zedd/internal/slice"
	"github.com/imkarma/zedd/internal/task"
	"github.com/imkarma/zedd/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var week = Calendar{Workmask: []float64{8, 8, 8, 8, 6, 0, 0}, StartHour: 8}

func at(s string) time.Time {
	t, err := time.ParseInLocation(slice.Layout, s, time.Local)
	if err != nil {
		panic(err)
	}
	return t
}

func add(t *testing.T, tl *timeline.Timeline, start, end string, id task.ID) {
	t.Helper()
	s, err := slice.New(at(start), at(end), id)
	require.NoError(t, err)
	_, err = tl.Add(timeline.UserEdit, s)
	require.NoError(t, err)
}

func TestCalendar(t *testing.T) {
	// 2020-01-06 is a Monday.
	assert.Equal(t, 8.0, week.DayTarget(at("2020-01-06 12:00")))
	assert.Equal(t, 6.0, week.DayTarget(at("2020-01-10 12:00")))
	assert.Equal(t, 0.0, week.DayTarget(at("2020-01-12 12:00")))
	assert.Equal(t, 38.0, week.TargetHours(at("2020-01-06 00:00"), at("2020-01-12 00:00")))

	iv, ok := week.FullDay(at("2020-01-10 15:00"))
	require.True(t, ok)
	assert.Equal(t, "2020-01-10 08:00 - 2020-01-10 14:00", iv.String())
	_, ok = week.FullDay(at("2020-01-11 15:00"))
	assert.False(t, ok)
}

func TestWorkedHours(t *testing.T) {
	tl := timeline.New()
	add(t, tl, "2020-01-06 08:00", "2020-01-06 10:00", 2)
	add(t, tl, "2020-01-06 10:00", "2020-01-06 10:30", 3)
	add(t, tl, "2020-01-07 08:00", "2020-01-07 09:00", 2)

	assert.Equal(t, 2.5, DayWorkedHours(tl, at("2020-01-06 00:00")))
	assert.InDelta(t, 2.5/8, DayProgress(tl, week, at("2020-01-06 00:00")), 1e-9)
	assert.Equal(t, 1.0, DayProgress(tl, week, at("2020-01-11 00:00")))
	assert.Equal(t, 3.0, TaskHours(tl, 2))

	assert.Equal(t, []TaskTotal{{Task: 2, Hours: 3}, {Task: 3, Hours: 0.5}},
		TaskTotals(tl, at("2020-01-06 00:00"), at("2020-01-07 00:00")))
	assert.Equal(t, []TaskTotal{{Task: 2, Hours: 2}, {Task: 3, Hours: 0.5}},
		TaskTotals(tl, at("2020-01-06 00:00"), at("2020-01-06 00:00")))
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "0:00", FormatHours(0, FormatHHMM))
	assert.Equal(t, "7:30", FormatHours(7.5, FormatHHMM))
	assert.Equal(t, "12:05", FormatHours(12+5.0/60, ""))
	assert.Equal(t, "-", FormatHours(0, FormatBT))
	assert.Equal(t, "1,25 BT", FormatHours(10, FormatBT))
	assert.Equal(t, "-0:30", FormatHours(-0.5, FormatHHMM))
}

func TestFormatHours_WholeMinutes(t *testing.T) {
	for m := 0; m <= 24*60; m++ {
		h := float64(m) / 60
		assert.Equal(t, fmt.Sprintf("%d:%02d", m/60, m%60), FormatHours(h, FormatHHMM), "%d minutes", m)
	}
}

func TestFillAndClearErsatz(t *testing.T) {
	tl := timeline.New()
	const ersatz, work task.ID = 5, 2
	add(t, tl, "2020-01-07 09:00", "2020-01-07 10:00", work)

	n, err := FillErsatz(tl, week, ersatz, at("2020-01-06 00:00"), at("2020-01-12 00:00"))
	require.NoError(t, err)
	assert.Equal(t, 4, n, "Tuesday has work, weekend has no target")
	assert.Len(t, tl.ByTask(ersatz), 4)

	n, err = FillErsatz(tl, week, ersatz, at("2020-01-06 00:00"), at("2020-01-12 00:00"))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = ClearErsatz(tl, ersatz, at("2020-01-08 00:00"), at("2020-01-09 00:00"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, tl.ByTask(ersatz), 2)
	assert.Len(t, tl.ByTask(work), 1)

	ok, err := tl.Journal().Undo()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, tl.ByTask(ersatz), 4)
}
