// Package timeutil holds the minute and day arithmetic shared by the slice
// store and the tracking engine. All helpers keep the location of their
// argument, so day boundaries follow the wall clock of that location.
package timeutil

import "time"

// StartOfMinute drops seconds and sub-second precision.
func StartOfMinute(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}

// StartOfNextMinute returns the start of the minute after t. A value that is
// already on a minute boundary still moves forward one minute.
func StartOfNextMinute(t time.Time) time.Time {
	return StartOfMinute(t.Add(time.Minute))
}

// StartOfDay returns local midnight of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfNextDay returns midnight of the following calendar day.
func StartOfNextDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Minutes returns the whole minutes between from and to, truncated toward zero.
// 5m59s is 5; -5m59s is -5.
func Minutes(from, to time.Time) int {
	return int(to.Sub(from) / time.Minute)
}

// AbsMinutes is Minutes without the sign.
func AbsMinutes(from, to time.Time) int {
	m := Minutes(from, to)
	if m < 0 {
		return -m
	}
	return m
}

// DayKey identifies the calendar day of t. Two instants share a key iff they
// fall on the same day in t's location.
func DayKey(t time.Time) int64 {
	return StartOfDay(t).Unix()
}

// EachDay returns midnight of every calendar day touched by [from, to],
// both ends inclusive.
func EachDay(from, to time.Time) []time.Time {
	var days []time.Time
	for d := StartOfDay(from); !d.After(to); d = StartOfNextDay(d) {
		days = append(days, d)
	}
	return days
}

// ISOWeek returns Monday 00:00 and Sunday 00:00 of the ISO week containing t.
func ISOWeek(t time.Time) (time.Time, time.Time) {
	offset := (int(t.Weekday()) + 6) % 7
	monday := StartOfDay(t).AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 6)
}

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func ISOWeekday(t time.Time) int {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return int(t.Weekday())
}
