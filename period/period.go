// Package period resolves named date periods into inclusive calendar ranges.
//
// Weeks start on Monday. All comparisons are at day granularity: a Range holds
// two calendar dates and a date is in range when start <= date <= end.
package period

import (
	"fmt"
	"strings"
	"time"
)

// Name identifies a named period.
type Name string

// Named periods.
const (
	Today     Name = "today"
	Tomorrow  Name = "tomorrow"
	ThisWeek  Name = "thisWeek"
	NextWeek  Name = "nextWeek"
	ThisMonth Name = "thisMonth"
	ThisYear  Name = "thisYear"
	Custom    Name = "custom"
)

// Names lists the periods Resolve understands.
var Names = []Name{Today, Tomorrow, ThisWeek, NextWeek, ThisMonth, ThisYear}

// Range is an inclusive span of calendar dates. Start and End are midnight UTC.
type Range struct {
	Start time.Time
	End   time.Time
}

// Resolve computes the range for a named period relative to ref.
// The calendar date of ref is taken in ref's own location.
func Resolve(name Name, ref time.Time) (Range, error) {
	day := dateOf(ref)
	switch Name(strings.TrimSpace(string(name))) {
	case Today:
		return Range{Start: day, End: day}, nil
	case Tomorrow:
		d := day.AddDate(0, 0, 1)
		return Range{Start: d, End: d}, nil
	case ThisWeek:
		mon := Monday(day)
		return Range{Start: mon, End: mon.AddDate(0, 0, 6)}, nil
	case NextWeek:
		mon := Monday(day).AddDate(0, 0, 7)
		return Range{Start: mon, End: mon.AddDate(0, 0, 6)}, nil
	case ThisMonth:
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Range{Start: first, End: first.AddDate(0, 1, -1)}, nil
	case ThisYear:
		return Range{
			Start: time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(day.Year(), time.December, 31, 0, 0, 0, 0, time.UTC),
		}, nil
	}
	return Range{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, name)
}

// NewCustom validates a caller supplied ISO date range.
func NewCustom(start, end string) (Range, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Range{}, fmt.Errorf("custom range start: %w", err)
	}
	e, err := ParseDate(end)
	if err != nil {
		return Range{}, fmt.Errorf("custom range end: %w", err)
	}
	if s.After(e) {
		return Range{}, &InvalidRangeError{Start: start, End: end}
	}
	return Range{Start: s, End: e}, nil
}

// ParseDate parses an ISO yyyy-mm-dd calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// Contains reports whether date is a valid calendar date inside the range.
func (r Range) Contains(date string) bool {
	t, err := ParseDate(date)
	if err != nil {
		return false
	}
	return r.ContainsDay(t)
}

// ContainsDay reports whether the calendar date of t lies inside the range.
func (r Range) ContainsDay(t time.Time) bool {
	d := dateOf(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days returns every date of the range in order.
func (r Range) Days() []time.Time {
	var days []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Len returns the number of days in the range.
func (r Range) Len() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// String renders the range as "start ~ end", or a single date for one-day ranges.
func (r Range) String() string {
	if r.Start.Equal(r.End) {
		return r.Start.Format(time.DateOnly)
	}
	return r.Start.Format(time.DateOnly) + " ~ " + r.End.Format(time.DateOnly)
}

// Monday returns the Monday of the week containing t, as a calendar date.
// Sunday belongs to the week that started six days earlier.
func Monday(t time.Time) time.Time {
	d := dateOf(t)
	offset := int(d.Weekday()+6) % 7
	return d.AddDate(0, 0, -offset)
}

// WeekdayDate returns the date of weekday inside the Monday-start week of ref.
func WeekdayDate(ref time.Time, weekday time.Weekday) time.Time {
	return Monday(ref).AddDate(0, 0, int(weekday+6)%7)
}

// WeekNumber returns the week of the year for t, counting the week that
// contains January 1st as week 1 and starting weeks on Sunday.
func WeekNumber(t time.Time) int {
	d := dateOf(t)
	first := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	days := int(d.Sub(first).Hours() / 24)
	return (days + int(first.Weekday()) + 7) / 7
}

// dateOf strips the time of day, keeping the calendar date as seen in t's location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var weekdayNames = map[string]time.Weekday{
	"월": time.Monday, "월요일": time.Monday, "mon": time.Monday, "monday": time.Monday,
	"화": time.Tuesday, "화요일": time.Tuesday, "tue": time.Tuesday, "tuesday": time.Tuesday,
	"수": time.Wednesday, "수요일": time.Wednesday, "wed": time.Wednesday, "wednesday": time.Wednesday,
	"목": time.Thursday, "목요일": time.Thursday, "thu": time.Thursday, "thursday": time.Thursday,
	"금": time.Friday, "금요일": time.Friday, "fri": time.Friday, "friday": time.Friday,
	"토": time.Saturday, "토요일": time.Saturday, "sat": time.Saturday, "saturday": time.Saturday,
	"일": time.Sunday, "일요일": time.Sunday, "sun": time.Sunday, "sunday": time.Sunday,
}

// ParseWeekday accepts Korean or English weekday names, long or short.
func ParseWeekday(s string) (time.Weekday, error) {
	if wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return wd, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWeekday, s)
}
