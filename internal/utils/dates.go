package utils

import (
	"fmt"
	"time"

	"locar-backend/internal/domain"
)

const (
	DateLayout  = "2006-01-02"
	daysPerWeek = 7
)

// ParseDate parses a yyyy-mm-dd string into a date at midnight in loc.
func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, dateStr, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, expected yyyy-mm-dd: %q", dateStr)
	}
	return t, nil
}

// DateOf truncates t to midnight of its calendar day, keeping its location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays moves a date by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysInMonth returns the number of days in a given month
func DaysInMonth(year, month int) int {
	if month == 2 {
		if (year%4 == 0 && year%100 != 0) || (year%400 == 0) {
			return 29
		}
		return 28
	}

	// April, June, September, November
	if month == 4 || month == 6 || month == 9 || month == 11 {
		return 30
	}

	return 31
}

// MonthWindow returns the calendar month containing ref, first day through
// last day inclusive.
func MonthWindow(ref time.Time) domain.DateWindow {
	y, m, _ := ref.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, ref.Location())
	last := time.Date(y, m, DaysInMonth(y, int(m)), 0, 0, 0, 0, ref.Location())
	return domain.DateWindow{Start: first, End: last}
}

// WeekdayIndex numbers weekdays Monday=0 through Sunday=6.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// EffectiveRange is the span a rental occupies for reporting. Closed rentals
// end on their end date; open ones are estimated at 7*weeks-1 days after the
// start, never earlier than the start itself.
func EffectiveRange(r *domain.Rental) (time.Time, time.Time) {
	start := DateOf(r.StartAt)
	if r.IsClosed() && r.EndAt != nil {
		return start, DateOf(*r.EndAt)
	}
	days := int(r.Weeks)*daysPerWeek - 1
	if days < 0 {
		days = 0
	}
	return start, AddDays(start, days)
}

// civilDay orders calendar dates regardless of the location they carry.
func civilDay(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// Overlaps reports whether [start, end] intersects the window. Each value is
// compared by its calendar date in its own location.
func Overlaps(w domain.DateWindow, start, end time.Time) bool {
	return civilDay(end) >= civilDay(w.Start) && civilDay(start) <= civilDay(w.End)
}

// InWindow reports whether the date of t lies inside the window.
func InWindow(w domain.DateWindow, t time.Time) bool {
	return Overlaps(w, t, t)
}

// DefaultWeekdayNames are the pt-BR names indexed by WeekdayIndex.
var DefaultWeekdayNames = [7]string{
	"Segunda-feira",
	"Terça-feira",
	"Quarta-feira",
	"Quinta-feira",
	"Sexta-feira",
	"Sábado",
	"Domingo",
}
