package reporting

import (
	"strconv"
	"time"
)

// Window is one of the four reporting ranges relative to a reference date.
type Window string

const (
	WindowWeek     Window = "week"
	WindowMonth    Window = "month"
	WindowYear     Window = "year"
	WindowLastYear Window = "last_year"
)

// Windows lists the ranges in display order.
var Windows = []Window{WindowWeek, WindowMonth, WindowYear, WindowLastYear}

var weekdayLabels = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

var monthLabels = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// contains reports whether t falls inside the window relative to ref. Weeks
// are ISO weeks with Monday as the first day.
func (w Window) contains(t, ref time.Time) bool {
	switch w {
	case WindowWeek:
		ty, tw := t.ISOWeek()
		ry, rw := ref.ISOWeek()
		return ty == ry && tw == rw
	case WindowMonth:
		return t.Year() == ref.Year() && t.Month() == ref.Month()
	case WindowYear:
		return t.Year() == ref.Year()
	case WindowLastYear:
		return t.Year() == ref.Year()-1
	}
	return false
}

// slots returns the number of chart slots for the window: 7 weekdays, one per
// day of the reference month, or 12 months.
func (w Window) slots(ref time.Time) int {
	switch w {
	case WindowWeek:
		return 7
	case WindowMonth:
		return daysInMonth(ref)
	default:
		return 12
	}
}

// slotIndex locates t inside the window's chart.
func (w Window) slotIndex(t time.Time) int {
	switch w {
	case WindowWeek:
		// Monday is day 0.
		return (int(t.Weekday()) + 6) % 7
	case WindowMonth:
		return t.Day() - 1
	default:
		return int(t.Month()) - 1
	}
}

// slotLabels produces the chart labels for the window.
func (w Window) slotLabels(ref time.Time) []string {
	switch w {
	case WindowWeek:
		return weekdayLabels
	case WindowMonth:
		n := daysInMonth(ref)
		labels := make([]string, n)
		for i := 0; i < n; i++ {
			labels[i] = strconv.Itoa(i + 1)
		}
		return labels
	default:
		return monthLabels
	}
}

// scaleMax computes the gauge ceiling: the period value padded by a display
// factor, with a per-window floor so a gauge never renders against a zero max.
func (w Window) scaleMax(value float64) float64 {
	if value <= 0 {
		switch w {
		case WindowWeek:
			return 1000
		case WindowMonth:
			return 5000
		default:
			return 10000
		}
	}
	if w == WindowWeek {
		return value * 1.5
	}
	return value * 1.2
}

func daysInMonth(ref time.Time) int {
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	return first.AddDate(0, 1, -1).Day()
}
