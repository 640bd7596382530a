package model

import (
	"fmt"
	"time"
)

// WorkWindow is a daily interval of legal working hours, [StartHour, EndHour).
type WorkWindow struct {
	StartHour int
	EndHour   int
}

// Calendar defines the legal working-time windows of the project. Hours are
// whole clock hours; RestDay is fully non-working.
type Calendar struct {
	Windows []WorkWindow
	RestDay time.Weekday
}

// DefaultCalendar returns the standard site calendar: 08:00-12:00 and
// 13:00-17:00, Sundays off.
func DefaultCalendar() Calendar {
	return Calendar{
		Windows: []WorkWindow{{8, 12}, {13, 17}},
		RestDay: time.Sunday,
	}
}

// Validate checks window sanity.
func (c Calendar) Validate() error {
	if len(c.Windows) == 0 {
		return fmt.Errorf("calendar has no working windows")
	}
	for _, w := range c.Windows {
		if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
			return fmt.Errorf("invalid working window %d-%d", w.StartHour, w.EndHour)
		}
	}
	return nil
}

// IsWorkingHour reports whether the hour containing t is a legal working hour.
func (c Calendar) IsWorkingHour(t time.Time) bool {
	if t.Weekday() == c.RestDay {
		return false
	}
	h := t.Hour()
	for _, w := range c.Windows {
		if h >= w.StartHour && h < w.EndHour {
			return true
		}
	}
	return false
}

// NextWorkingHour returns t truncated to the hour, advanced to the first
// legal working hour at or after it.
func (c Calendar) NextWorkingHour(t time.Time) time.Time {
	cur := t.Truncate(time.Hour)
	for !c.IsWorkingHour(cur) {
		cur = cur.Add(time.Hour)
	}
	return cur
}

// AddWorkHours advances start by the given number of working hours, skipping
// rest days and off-window hours. The result is the end of the last counted
// hour.
func (c Calendar) AddWorkHours(start time.Time, hours int) time.Time {
	if hours <= 0 {
		return start
	}
	cur := c.NextWorkingHour(start)
	added := 0
	for added < hours {
		if c.IsWorkingHour(cur) {
			added++
		}
		cur = cur.Add(time.Hour)
	}
	return cur
}

// CountWorkHours returns the number of working hours in [from, to).
func (c Calendar) CountWorkHours(from, to time.Time) int {
	n := 0
	for cur := from.Truncate(time.Hour); cur.Before(to); cur = cur.Add(time.Hour) {
		if c.IsWorkingHour(cur) {
			n++
		}
	}
	return n
}
