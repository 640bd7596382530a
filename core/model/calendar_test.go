package model

import (
	"testing"
	"time"
)

// Monday 2025-03-03 08:00 UTC, start of a working day.
var monday8 = time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)

func TestCalendarIsWorkingHour(t *testing.T) {
	cal := DefaultCalendar()
	cases := []struct {
		at   time.Time
		want bool
	}{
		{monday8, true},
		{monday8.Add(3 * time.Hour), true},                             // 11:00
		{monday8.Add(4 * time.Hour), false},                            // 12:00 lunch
		{monday8.Add(5 * time.Hour), true},                             // 13:00
		{monday8.Add(9 * time.Hour), false},                            // 17:00
		{time.Date(2025, time.March, 2, 10, 0, 0, 0, time.UTC), false}, // Sunday
	}
	for _, c := range cases {
		if got := cal.IsWorkingHour(c.at); got != c.want {
			t.Fatalf("IsWorkingHour(%s) = %v, want %v", c.at, got, c.want)
		}
	}
}

func TestCalendarAddWorkHours(t *testing.T) {
	cal := DefaultCalendar()

	// 4 hours from Monday 08:00 fill the morning window exactly.
	if got := cal.AddWorkHours(monday8, 4); !got.Equal(monday8.Add(4 * time.Hour)) {
		t.Fatalf("morning block ends at %s", got)
	}

	// 5 hours skip the lunch break: end is 14:00.
	if got, want := cal.AddWorkHours(monday8, 5), monday8.Add(6*time.Hour); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}

	// A full Saturday rolls over Sunday into Monday morning. Saturday
	// 2025-03-08 08:00 plus 9 hours is Monday 09:00.
	sat := time.Date(2025, time.March, 8, 8, 0, 0, 0, time.UTC)
	want := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	if got := cal.AddWorkHours(sat, 9); !got.Equal(want) {
		t.Fatalf("weekend rollover: got %s, want %s", got, want)
	}
}

func TestCalendarCountWorkHoursRoundTrip(t *testing.T) {
	cal := DefaultCalendar()
	for _, h := range []int{1, 4, 8, 13, 40} {
		end := cal.AddWorkHours(monday8, h)
		if got := cal.CountWorkHours(monday8, end); got != h {
			t.Fatalf("CountWorkHours after AddWorkHours(%d) = %d", h, got)
		}
	}
}

func TestCalendarNextWorkingHour(t *testing.T) {
	cal := DefaultCalendar()
	// Friday 18:30 advances to Saturday 08:00 (Saturday works, Sunday rests).
	fri := time.Date(2025, time.March, 7, 18, 30, 0, 0, time.UTC)
	want := time.Date(2025, time.March, 8, 8, 0, 0, 0, time.UTC)
	if got := cal.NextWorkingHour(fri); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}
