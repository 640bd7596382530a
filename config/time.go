package config

import "time"

func timeWeekday(d int) time.Weekday {
	if d < 0 || d > 6 {
		return time.Sunday
	}
	return time.Weekday(d)
}

func timeMonth(m int) time.Month {
	return time.Month(m)
}
