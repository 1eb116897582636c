package planner

import "time"

// SnapToMonday moves a weekend date forward to the next Monday and any other
// date back to the Monday of its week.
func SnapToMonday(t time.Time) time.Time {
	day := truncateDay(t)
	switch day.Weekday() {
	case time.Saturday:
		return day.AddDate(0, 0, 2)
	case time.Sunday:
		return day.AddDate(0, 0, 1)
	default:
		return day.AddDate(0, 0, -int(day.Weekday()-time.Monday))
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
