package engine

import (
	"time"

	"github.com/aetherdial/dial-engine/internal/model"
)

// IsOpen reports whether the window allows dispatch at the given instant:
// the weekday must be listed and the time of day must fall in
// [StartMinute, EndMinute).
func IsOpen(now time.Time, window model.ScheduleWindow) bool {
	if !window.AllowsWeekday(now.Weekday()) {
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	return minute >= window.StartMinute && minute < window.EndMinute
}

// NextOpen returns the nearest instant at or after now at which the window is
// open. If the window is open right now, now is returned unchanged. The scan
// is bounded to a week since the weekday pattern repeats; a window with no
// weekdays yields the zero time.
func NextOpen(now time.Time, window model.ScheduleWindow) time.Time {
	if len(window.Weekdays) == 0 {
		return time.Time{}
	}
	if IsOpen(now, window) {
		return now
	}

	// Today, before the window opens.
	minute := now.Hour()*60 + now.Minute()
	if window.AllowsWeekday(now.Weekday()) && minute < window.StartMinute {
		return atMinute(now, window.StartMinute)
	}

	day := now
	for i := 0; i < 7; i++ {
		day = day.AddDate(0, 0, 1)
		if window.AllowsWeekday(day.Weekday()) {
			return atMinute(day, window.StartMinute)
		}
	}
	return time.Time{}
}

func atMinute(day time.Time, minuteOfDay int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minuteOfDay/60, minuteOfDay%60, 0, 0, day.Location())
}
