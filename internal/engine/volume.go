package engine

import (
	"time"

	"fxrate_go/internal/domain"
)

// Two volume models live here; they are not interchangeable:
//   - DailyVolume drives generated history and reacts to weekday and price moves.
//   - LiveVolume stamps freshly recorded rates and patches legacy rows at read
//     time; it reacts to the wall-clock hour only.

const (
	weekendFactor = 0.3
	weekdayFactor = 1.0

	businessHoursFactor = 1.2 // 09:00-17:59
	eveningFactor       = 0.8 // 19:00-22:59
	offHoursFactor      = 0.4
)

// DailyVolume is the generator's day-level volume for one simulated day.
// change is the realized relative rate move of that day.
func DailyVolume(baseline, change float64, day time.Time, src domain.RandomSource) float64 {
	multiplier := 1 + 10*abs(change)
	variation := uniform(src, 0.6, 1.4)
	return baseline * multiplier * variation * dayFactor(day)
}

// LiveVolume is the current-time volume model used for recording and backfill.
func LiveVolume(baseline float64, now time.Time, src domain.RandomSource) float64 {
	variation := uniform(src, 0.7, 1.3)
	return baseline * variation * HourFactor(now.Hour())
}

// HourFactor is the time-of-day activity multiplier.
func HourFactor(hour int) float64 {
	switch {
	case hour >= 9 && hour <= 17:
		return businessHoursFactor
	case hour >= 19 && hour <= 22:
		return eveningFactor
	default:
		return offHoursFactor
	}
}

func dayFactor(day time.Time) float64 {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return weekendFactor
	default:
		return weekdayFactor
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
