package scheduler

import (
	"time"

	"coin-trading-bot/internal/types"
)

// Reflection windows are half-open [start, end) and always the most recently
// completed period, computed in UTC to match ledger timestamps. Missed
// triggers are not backfilled.

func previousDay(now time.Time) (time.Time, time.Time) {
	end := midnight(now)
	return end.AddDate(0, 0, -1), end
}

// previousWeek is the last full Monday-to-Sunday week.
func previousWeek(now time.Time) (time.Time, time.Time) {
	day := midnight(now)
	sinceMonday := (int(day.Weekday()) + 6) % 7
	end := day.AddDate(0, 0, -sinceMonday)
	return end.AddDate(0, 0, -7), end
}

func previousMonth(now time.Time) (time.Time, time.Time) {
	t := now.UTC()
	end := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return end.AddDate(0, -1, 0), end
}

func midnight(now time.Time) time.Time {
	t := now.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func periodWindow(kind types.PeriodKind, now time.Time) (time.Time, time.Time) {
	switch kind {
	case types.PeriodWeekly:
		return previousWeek(now)
	case types.PeriodMonthly:
		return previousMonth(now)
	default:
		return previousDay(now)
	}
}
