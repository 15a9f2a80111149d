package scheduler

import "time"

// NextRun computes the next eligible run time for a job after now.
// Pure and deterministic: no clock reads, no side effects.
//
// Returns nil when the job has no further runs: one-time jobs (regardless
// of how the attempt that just ran ended), jobs whose end date has passed
// or would be passed by the next occurrence, and unrecognized patterns
// (callers log the warning for those).
//
// The next occurrence is computed from now, not from the job's own
// NextRunTime. A job that misses ticks (process down, long tick) therefore
// drifts forward to its next natural occurrence instead of replaying
// missed ones; see DESIGN.md for the trade-off.
func NextRun(job *Job, now time.Time) *time.Time {
	if job.OneTime || job.Recurrence == PatternOneTime {
		return nil
	}
	if job.EndDate != nil && now.After(*job.EndDate) {
		return nil
	}

	var next time.Time
	switch job.Recurrence {
	case PatternDaily:
		next = now.AddDate(0, 0, 1)
	case PatternWeekly:
		next = now.AddDate(0, 0, 7)
	case PatternMonthly:
		next = addMonthsClamped(now, 1)
	case PatternYearly:
		next = addMonthsClamped(now, 12)
	default:
		return nil
	}

	// Date advances, clock time is pinned to the configured send time.
	if job.SendTime != "" {
		if clock, err := time.Parse("15:04", job.SendTime); err == nil {
			next = time.Date(next.Year(), next.Month(), next.Day(),
				clock.Hour(), clock.Minute(), 0, 0, next.Location())
		}
	}

	if job.EndDate != nil && next.After(*job.EndDate) {
		return nil
	}
	return &next
}

// addMonthsClamped adds calendar months, clamping to the last day of the
// target month instead of letting the date normalize forward
// (Jan 31 + 1 month = Feb 28, not Mar 3).
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	shifted := first.AddDate(0, months, 0)

	lastDay := daysIn(shifted.Year(), shifted.Month())
	if day > lastDay {
		day = lastDay
	}
	return time.Date(shifted.Year(), shifted.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
