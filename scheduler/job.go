// Package scheduler implements the recurring email job engine: due-job
// selection, per-job execution with bounded-retry delivery, append-only
// execution records, and recurrence advancement.
package scheduler

import "time"

// Pattern is the recurrence unit used to compute a job's next occurrence.
type Pattern string

// Recurrence patterns for scheduled jobs
const (
	PatternOneTime Pattern = "ONE_TIME"
	PatternDaily   Pattern = "DAILY"
	PatternWeekly  Pattern = "WEEKLY"
	PatternMonthly Pattern = "MONTHLY"
	PatternYearly  Pattern = "YEARLY"
)

// Known reports whether p is a recognized recurrence pattern.
// Unknown patterns are treated as terminal when advancing a schedule.
func (p Pattern) Known() bool {
	switch p {
	case PatternOneTime, PatternDaily, PatternWeekly, PatternMonthly, PatternYearly:
		return true
	}
	return false
}

// Template is an opaque subject/body pair referenced by a job.
// No variable substitution happens in the engine.
type Template struct {
	ID        string
	Name      string
	Subject   string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Job is a persisted definition of what to send, to whom, on what schedule.
// The scheduler holds a read-only snapshot for the duration of one tick;
// the only mutation it ever applies is advancing (or clearing) NextRunTime.
type Job struct {
	ID string

	// Schedule
	StartDate   *time.Time // nil = no lower bound
	EndDate     *time.Time // nil = no upper bound
	NextRunTime *time.Time // nil = retired, never due again
	SendTime    string     // wall clock "HH:MM" pinned when advancing; "" = keep computed clock
	Recurrence  Pattern
	OneTime     bool
	Enabled     bool

	// Payload
	SenderEmail string
	Recipients  string // comma/semicolon list, or a JSON array literal
	TemplateID  string // "" = no template
	Template    *Template

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EligibleAt reports whether the job may execute at the given instant:
// enabled, start date reached, end date not passed. A job surfaced as due
// that fails this check lost a race with a concurrent disable or window
// change and is logged as a failed execution without retry.
func (j *Job) EligibleAt(now time.Time) bool {
	if !j.Enabled {
		return false
	}
	if j.StartDate != nil && now.Before(*j.StartDate) {
		return false
	}
	if j.EndDate != nil && now.After(*j.EndDate) {
		return false
	}
	return true
}
