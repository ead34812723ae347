package model

import "time"

// Job status constants. A job id that has been issued but not yet claimed by
// a worker has no ledger entry at all, so there is no pending constant.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// validTransitions maps each status to the set of statuses it may transition
// to. The empty status stands for "no entry yet".
var validTransitions = map[string]map[string]bool{
	"": {
		StatusRunning: true,
	},
	StatusRunning: {
		StatusDone:   true,
		StatusFailed: true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Job is the ledger entry for one submitted unit of work. Entries are values:
// every transition replaces the whole Job, never individual fields.
type Job struct {
	ID         int        `json:"job_id"`
	Status     string     `json:"status"`
	Result     *Outcome   `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Terminal reports whether the job has reached done or failed.
func (j Job) Terminal() bool {
	return j.Status == StatusDone || j.Status == StatusFailed
}

// JobSummary is the per-job row returned when listing all jobs.
type JobSummary struct {
	ID     int    `json:"job_id"`
	Status string `json:"status"`
}
