// Package ledger tracks the lifecycle state of every claimed job.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/seantiz/forge/internal/model"
)

// ErrInvalidTransition is returned by Put when the new status does not
// follow from the stored one.
var ErrInvalidTransition = errors.New("invalid status transition")

// Ledger maps job ids to job state. Entries are stored by value and replaced
// whole, so readers never observe a partially written job.
type Ledger struct {
	mu   sync.RWMutex
	jobs map[int]model.Job
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{jobs: make(map[int]model.Job)}
}

// Put stores job, replacing any previous entry for its id.
func (l *Ledger) Put(job model.Job) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.jobs[job.ID].Status
	if !model.ValidTransition(prev, job.Status) {
		return fmt.Errorf("%w: job %d %q -> %q", ErrInvalidTransition, job.ID, prev, job.Status)
	}
	l.jobs[job.ID] = job
	return nil
}

// Get returns the entry for id. ok is false for ids that no worker has
// claimed yet, and for ids that were never issued.
func (l *Ledger) Get(id int) (job model.Job, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	job, ok = l.jobs[id]
	return job, ok
}

// Snapshot lists every entry in map order.
func (l *Ledger) Snapshot() []model.JobSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.JobSummary, 0, len(l.jobs))
	for id, j := range l.jobs {
		out = append(out, model.JobSummary{ID: id, Status: j.Status})
	}
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.jobs)
}

// Counts returns the number of entries per status.
func (l *Ledger) Counts() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counts := make(map[string]int)
	for _, j := range l.jobs {
		counts[j.Status]++
	}
	return counts
}
