package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/seantiz/forge/internal/model"
	"github.com/seantiz/forge/internal/queue"
)

// worker claims items from the pool's queue one at a time.
type worker struct {
	id     int
	pool   *Pool
	logger *slog.Logger
}

// run loops until the pool is stopped. The stop signal is checked before
// every dequeue and also interrupts the wait.
func (w *worker) run() {
	p := w.pool
	w.logger.Debug("worker started")
	defer w.logger.Debug("worker stopped")

	for {
		if p.ctx.Err() != nil {
			return
		}

		it, err := p.queue.Pop(p.ctx, p.pollInterval)
		if errors.Is(err, queue.ErrEmpty) {
			continue
		}
		if err != nil {
			return
		}

		queueDepth.Set(float64(p.queue.Len()))
		w.process(it)
	}
}

// process runs one task through running to done or failed.
func (w *worker) process(it item) {
	p := w.pool
	logger := w.logger.With("job_id", it.id, "kind", taskKind(it.task))

	started := time.Now().UTC()
	p.record(model.Job{ID: it.id, Status: model.StatusRunning, StartedAt: started}, logger)

	workersBusy.Inc()
	out, err := execute(it.task)
	workersBusy.Dec()

	finished := time.Now().UTC()
	job := model.Job{ID: it.id, StartedAt: started, FinishedAt: &finished}
	if err != nil {
		job.Status = model.StatusFailed
		job.Error = err.Error()
		logger.Error("job failed", "error", err)
	} else {
		job.Status = model.StatusDone
		job.Result = &out
		logger.Debug("job done", "status_code", out.StatusCode())
	}

	p.record(job, logger)
	p.broker.Finish(it.id)

	jobsTotal.WithLabelValues(job.Status).Inc()
	jobDuration.Observe(finished.Sub(started).Seconds())

	if job.Status == model.StatusDone {
		p.persist(job, logger)
	}
}

// execute calls the task, turning a panic into an error.
func execute(t Task) (out model.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
	}()
	return t.Execute()
}
