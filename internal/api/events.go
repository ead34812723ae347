package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/seantiz/forge/internal/model"
)

// Data of the final "done" event.
const (
	reasonComplete  = "stream complete"
	reasonAbandoned = "job abandoned by shutdown"
)

// jobEvent is the data of one SSE event.
type jobEvent struct {
	JobID  int            `json:"job_id"`
	Status string         `json:"status"`
	Data   *model.Outcome `json:"data,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func (s *Server) handleStreamEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobID(w, r)
	if !ok {
		return
	}
	if !s.pool.Issued(id) {
		s.writeJSON(w, http.StatusNotFound, statusResponse{Status: statusNotFound})
		return
	}

	// Subscribe before reading the ledger so no transition falls between
	// the two. A finished job yields a closed channel.
	ch, unsub := s.pool.Broker().Subscribe(id)
	defer unsub()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Disable write timeout for long-lived SSE connections.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("set write deadline for SSE", "error", err)
	}

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	flush := func() {
		if canFlush {
			flusher.Flush()
		}
	}
	flush()

	var last string
	if job, found := s.pool.JobStatus(id); found {
		if err := writeJobEvent(w, job); err != nil {
			return
		}
		flush()
		last = job.Status
	} else if s.pool.Stopped() {
		_ = writeSSEEvent(w, "done", reasonAbandoned)
		flush()
		return
	}

	for {
		select {
		case job, ok := <-ch:
			if !ok {
				_ = writeSSEEvent(w, "done", endReason(s.pool.JobStatus(id)))
				flush()
				return
			}
			if job.Status == last {
				continue
			}
			if err := writeJobEvent(w, job); err != nil {
				return // Write failed (e.g. client gone).
			}
			flush()
			last = job.Status
		case <-r.Context().Done():
			return // Client disconnected.
		}
	}
}

// endReason explains a closed stream: a job without a terminal ledger entry
// was dropped by shutdown before any worker claimed it.
func endReason(job model.Job, found bool) string {
	if found && job.Terminal() {
		return reasonComplete
	}
	return reasonAbandoned
}

// writeJobEvent writes job as an SSE data event.
func writeJobEvent(w http.ResponseWriter, job model.Job) error {
	data, err := json.Marshal(jobEvent{JobID: job.ID, Status: job.Status, Data: job.Result, Error: job.Error})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// writeSSEEvent writes a named SSE event (event: <type>\ndata: <data>\n\n).
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}
