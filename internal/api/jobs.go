package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/forge/internal/model"
	"github.com/seantiz/forge/internal/stats"
)

const maxBodySize = 1 << 20 // 1 MB

// Values of the "status" field in responses.
const (
	statusSuccess  = "success"
	statusNotFound = "not_found"
)

// submitRequest is the JSON body of every POST /api/<kind> route.
type submitRequest struct {
	Question string `json:"question"`
	State    string `json:"state"`
}

type submitResponse struct {
	Status string `json:"status"`
	JobID  int    `json:"job_id"`
}

// resultResponse is the body of GET /api/get_results/{job_id}.
type resultResponse struct {
	Status string         `json:"status"`
	Data   *model.Outcome `json:"data,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type listJobsResponse struct {
	Status string             `json:"status"`
	Jobs   []model.JobSummary `json:"jobs"`
}

type numJobsResponse struct {
	Status        string `json:"status"`
	RemainingJobs int    `json:"remaining_jobs"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleSubmit(kind stats.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		task, err := s.kinds.NewTask(stats.Query{Kind: kind, Question: req.Question, State: req.State}, s.data)
		if err != nil {
			s.logger.Error("build task", "kind", kind, "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to build task")
			return
		}

		id := s.pool.Submit(task)
		submissionsTotal.WithLabelValues(string(kind)).Inc()
		q := task.Query()
		s.logger.Debug("job accepted", "job_id", id, "kind", q.Kind, "question", q.Question, "state", q.State)

		s.writeJSON(w, http.StatusAccepted, submitResponse{Status: statusSuccess, JobID: id})
	}
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobID(w, r)
	if !ok {
		return
	}

	job, found := s.pool.JobStatus(id)
	if !found {
		s.writeJSON(w, http.StatusNotFound, statusResponse{Status: statusNotFound})
		return
	}

	switch job.Status {
	case model.StatusDone:
		s.writeJSON(w, job.Result.StatusCode(), resultResponse{Status: job.Status, Data: job.Result})
	case model.StatusFailed:
		s.writeJSON(w, http.StatusInternalServerError, resultResponse{Status: job.Status, Error: job.Error})
	default:
		s.writeJSON(w, http.StatusOK, resultResponse{Status: job.Status})
	}
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	jobs := s.pool.AllJobStatuses()
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	s.writeJSON(w, http.StatusOK, listJobsResponse{Status: statusSuccess, Jobs: jobs})
}

func (s *Server) handleNumJobs(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, numJobsResponse{Status: statusSuccess, RemainingJobs: s.pool.PendingCount()})
}

// handleGracefulShutdown stops the pool in the background. The HTTP server
// keeps serving status queries.
func (s *Server) handleGracefulShutdown(w http.ResponseWriter, _ *http.Request) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Error("graceful shutdown", "error", err)
		}
	}()
	s.writeJSON(w, http.StatusOK, statusResponse{Status: statusSuccess})
}

type echoResponse struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// handleEcho returns the posted JSON as-is, for connectivity checks.
func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	var data json.RawMessage
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.writeJSON(w, http.StatusOK, echoResponse{Message: "Received data successfully", Data: data})
}

// jobID parses the {job_id} URL parameter, writing a 400 when it is not an
// integer.
func (s *Server) jobID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "job_id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "job_id must be an integer")
		return 0, false
	}
	return id, true
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response in the same shape task
// validation errors use.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, model.NewTaskError(message))
}
