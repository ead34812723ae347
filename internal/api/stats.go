package api

import (
	"net/http"
)

// statsResponse is the JSON response for GET /api/stats.
type statsResponse struct {
	RunID    string         `json:"run_id"`
	Workers  int            `json:"workers"`
	Stopped  bool           `json:"stopped"`
	Pending  int            `json:"pending"`
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	Rows     int            `json:"dataset_rows"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, _ *http.Request) {
	resp := statsResponse{
		RunID:    s.pool.RunID(),
		Workers:  s.pool.Workers(),
		Stopped:  s.pool.Stopped(),
		Pending:  s.pool.PendingCount(),
		Total:    s.pool.JobCount(),
		ByStatus: s.pool.StatusCounts(),
	}
	if s.data != nil {
		resp.Rows = s.data.Len()
	}
	s.writeJSON(w, http.StatusOK, resp)
}
