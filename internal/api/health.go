package api

import "net/http"

type healthResponse struct {
	Status string `json:"status"`
	Pool   string `json:"pool"`
}

// handleHealthz reports liveness. The HTTP server stays healthy after the
// pool stops, since results remain readable.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Pool: "running"}
	if s.pool.Stopped() {
		resp.Pool = "stopped"
	}
	s.writeJSON(w, http.StatusOK, resp)
}
