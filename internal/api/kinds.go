package api

import (
	"net/http"

	"github.com/seantiz/forge/internal/stats"
)

type listKindsResponse struct {
	Status string           `json:"status"`
	Kinds  []stats.KindInfo `json:"kinds"`
}

func (s *Server) handleListKinds(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, listKindsResponse{Status: statusSuccess, Kinds: s.kinds.List()})
}
