// Package api exposes the replay engine's REST control surface: start/stop
// a run and poll its status, plus the status-stream upgrade and metrics
// endpoints. Grounded on the teacher's internal/api (Server/Register/
// writeJSON/writeError), generalized from read-only market-data queries to
// a run-control surface.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/quantreplay/replay-engine/internal/coordinator"
	"github.com/quantreplay/replay-engine/internal/metrics"
	"github.com/quantreplay/replay-engine/internal/status"
)

// Server provides the replay engine's HTTP control surface.
type Server struct {
	coord     *coordinator.Coordinator
	statusMgr *status.Manager
}

// NewServer creates a new API server.
func NewServer(coord *coordinator.Coordinator, statusMgr *status.Manager) *Server {
	return &Server{coord: coord, statusMgr: statusMgr}
}

// Register attaches API routes to the given mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /replay/start", s.handleStart)
	mux.HandleFunc("POST /replay/stop", s.handleStop)
	mux.HandleFunc("GET /replay/status", s.handleStatus)
	mux.HandleFunc("GET /replay/stream", status.Handler(s.statusMgr))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /health", s.handleHealth)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
