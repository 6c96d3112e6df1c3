package api

import (
	"encoding/json"
	"net/http"

	"github.com/quantreplay/replay-engine/internal/coordinator"
	"github.com/quantreplay/replay-engine/internal/quotation"
)

type startResponse struct {
	RunID  string            `json:"runId"`
	Status coordinator.Phase `json:"status"`
}

// handleStart validates and launches a new replay run from a ReplayParams
// JSON body.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var params quotation.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	runID, err := s.coord.Start(params)
	if err != nil {
		switch err.(type) {
		case *coordinator.ErrAlreadyRunning:
			writeError(w, http.StatusConflict, err.Error())
		case *coordinator.ValidationError:
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, startResponse{RunID: runID, Status: coordinator.Preparing})
}

type stopResponse struct {
	Status coordinator.Phase `json:"status"`
}

// handleStop requests a cooperative shutdown of the active run.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.Stop(); err != nil {
		if _, ok := err.(*coordinator.ErrNotRunning); ok {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stopResponse{Status: coordinator.Stopping})
}

type statusResponse struct {
	RunID              string            `json:"runId,omitempty"`
	Phase              coordinator.Phase `json:"phase"`
	CurrentVirtualTime string            `json:"currentVirtualTime,omitempty"`
	EmittedCount       int64             `json:"emittedCount"`
	DroppedCount       int64             `json:"droppedCount"`
	ErrorCause         string            `json:"errorCause,omitempty"`
}

// handleStatus reports the current replay state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.coord.Status()
	resp := statusResponse{
		RunID:        st.RunID,
		Phase:        st.Phase,
		EmittedCount: st.EmittedCount,
		DroppedCount: st.DroppedCount,
		ErrorCause:   st.ErrorCause,
	}
	if !st.CurrentVirtualTime.IsZero() {
		resp.CurrentVirtualTime = st.CurrentVirtualTime.Format(quotation.TradeTimeLayout)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHealth is a liveness probe independent of any active run.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
