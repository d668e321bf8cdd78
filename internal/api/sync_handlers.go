package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	syncsvc "github.com/rx3lixir/ci-analytics/internal/sync"
)

type syncRequest struct {
	Type string `json:"type"`
}

type syncResponse struct {
	Message string `json:"message"`
}

// handleSync accepts POST /sync/{kind} with a body selecting partial or full
// mode. It answers 201 when the run was accepted and 400 when an identical
// run is already in flight.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	kind, err := syncsvc.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	mode, err := syncsvc.ParseMode(req.Type)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := s.syncer.Trigger(kind, mode); err != nil {
		if errors.Is(err, syncsvc.ErrBusy) {
			badRequest(w, "sync already running")
			return
		}
		badRequest(w, err.Error())
		return
	}

	s.logger.Info("sync accepted", "kind", kind, "mode", mode)
	writeJSON(w, http.StatusCreated, syncResponse{Message: "sync accepted"})
}
