package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/basin-health-service/internal/basin"
	"github.com/couchcryptid/basin-health-service/internal/indicator"
	"github.com/couchcryptid/basin-health-service/internal/weighting"
)

const maxBodyBytes = 1 << 20

type overrideRequest struct {
	Value   *int   `json:"value"`
	Comment string `json:"comment"`
}

type scoreRequest struct {
	Value *int `json:"value"`
}

type weightRequest struct {
	Percent *int `json:"percent"`
}

type assignResponse struct {
	Unmatched []string `json:"unmatched"`
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.model.Snapshot())
}

func (s *Server) handleIndicator(w http.ResponseWriter, r *http.Request) {
	node, err := s.model.Node(r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, node)
}

func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req overrideRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Value == nil {
		s.writeError(w, badRequest("value is required"))
		return
	}
	if err := s.model.SetOverride(name, *req.Value, req.Comment); err != nil {
		s.writeError(w, err)
		return
	}
	s.edited(r.Context(), "override")
	s.writeNode(w, name)
}

func (s *Server) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.model.ClearOverride(name); err != nil {
		s.writeError(w, err)
		return
	}
	s.edited(r.Context(), "clear_override")
	s.writeNode(w, name)
}

func (s *Server) handleManualScore(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req scoreRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Value == nil {
		s.writeError(w, badRequest("value is required"))
		return
	}
	if err := s.model.SetManualScore(name, *req.Value); err != nil {
		s.writeError(w, err)
		return
	}
	s.edited(r.Context(), "manual_score")
	s.writeNode(w, name)
}

func (s *Server) handleEditWeight(w http.ResponseWriter, r *http.Request) {
	var req weightRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Percent == nil {
		s.writeError(w, badRequest("percent is required"))
		return
	}
	shares, err := s.model.EditWeight(r.PathValue("parent"), r.PathValue("child"), *req.Percent)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.edited(r.Context(), "weight")
	sharedobs.WriteJSON(w, http.StatusOK, shares)
}

func (s *Server) handleImportGovernance(w http.ResponseWriter, r *http.Request) {
	var tranches [][]indicator.Question
	if err := decode(w, r, &tranches); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.model.ImportGovernance(tranches); err != nil {
		sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	s.edited(r.Context(), "import_governance")
	s.writeNode(w, basin.GovernanceStakeholder)
}

func (s *Server) handleAssignGovernance(w http.ResponseWriter, r *http.Request) {
	var groups map[string][]indicator.Question
	if err := decode(w, r, &groups); err != nil {
		s.writeError(w, err)
		return
	}
	unmatched := s.model.AssignGovernance(groups)
	s.edited(r.Context(), "assign_governance")
	sharedobs.WriteJSON(w, http.StatusOK, assignResponse{Unmatched: append([]string{}, unmatched...)})
}

func (s *Server) writeNode(w http.ResponseWriter, name string) {
	node, err := s.model.Node(name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, node)
}

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("bad request")

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", errBadRequest, msg)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(err.Error())
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, basin.ErrUnknownIndicator):
		status = http.StatusNotFound
	case errors.Is(err, indicator.ErrScoreOutOfRange), errors.Is(err, weighting.ErrPercentOutOfRange):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
