package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/repository"
)

const defaultHistoryLimit = 20

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		errorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	engReq, err := req.toEngineRequest()
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.engine.Analyze(r.Context(), engReq)
	if err != nil {
		s.analysisError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, toResponse(out))
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		errorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	reqs, err := req.toEngineRequests()
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	outs, err := s.engine.AnalyzeBatch(r.Context(), reqs)
	if err != nil {
		s.analysisError(w, err)
		return
	}

	resp := BatchResponse{Results: make([]AnalyzeResponse, len(outs))}
	for i, out := range outs {
		resp.Results[i] = toResponse(out)
	}
	jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.engine.Policy())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultHistoryLimit)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	h, err := s.engine.History()
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, HistoryResponse{
		Entries: h.Recent(limit),
		Total:   len(h.Entries),
	})
}

func (s *Server) handleApprovals(w http.ResponseWriter, r *http.Request) {
	projectID, err := queryInt(r, "project_id", 0)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", defaultHistoryLimit)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	pending, err := s.engine.PendingApprovals(r.Context(), int64(projectID), limit)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, ApprovalsResponse{Pending: pending})
}

// analysisError maps engine failures onto status codes.
func (s *Server) analysisError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrUnknownProject):
		errorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, impact.ErrUnknownEntityType):
		// bad data in the repository, not a bad request
		s.logger.Error("dependency data has unknown entity type", "error", err)
		errorResponse(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("impact analysis failed", "error", err)
		errorResponse(w, http.StatusInternalServerError, err.Error())
	}
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New("invalid " + name + ": " + raw)
	}
	return v, nil
}
