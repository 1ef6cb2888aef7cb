package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// requireCaseStore rejects case-history requests when the server runs
// without a database.
func (s *Server) requireCaseStore(w http.ResponseWriter) bool {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "case storage not configured")
		return false
	}
	return true
}

// handleListCases returns persisted cases, newest first.
func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	if !s.requireCaseStore(w) {
		return
	}

	limit, offset := parsePagination(r)

	cases, err := s.db.ListCases(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list cases")
		return
	}

	total, err := s.db.CountCases(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count cases")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cases":  cases,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// handleGetCase returns a single persisted case.
func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	if !s.requireCaseStore(w) {
		return
	}

	caseID, err := uuid.Parse(r.PathValue("caseID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid case ID")
		return
	}

	c, err := s.db.GetCase(r.Context(), caseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "case not found")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

type similarCasesRequest struct {
	Symptoms []string `json:"symptoms"`
	TopK     int      `json:"top_k"`
}

// handleSimilarCases finds persisted cases with similar symptom profiles.
func (s *Server) handleSimilarCases(w http.ResponseWriter, r *http.Request) {
	if !s.requireCaseStore(w) {
		return
	}

	var req similarCasesRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Symptoms) == 0 {
		writeError(w, http.StatusBadRequest, "no symptoms provided")
		return
	}

	topK := req.TopK
	if topK <= 0 || topK > 50 {
		topK = 10
	}

	similar, err := s.db.SimilarCases(r.Context(), req.Symptoms, topK)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to search cases")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symptoms": req.Symptoms,
		"cases":    similar,
	})
}

// parsePagination extracts limit and offset from query parameters with defaults.
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}
