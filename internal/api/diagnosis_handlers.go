package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diagnomed/ddx/internal/evidence"
	"github.com/diagnomed/ddx/internal/session"
	"github.com/diagnomed/ddx/pkg/models"
)

type startDiagnosisRequest struct {
	Symptoms        []string           `json:"symptoms"`
	Description     string             `json:"description"`
	Region          string             `json:"region"`
	Age             int                `json:"age"`
	Sex             string             `json:"sex"`
	Month           int                `json:"month"`
	FamilyHistory   []string           `json:"family_history"`
	GeneticVariants []string           `json:"genetic_variants"`
	CNNPredictions  map[string]float64 `json:"cnn_predictions"`
	ImagePath       string             `json:"image_path"`
}

// handleStartDiagnosis opens a new diagnostic session.
func (s *Server) handleStartDiagnosis(w http.ResponseWriter, r *http.Request) {
	var req startDiagnosisRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	symptoms := req.Symptoms
	if len(symptoms) == 0 && req.Description != "" {
		symptoms = s.matcher.ExtractSymptoms(req.Description)
	}
	if len(symptoms) == 0 {
		writeError(w, http.StatusBadRequest, "no symptoms provided")
		return
	}

	predictions := req.CNNPredictions
	if len(predictions) == 0 && req.ImagePath != "" && s.imaging != nil {
		pred, err := s.imaging.Predict(r.Context(), req.ImagePath)
		if err != nil {
			writeError(w, http.StatusBadGateway, "imaging service unavailable")
			return
		}
		predictions = pred.Predictions
	}

	sess := s.engine.Start(session.StartParams{
		Symptoms:        symptoms,
		Region:          req.Region,
		Age:             req.Age,
		Sex:             req.Sex,
		Month:           req.Month,
		FamilyHistory:   req.FamilyHistory,
		GeneticVariants: req.GeneticVariants,
		CNNPredictions:  predictions,
	})

	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

// handleSessionStatus returns the current state of a session.
func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.Status(r.PathValue("sessionID"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

type testResultRequest struct {
	TestID string `json:"test_id"`
	Result string `json:"result"`
}

// handleSubmitTestResult records a test outcome and updates the differential.
func (s *Server) handleSubmitTestResult(w http.ResponseWriter, r *http.Request) {
	var req testResultRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TestID == "" || req.Result == "" {
		writeError(w, http.StatusBadRequest, "test_id and result are required")
		return
	}

	sess, err := s.engine.SubmitTestResult(r.PathValue("sessionID"), req.TestID, req.Result)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	resp := sessionResponse(sess)
	resp["test_submitted"] = sess.TestResults[req.TestID].TestName
	resp["result"] = sess.TestResults[req.TestID].Result
	writeJSON(w, http.StatusOK, resp)
}

// handleDiagnosisResult computes the final report. Contraindications come
// from a comma-separated query parameter.
func (s *Server) handleDiagnosisResult(w http.ResponseWriter, r *http.Request) {
	contraindications := splitCommaParam(r.URL.Query().Get("contraindications"))

	result, err := s.engine.Result(r.Context(), r.PathValue("sessionID"), contraindications)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type candidatesRequest struct {
	Symptoms []string `json:"symptoms"`
	Region   string   `json:"region"`
	Month    int      `json:"month"`
}

type candidatePreview struct {
	models.Candidate
	PriorAdjustedProb float64 `json:"prior_adjusted_prob"`
}

// handleCandidates previews the symptom-matched differential with
// epidemiological priors applied, without opening a session.
func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	var req candidatesRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Symptoms) == 0 {
		writeError(w, http.StatusBadRequest, "no symptoms provided")
		return
	}

	region := req.Region
	if region == "" {
		region = "Global"
	}

	candidates := s.matcher.GetCandidates(req.Symptoms, 0)

	var weights map[string]float64
	if s.epidemiology != nil {
		weights, _ = s.epidemiology.GetPriors(region, req.Month)
	}

	previews := make([]candidatePreview, 0, len(candidates))
	for _, c := range candidates {
		adjusted := c.BaseProbability
		if w, ok := weights[c.DiseaseID]; ok {
			adjusted = evidence.PriorAdjusted(c.BaseProbability, w)
		}
		previews = append(previews, candidatePreview{Candidate: c, PriorAdjustedProb: adjusted})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"candidates": previews,
		"region":     region,
	})
}

// sessionResponse is the wire shape shared by start, status, and
// test-result. The recommended-tests list is capped for display.
func sessionResponse(sess *models.Session) map[string]any {
	tests := sess.RecommendedTests
	if len(tests) > maxDisplayedTests {
		tests = tests[:maxDisplayedTests]
	}

	return map[string]any{
		"session_id":         sess.SessionID,
		"status":             sess.Status,
		"symptoms":           sess.Symptoms,
		"region":             sess.Region,
		"candidates":         sess.Candidates,
		"recommended_tests":  tests,
		"completed_tests":    sess.CompletedTests,
		"test_results":       sess.TestResults,
		"total_cost":         sess.TotalCost,
		"contextual_factors": sess.Factors,
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrTestNotRecommended):
		writeError(w, http.StatusNotFound, "test not found in recommendations")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func splitCommaParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
