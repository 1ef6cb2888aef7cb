package api

import (
	"net/http"
	"strconv"
	"time"
)

// handleEpidemiology returns the prior weights per disease for a region
// and month. Unknown regions fall back to the Global baseline.
func (s *Server) handleEpidemiology(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")
	if region == "" {
		region = "Global"
	}

	month := int(time.Now().Month())
	if m := r.URL.Query().Get("month"); m != "" {
		parsed, err := strconv.Atoi(m)
		if err != nil || parsed < 1 || parsed > 12 {
			writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
			return
		}
		month = parsed
	}

	weights, err := s.epidemiology.GetPriors(region, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load priors")
		return
	}

	// Key by display name where the disease is known to the mapper.
	priors := make(map[string]float64, len(weights))
	for diseaseID, weight := range weights {
		name := s.matcher.DiseaseName(diseaseID)
		if name == "" {
			name = diseaseID
		}
		priors[name] = weight
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"region": region,
		"month":  month,
		"priors": priors,
	})
}

type genomicRequest struct {
	Variants []string `json:"variants"`
}

// handleGenomicModifiers returns disease risk multipliers for a set of
// genetic variants.
func (s *Server) handleGenomicModifiers(w http.ResponseWriter, r *http.Request) {
	var req genomicRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Variants) == 0 {
		writeError(w, http.StatusBadRequest, "no variants provided")
		return
	}

	modifiers, err := s.genomic.GetRiskModifiers(req.Variants)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load risk modifiers")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"variants":  req.Variants,
		"modifiers": modifiers,
	})
}

type symptomMatchRequest struct {
	Text string `json:"text"`
}

// handleSymptomMatch extracts recognized symptoms from free text.
func (s *Server) handleSymptomMatch(w http.ResponseWriter, r *http.Request) {
	var req symptomMatchRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	symptoms := s.matcher.ExtractSymptoms(req.Text)
	writeJSON(w, http.StatusOK, map[string]any{
		"text":     req.Text,
		"symptoms": symptoms,
	})
}
