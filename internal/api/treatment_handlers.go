package api

import (
	"net/http"
)

// handleListTests returns the catalog tests for a disease.
func (s *Server) handleListTests(w http.ResponseWriter, r *http.Request) {
	diseaseID := r.PathValue("diseaseID")

	tests := s.catalog.TestsFor(diseaseID)
	if len(tests) == 0 {
		writeError(w, http.StatusNotFound, "no tests in catalog for disease")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"disease_id": diseaseID,
		"tests":      tests,
	})
}

// handleGetTreatment returns the treatment plan for a disease. Severity
// defaults to moderate, with protocol-level fallback when the requested
// severity has no entry.
func (s *Server) handleGetTreatment(w http.ResponseWriter, r *http.Request) {
	diseaseID := r.PathValue("diseaseID")

	severity := r.URL.Query().Get("severity")
	if severity == "" {
		severity = "moderate"
	}
	contraindications := splitCommaParam(r.URL.Query().Get("contraindications"))

	plan := s.treatment.GetTreatment(diseaseID, severity, contraindications)
	if plan == nil {
		writeError(w, http.StatusNotFound, "no treatment protocol for disease")
		return
	}

	writeJSON(w, http.StatusOK, plan)
}

// handleAvailableTreatments lists the disease IDs with treatment protocols.
func (s *Server) handleAvailableTreatments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"disease_ids": s.treatment.DiseaseIDs(),
	})
}
