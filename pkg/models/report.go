package models

// Confidence represents the leveled confidence of a final diagnosis.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// ConfidenceFor levels a raw confidence score.
func ConfidenceFor(score float64) Confidence {
	switch {
	case score >= 0.70:
		return ConfidenceHigh
	case score >= 0.45:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// EvidenceItem is one row of the evidence table backing a final report.
type EvidenceItem struct {
	Factor   string  `json:"factor"`
	Supports string  `json:"supports"`
	Weight   float64 `json:"weight"`
	Result   string  `json:"result,omitempty"`
	Type     string  `json:"type"`
}

// Trustworthiness bundles the explainability data attached to a final report.
type Trustworthiness struct {
	ConfidenceScore     float64        `json:"confidence_score"`
	ConfidenceLevel     Confidence     `json:"confidence_level"`
	Evidence            []EvidenceItem `json:"evidence"`
	ReasoningChain      []string       `json:"reasoning_chain"`
	UncertaintyFactors  []string       `json:"uncertainty_factors"`
	SimilarCases        int            `json:"similar_cases"`
	ExplainabilityScore float64        `json:"explainability_score"`
}

// PatientSummary summarizes the session inputs.
type PatientSummary struct {
	Symptoms  []string `json:"symptoms"`
	Region    string   `json:"region"`
	SessionID string   `json:"session_id"`
}

// TestDetail is one completed test as shown in the diagnostic journey.
type TestDetail struct {
	Name       string `json:"name"`
	Result     string `json:"result"`
	ForDisease string `json:"for_disease"`
}

// DiagnosticJourney summarizes the path from intake to diagnosis.
type DiagnosticJourney struct {
	InitialCandidates int          `json:"initial_candidates"`
	TestsOrdered      int          `json:"tests_ordered"`
	TestsDetails      []TestDetail `json:"tests_details"`
	TotalCost         float64      `json:"total_cost"`
}

// FinalDiagnosis names the top candidate of a completed session.
type FinalDiagnosis struct {
	Disease     string  `json:"disease"`
	DiseaseID   string  `json:"disease_id,omitempty"`
	Probability float64 `json:"probability"`
	Category    string  `json:"category"`
}

// DifferentialEntry is one alternative in the final differential.
type DifferentialEntry struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

// Report is the comprehensive report section of a final result.
type Report struct {
	PatientSummary    PatientSummary      `json:"patient_summary"`
	DiagnosticJourney DiagnosticJourney   `json:"diagnostic_journey"`
	FinalDiagnosis    FinalDiagnosis      `json:"final_diagnosis"`
	Differential      []DifferentialEntry `json:"differential"`
}
