package models

// SessionStatus tracks the lifecycle of a diagnostic session.
type SessionStatus string

const (
	StatusInProgress     SessionStatus = "in_progress"
	StatusHighConfidence SessionStatus = "high_confidence"
	StatusSaved          SessionStatus = "saved"
)

// TestResult records the outcome of one completed test within a session.
type TestResult struct {
	TestName   string `json:"test_name"`
	Result     string `json:"result"`
	ForDisease string `json:"for_disease"`
}

// Factors records which evidence sources fired during aggregation, for
// transparency to the caller.
type Factors struct {
	SeasonalApplied      bool   `json:"seasonal_applied"`
	GenomicApplied       bool   `json:"genomic_applied"`
	FamilyHistoryApplied bool   `json:"family_history_applied"`
	ImagingApplied       bool   `json:"imaging_applied"`
	Region               string `json:"region"`
	Month                int    `json:"month"`
	TopImagingLabel      string `json:"top_imaging_label,omitempty"`
}

// Session is the unit of interactive diagnosis state. It is owned
// exclusively by the session engine; callers interact through the engine's
// operations, never by mutating fields directly.
type Session struct {
	SessionID        string                `json:"session_id"`
	Symptoms         []string              `json:"symptoms"`
	Region           string                `json:"region"`
	Candidates       []Candidate           `json:"candidates"`
	RecommendedTests []Test                `json:"recommended_tests"`
	CompletedTests   []string              `json:"completed_tests"`
	TestResults      map[string]TestResult `json:"test_results"`
	TotalCost        float64               `json:"total_cost"`
	Status           SessionStatus         `json:"status"`

	// Contextual metadata carried for reporting.
	GeneticVariants []string           `json:"genetic_variants,omitempty"`
	FamilyHistory   []string           `json:"family_history,omitempty"`
	CNNPredictions  map[string]float64 `json:"cnn_predictions,omitempty"`
	Factors         Factors            `json:"contextual_factors"`
	CaseID          string             `json:"case_id,omitempty"`
}

// TopCandidate returns the highest-ranked candidate, or nil when the
// session has none.
func (s *Session) TopCandidate() *Candidate {
	if len(s.Candidates) == 0 {
		return nil
	}
	return &s.Candidates[0]
}

// PositiveResults returns how many submitted tests came back positive.
func (s *Session) PositiveResults() int {
	var n int
	for _, r := range s.TestResults {
		if r.Result == "positive" {
			n++
		}
	}
	return n
}
