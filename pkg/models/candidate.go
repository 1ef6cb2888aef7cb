// Package models defines the domain types shared across the diagnostic engine.
package models

import (
	"math"
	"sort"
)

// Candidate represents one disease under consideration within a session.
// BaseProbability is the candidate's current posterior; across a session's
// candidates the values always sum to 1.0 except transiently mid-update.
type Candidate struct {
	DiseaseID        string   `json:"disease_id"`
	Name             string   `json:"name"`
	Category         string   `json:"category,omitempty"`
	Severity         int      `json:"severity,omitempty"`
	BaseProbability  float64  `json:"base_probability"`
	MatchingSymptoms []string `json:"matching_symptoms,omitempty"`

	// Evidence annotations, populated as factors are applied.
	EpiBoost           float64 `json:"epi_boost,omitempty"`
	GenomicModifier    float64 `json:"genomic_modifier,omitempty"`
	FamilyHistoryMatch bool    `json:"family_history_match,omitempty"`
	CNNBoost           float64 `json:"cnn_boost,omitempty"`
	CNNLabel           string  `json:"cnn_label,omitempty"`
	AddedByCNN         bool    `json:"added_by_cnn,omitempty"`
	UpdatedByTest      string  `json:"updated_by_test,omitempty"`
}

// Test is a diagnostic test definition. When attached to a recommendation,
// ForDisease and DiseaseID denote the candidate that surfaced it.
type Test struct {
	TestID      string  `json:"test_id"`
	Name        string  `json:"name"`
	CostUSD     float64 `json:"cost_usd"`
	Sensitivity float64 `json:"sensitivity"`
	Specificity float64 `json:"specificity"`
	ForDisease  string  `json:"for_disease,omitempty"`
	DiseaseID   string  `json:"disease_id,omitempty"`
}

// TotalProbability returns the sum of candidate probabilities.
func TotalProbability(candidates []Candidate) float64 {
	var total float64
	for i := range candidates {
		total += candidates[i].BaseProbability
	}
	return total
}

// NormalizeProbabilities rescales candidate probabilities in place so they
// sum to 1.0, rounding each to 3 decimal places. A zero or negative total
// leaves the slice untouched.
func NormalizeProbabilities(candidates []Candidate) {
	total := TotalProbability(candidates)
	if total <= 0 {
		return
	}
	for i := range candidates {
		candidates[i].BaseProbability = math.Round(candidates[i].BaseProbability/total*1000) / 1000
	}
}

// SortByProbability orders candidates descending by probability. The sort is
// stable so equal probabilities preserve their prior relative order.
func SortByProbability(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].BaseProbability > candidates[j].BaseProbability
	})
}
