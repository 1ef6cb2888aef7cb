package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeProbabilities(t *testing.T) {
	t.Run("scales to unit mass with three-decimal rounding", func(t *testing.T) {
		candidates := []Candidate{
			{DiseaseID: "A", BaseProbability: 0.3},
			{DiseaseID: "B", BaseProbability: 0.1},
		}
		NormalizeProbabilities(candidates)

		assert.InDelta(t, 0.75, candidates[0].BaseProbability, 1e-9)
		assert.InDelta(t, 0.25, candidates[1].BaseProbability, 1e-9)
	})

	t.Run("thirds round to the published precision", func(t *testing.T) {
		candidates := []Candidate{
			{DiseaseID: "A", BaseProbability: 1},
			{DiseaseID: "B", BaseProbability: 1},
			{DiseaseID: "C", BaseProbability: 1},
		}
		NormalizeProbabilities(candidates)

		for _, c := range candidates {
			assert.InDelta(t, 0.333, c.BaseProbability, 1e-9)
		}
	})

	t.Run("zero mass is left untouched", func(t *testing.T) {
		candidates := []Candidate{{DiseaseID: "A", BaseProbability: 0}}
		NormalizeProbabilities(candidates)
		assert.Zero(t, candidates[0].BaseProbability)
	})

	t.Run("empty slice is a no-op", func(t *testing.T) {
		NormalizeProbabilities(nil)
	})
}

func TestSortByProbability(t *testing.T) {
	candidates := []Candidate{
		{DiseaseID: "A", BaseProbability: 0.2},
		{DiseaseID: "B", BaseProbability: 0.5},
		{DiseaseID: "C", BaseProbability: 0.2},
		{DiseaseID: "D", BaseProbability: 0.1},
	}
	SortByProbability(candidates)

	assert.Equal(t, "B", candidates[0].DiseaseID)
	// Stable sort keeps the original order of ties.
	assert.Equal(t, "A", candidates[1].DiseaseID)
	assert.Equal(t, "C", candidates[2].DiseaseID)
	assert.Equal(t, "D", candidates[3].DiseaseID)
}

func TestConfidenceFor(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, ConfidenceFor(0.70))
	assert.Equal(t, ConfidenceHigh, ConfidenceFor(0.9))
	assert.Equal(t, ConfidenceMedium, ConfidenceFor(0.45))
	assert.Equal(t, ConfidenceMedium, ConfidenceFor(0.69))
	assert.Equal(t, ConfidenceLow, ConfidenceFor(0.44))
	assert.Equal(t, ConfidenceLow, ConfidenceFor(0))
}

func TestSessionHelpers(t *testing.T) {
	s := &Session{
		Candidates: []Candidate{
			{DiseaseID: "D001", BaseProbability: 0.6},
			{DiseaseID: "D002", BaseProbability: 0.4},
		},
		TestResults: map[string]TestResult{
			"T001": {Result: "positive"},
			"T002": {Result: "negative"},
			"T003": {Result: "positive"},
		},
	}

	top := s.TopCandidate()
	assert.Equal(t, "D001", top.DiseaseID)
	assert.Equal(t, 2, s.PositiveResults())

	empty := &Session{}
	assert.Nil(t, empty.TopCandidate())
	assert.Zero(t, empty.PositiveResults())
}
