// Package bayes revises candidate probabilities from discrete test results
// using likelihood-ratio updating.
package bayes

import (
	"strings"

	"github.com/diagnomed/ddx/pkg/models"
)

const (
	// posteriorFloor and posteriorCeil keep a single test from driving a
	// candidate to impossibility or certainty.
	posteriorFloor = 0.01
	posteriorCeil  = 0.99

	// suppressionFactor is the weak competitive suppression applied to
	// non-targeted candidates on a positive result.
	suppressionFactor = 0.95

	// minDenominator guards likelihood ratios against test definitions with
	// sensitivity or specificity at the boundary values 0 or 1, which the
	// core does not control.
	minDenominator = 1e-6
)

var positiveTokens = map[string]bool{
	"positive": true,
	"pos":      true,
	"true":     true,
	"yes":      true,
	"1":        true,
}

// IsPositive classifies a free-text result string. Anything outside the
// recognized positive tokens is negative.
func IsPositive(result string) bool {
	return positiveTokens[strings.ToLower(strings.TrimSpace(result))]
}

// ApplyTestResult returns a new candidate list with every probability
// revised for the given test outcome. The targeted candidate gets the full
// likelihood-ratio update; on a positive result every other candidate is
// weakly suppressed, while a negative result leaves them unchanged. The
// result is renormalized and sorted; committing it is the caller's job.
func ApplyTestResult(candidates []models.Candidate, test models.Test, positive bool) []models.Candidate {
	updated := make([]models.Candidate, len(candidates))
	copy(updated, candidates)

	for i := range updated {
		if updated[i].DiseaseID == test.DiseaseID {
			updated[i].BaseProbability = clampPosterior(posterior(updated[i].BaseProbability, test, positive))
			updated[i].UpdatedByTest = test.Name
		} else if positive {
			updated[i].BaseProbability *= suppressionFactor
		}
	}

	models.NormalizeProbabilities(updated)
	models.SortByProbability(updated)
	return updated
}

// posterior converts the prior through the test's likelihood ratio:
// positive LR = sens/(1-spec), negative LR = (1-sens)/spec, then
// p' = LR*p / (LR*p + (1-p)).
func posterior(prior float64, test models.Test, positive bool) float64 {
	var lr float64
	if positive {
		lr = test.Sensitivity / guard(1-test.Specificity)
	} else {
		lr = (1 - test.Sensitivity) / guard(test.Specificity)
	}
	return (lr * prior) / (lr*prior + (1 - prior))
}

func guard(denominator float64) float64 {
	if denominator < minDenominator {
		return minDenominator
	}
	return denominator
}

func clampPosterior(p float64) float64 {
	if p < posteriorFloor {
		return posteriorFloor
	}
	if p > posteriorCeil {
		return posteriorCeil
	}
	return p
}
