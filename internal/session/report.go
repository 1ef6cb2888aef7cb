package session

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/diagnomed/ddx/pkg/models"
)

// Symptoms whose presence carries the most diagnostic weight in the
// evidence table.
var strongSymptoms = map[string]bool{"fever": true, "headache": true}

func (e *Engine) buildTrustworthiness(ctx context.Context, s *models.Session) models.Trustworthiness {
	top := s.TopCandidate()
	var topProb float64
	if top != nil {
		topProb = top.BaseProbability
	}
	numTests := len(s.TestResults)

	agreement := float64(s.PositiveResults()) / float64(max(numTests, 1))
	score := topProb*0.5 + float64(min(numTests, 3))*0.1 + agreement*0.2
	score = math.Round(math.Min(score, 0.95)*100) / 100

	ev := buildEvidence(s, top)
	chain := buildReasoningChain(s, top, topProb)

	trust := models.Trustworthiness{
		ConfidenceScore:     score,
		ConfidenceLevel:     models.ConfidenceFor(score),
		Evidence:            ev,
		ReasoningChain:      chain,
		UncertaintyFactors:  buildUncertaintyFactors(s, topProb, numTests),
		SimilarCases:        e.similarCases(ctx, s, topProb),
		ExplainabilityScore: math.Min(0.95, 0.5+float64(len(ev))*0.05+float64(len(chain))*0.05),
	}
	return trust
}

func buildEvidence(s *models.Session, top *models.Candidate) []models.EvidenceItem {
	var ev []models.EvidenceItem
	if top != nil {
		for _, symptom := range s.Symptoms {
			weight := 0.8
			if strongSymptoms[symptom] {
				weight = 0.9
			}
			ev = append(ev, models.EvidenceItem{
				Factor:   "Symptom: " + displaySymptom(symptom),
				Supports: top.Name,
				Weight:   weight,
				Type:     "symptom",
			})
		}
	}
	for _, testID := range s.CompletedTests {
		r := s.TestResults[testID]
		supports := r.ForDisease
		weight := 0.9
		if r.Result != "positive" {
			supports = "Not " + r.ForDisease
			weight = 0.3
		}
		ev = append(ev, models.EvidenceItem{
			Factor:   "Test: " + r.TestName,
			Supports: supports,
			Weight:   weight,
			Result:   r.Result,
			Type:     "test",
		})
	}
	return ev
}

func buildReasoningChain(s *models.Session, top *models.Candidate, topProb float64) []string {
	var chain []string
	if len(s.Symptoms) > 0 {
		shown := s.Symptoms
		if len(shown) > 4 {
			shown = shown[:4]
		}
		names := make([]string, len(shown))
		for i, sym := range shown {
			names[i] = strings.ReplaceAll(sym, "_", " ")
		}
		chain = append(chain, fmt.Sprintf("Step 1: Patient presented with %d symptoms: %s",
			len(s.Symptoms), strings.Join(names, ", ")))
	}

	if len(s.Candidates) > 0 {
		topNames := make([]string, 0, 3)
		for i := 0; i < len(s.Candidates) && i < 3; i++ {
			topNames = append(topNames, s.Candidates[i].Name)
		}
		chain = append(chain, fmt.Sprintf("Step 2: Initial differential diagnosis included: %s",
			strings.Join(topNames, ", ")))
	}

	var positive, negative []string
	for _, testID := range s.CompletedTests {
		r := s.TestResults[testID]
		switch r.Result {
		case "positive":
			positive = append(positive, r.TestName)
		case "negative":
			negative = append(negative, r.TestName)
		}
	}
	if len(positive) > 0 {
		chain = append(chain, fmt.Sprintf("Step 3: Positive results from: %s increased confidence in diagnosis",
			strings.Join(positive, ", ")))
	}
	if len(negative) > 0 {
		chain = append(chain, fmt.Sprintf("Step 4: Negative results from: %s helped rule out other conditions",
			strings.Join(negative, ", ")))
	}

	if top != nil {
		chain = append(chain, fmt.Sprintf(
			"Step %d: Based on symptom pattern and test results, %s identified as most likely diagnosis with %d%% probability",
			len(chain)+1, top.Name, int(topProb*100)))
	}
	return chain
}

func buildUncertaintyFactors(s *models.Session, topProb float64, numTests int) []string {
	var factors []string
	if numTests < 2 {
		factors = append(factors, "Limited test data - more tests could improve accuracy")
	}
	if topProb < 0.5 {
		factors = append(factors, "No single diagnosis has strong probability - consider additional evaluation")
	}
	if len(s.Candidates) >= 3 && s.Candidates[2].BaseProbability > 0.15 {
		factors = append(factors, "Multiple diseases have similar probability - differential remains broad")
	}
	if len(s.Symptoms) < 3 {
		factors = append(factors, "Limited symptom information provided")
	}
	return factors
}

func (e *Engine) similarCases(ctx context.Context, s *models.Session, topProb float64) int {
	if e.cases != nil {
		n, err := e.cases.SimilarCount(ctx, s.Symptoms)
		if err == nil {
			return n
		}
		log.Printf("session: similar-case lookup failed for %s: %v", s.SessionID, err)
	}
	// Estimate when no history store is available.
	return max(5, int(topProb*50))
}

func buildReport(s *models.Session) models.Report {
	top := s.TopCandidate()

	details := make([]models.TestDetail, 0, len(s.CompletedTests))
	for _, testID := range s.CompletedTests {
		r := s.TestResults[testID]
		details = append(details, models.TestDetail{
			Name:       r.TestName,
			Result:     r.Result,
			ForDisease: r.ForDisease,
		})
	}

	final := models.FinalDiagnosis{Disease: "Inconclusive", Category: "Unknown"}
	if top != nil {
		final = models.FinalDiagnosis{
			Disease:     top.Name,
			DiseaseID:   top.DiseaseID,
			Probability: top.BaseProbability,
			Category:    top.Category,
		}
		if final.Category == "" {
			final.Category = "Unknown"
		}
	}

	differential := make([]models.DifferentialEntry, 0, 5)
	for i := 0; i < len(s.Candidates) && i < 5; i++ {
		differential = append(differential, models.DifferentialEntry{
			Name:        s.Candidates[i].Name,
			Probability: s.Candidates[i].BaseProbability,
		})
	}

	return models.Report{
		PatientSummary: models.PatientSummary{
			Symptoms:  s.Symptoms,
			Region:    s.Region,
			SessionID: s.SessionID,
		},
		DiagnosticJourney: models.DiagnosticJourney{
			InitialCandidates: len(s.Candidates),
			TestsOrdered:      len(s.TestResults),
			TestsDetails:      details,
			TotalCost:         s.TotalCost,
		},
		FinalDiagnosis: final,
		Differential:   differential,
	}
}

func displaySymptom(symptom string) string {
	words := strings.Split(strings.ReplaceAll(symptom, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
