// Package session owns the lifecycle of interactive diagnostic sessions:
// creation, evidence application, test ordering, result submission,
// confidence detection, and final report generation.
package session

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/diagnomed/ddx/internal/bayes"
	"github.com/diagnomed/ddx/internal/catalog"
	"github.com/diagnomed/ddx/internal/evidence"
	"github.com/diagnomed/ddx/internal/treatment"
	"github.com/diagnomed/ddx/pkg/models"
	"github.com/google/uuid"
)

// highConfidenceThreshold promotes a session once the top candidate reaches
// this post-normalization probability.
const highConfidenceThreshold = 0.70

// ErrTestNotRecommended reports a test ID outside the session's current
// recommendations. Only currently recommended tests are submittable, even
// when the ID exists in the global catalog.
var ErrTestNotRecommended = errors.New("test not found in recommendations")

// CandidateSource is the symptom-matching collaborator.
type CandidateSource interface {
	GetCandidates(symptoms []string, topK int) []models.Candidate
}

// TreatmentSource is the treatment-recommendation collaborator.
type TreatmentSource interface {
	GetTreatment(diseaseID, severity string, contraindications []string) *treatment.Plan
}

// CaseSummary is the final session state handed to the case store.
type CaseSummary struct {
	SessionID  string
	Symptoms   []string
	Region     string
	DiseaseID  string
	Diagnosis  string
	Category   string
	Confidence float64
	Candidates []models.Candidate
	TotalCost  float64
}

// CaseStore is the persistence collaborator for completed sessions.
type CaseStore interface {
	SaveCase(ctx context.Context, summary CaseSummary) (string, error)
	SimilarCount(ctx context.Context, symptoms []string) (int, error)
}

// Engine is the session state machine. All collaborators except the
// repository, matcher, and catalog may be nil; their features then degrade
// to partial output.
type Engine struct {
	repo       Repository
	matcher    CandidateSource
	aggregator *evidence.Aggregator
	catalog    *catalog.Catalog
	treatment  TreatmentSource
	cases      CaseStore
}

// Config wires an Engine.
type Config struct {
	Repository Repository
	Matcher    CandidateSource
	Aggregator *evidence.Aggregator
	Catalog    *catalog.Catalog
	Treatment  TreatmentSource
	Cases      CaseStore
}

// NewEngine creates a session engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		repo:       cfg.Repository,
		matcher:    cfg.Matcher,
		aggregator: cfg.Aggregator,
		catalog:    cfg.Catalog,
		treatment:  cfg.Treatment,
		cases:      cfg.Cases,
	}
}

// StartParams are the intake inputs for a new session.
type StartParams struct {
	Symptoms        []string
	Region          string
	Age             int
	Sex             string
	Month           int
	FamilyHistory   []string
	GeneticVariants []string
	CNNPredictions  map[string]float64
}

// Start creates a session: it builds the initial differential from
// symptoms, applies the evidence factors, and proposes the first round of
// tests. The returned session is a snapshot.
func (e *Engine) Start(params StartParams) *models.Session {
	region := params.Region
	if region == "" {
		region = "Global"
	}
	month := params.Month
	if month < 1 || month > 12 {
		month = int(time.Now().Month())
	}

	candidates := e.matcher.GetCandidates(params.Symptoms, matcherTopK)
	candidates, factors := e.aggregator.Apply(candidates, evidence.Context{
		Region:          region,
		Month:           month,
		GeneticVariants: params.GeneticVariants,
		FamilyHistory:   params.FamilyHistory,
		CNNPredictions:  params.CNNPredictions,
	})

	s := &models.Session{
		SessionID:        uuid.New().String(),
		Symptoms:         append([]string(nil), params.Symptoms...),
		Region:           region,
		Candidates:       candidates,
		RecommendedTests: e.catalog.Recommend(candidates, nil, catalog.DefaultTopN),
		CompletedTests:   []string{},
		TestResults:      map[string]models.TestResult{},
		Status:           models.StatusInProgress,
		GeneticVariants:  append([]string(nil), params.GeneticVariants...),
		FamilyHistory:    append([]string(nil), params.FamilyHistory...),
		CNNPredictions:   params.CNNPredictions,
		Factors:          factors,
	}
	e.repo.Put(s)

	log.Printf("session: started diagnostic session %s (%d candidates)", s.SessionID, len(s.Candidates))
	snapshot, _ := e.repo.Get(s.SessionID)
	return snapshot
}

const matcherTopK = 10

// Status returns a snapshot of the session.
func (e *Engine) Status(sessionID string) (*models.Session, error) {
	return e.repo.Get(sessionID)
}

// SubmitTestResult records one test outcome, revises every candidate
// probability, and refreshes the recommended tests. The whole step runs as
// one transaction under the session's lock.
func (e *Engine) SubmitTestResult(sessionID, testID, result string) (*models.Session, error) {
	err := e.repo.Update(sessionID, func(s *models.Session) error {
		var test *models.Test
		for i := range s.RecommendedTests {
			if s.RecommendedTests[i].TestID == testID {
				test = &s.RecommendedTests[i]
				break
			}
		}
		if test == nil {
			return ErrTestNotRecommended
		}

		s.CompletedTests = append(s.CompletedTests, testID)
		s.TestResults[testID] = models.TestResult{
			TestName:   test.Name,
			Result:     result,
			ForDisease: test.ForDisease,
		}
		s.TotalCost += test.CostUSD

		s.Candidates = bayes.ApplyTestResult(s.Candidates, *test, bayes.IsPositive(result))
		s.RecommendedTests = e.catalog.Recommend(s.Candidates, s.CompletedTests, catalog.DefaultTopN)

		if top := s.TopCandidate(); top != nil &&
			top.BaseProbability >= highConfidenceThreshold &&
			s.Status == models.StatusInProgress {
			s.Status = models.StatusHighConfidence
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.repo.Get(sessionID)
}

// FinalResult is the response of the result operation.
type FinalResult struct {
	SessionID       string                       `json:"session_id"`
	TopDiagnosis    *models.Candidate            `json:"top_diagnosis"`
	AllCandidates   []models.Candidate           `json:"all_candidates"`
	TestsPerformed  map[string]models.TestResult `json:"tests_performed"`
	TotalCost       float64                      `json:"total_cost"`
	Treatment       *treatment.Plan              `json:"treatment,omitempty"`
	Status          models.SessionStatus         `json:"status"`
	Trustworthiness models.Trustworthiness       `json:"trustworthiness"`
	Report          models.Report                `json:"report"`
}

// Result computes the final report. On the first call the session's final
// state is persisted through the case store and the session transitions to
// saved; later calls recompute the live report without persisting again.
// A failing treatment or case-store collaborator degrades the affected
// field rather than the whole response.
func (e *Engine) Result(ctx context.Context, sessionID string, contraindications []string) (*FinalResult, error) {
	var result *FinalResult
	err := e.repo.Update(sessionID, func(s *models.Session) error {
		top := s.TopCandidate()

		var plan *treatment.Plan
		if top != nil && e.treatment != nil {
			plan = e.treatment.GetTreatment(top.DiseaseID, "moderate", contraindications)
		}

		trust := e.buildTrustworthiness(ctx, s)
		report := buildReport(s)

		if s.Status != models.StatusSaved && e.cases != nil && top != nil {
			caseID, err := e.cases.SaveCase(ctx, CaseSummary{
				SessionID:  s.SessionID,
				Symptoms:   s.Symptoms,
				Region:     s.Region,
				DiseaseID:  top.DiseaseID,
				Diagnosis:  top.Name,
				Category:   top.Category,
				Confidence: trust.ConfidenceScore,
				Candidates: s.Candidates,
				TotalCost:  s.TotalCost,
			})
			if err != nil {
				log.Printf("session: could not persist case for %s: %v", s.SessionID, err)
			} else {
				s.CaseID = caseID
				s.Status = models.StatusSaved
			}
		}

		result = &FinalResult{
			SessionID:       s.SessionID,
			TopDiagnosis:    cloneCandidate(top),
			AllCandidates:   append([]models.Candidate(nil), s.Candidates...),
			TestsPerformed:  cloneResults(s.TestResults),
			TotalCost:       s.TotalCost,
			Treatment:       plan,
			Status:          s.Status,
			Trustworthiness: trust,
			Report:          report,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func cloneCandidate(c *models.Candidate) *models.Candidate {
	if c == nil {
		return nil
	}
	copied := *c
	return &copied
}

func cloneResults(in map[string]models.TestResult) map[string]models.TestResult {
	out := make(map[string]models.TestResult, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
