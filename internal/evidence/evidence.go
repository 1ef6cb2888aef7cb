// Package evidence merges independent evidence sources into a single
// multiplicative adjustment pass over an initial candidate set, producing a
// normalized probability distribution.
package evidence

import (
	"log"
	"sort"
	"strings"

	"github.com/diagnomed/ddx/internal/imaging"
	"github.com/diagnomed/ddx/pkg/models"
)

const (
	// probabilityCap bounds every boosted probability before renormalization.
	probabilityCap = 0.95

	seasonalBoost      = 1.2
	familyHistoryBoost = 1.5
	epiBoostScale      = 10000

	// Imaging signals at or below this confidence are noise.
	imagingMinConfidence = 0.05
	// Imaging-only diseases are added to the differential above this confidence.
	imagingNewCandidateThreshold = 0.10
	imagingSeedFactor            = 0.5
)

// PriorsSource returns epidemiological prior weights per disease for a
// region and month.
type PriorsSource interface {
	GetPriors(region string, month int) (map[string]float64, error)
}

// GenomicSource returns disease risk multipliers for a set of genetic
// variants.
type GenomicSource interface {
	GetRiskModifiers(variants []string) (map[string]float64, error)
}

// DiseaseInfo carries the metadata needed to synthesize a candidate for an
// imaging-implied disease absent from the initial differential.
type DiseaseInfo struct {
	DiseaseID string
	Name      string
	Category  string
	Severity  int
}

// Registry resolves disease IDs to their metadata.
type Registry interface {
	Lookup(diseaseID string) (DiseaseInfo, bool)
}

// Context is the patient context a session supplies to the aggregator.
type Context struct {
	Region          string
	Month           int
	GeneticVariants []string
	FamilyHistory   []string
	CNNPredictions  map[string]float64
}

// Aggregator applies the evidence factor pipeline. Collaborator failures are
// absorbed: a broken priors or genomic lookup skips that factor and the rest
// of the aggregation continues.
type Aggregator struct {
	priors   PriorsSource
	genomic  GenomicSource
	registry Registry
}

// New creates an Aggregator. Any collaborator may be nil; the corresponding
// factor is then skipped.
func New(priors PriorsSource, genomic GenomicSource, registry Registry) *Aggregator {
	return &Aggregator{priors: priors, genomic: genomic, registry: registry}
}

// factor is one evidence source applied as a pure pass over the candidates.
type factor interface {
	apply(candidates []models.Candidate, applied *models.Factors) []models.Candidate
}

// Apply runs the evidence factors in fixed order (seasonal, genomic, family
// history, imaging), then renormalizes and sorts the candidates. Later
// factors compound on earlier ones.
func (a *Aggregator) Apply(candidates []models.Candidate, ctx Context) ([]models.Candidate, models.Factors) {
	applied := models.Factors{Region: ctx.Region, Month: ctx.Month}

	for _, f := range a.buildPipeline(ctx) {
		candidates = f.apply(candidates, &applied)
	}

	models.NormalizeProbabilities(candidates)
	models.SortByProbability(candidates)
	return candidates, applied
}

func (a *Aggregator) buildPipeline(ctx Context) []factor {
	var pipeline []factor

	if a.priors != nil {
		priors, err := a.priors.GetPriors(ctx.Region, ctx.Month)
		if err != nil {
			log.Printf("evidence: skipping seasonal priors: %v", err)
		} else if len(priors) > 0 {
			pipeline = append(pipeline, seasonalFactor{priors: priors})
		}
	}

	if a.genomic != nil && len(ctx.GeneticVariants) > 0 {
		modifiers, err := a.genomic.GetRiskModifiers(ctx.GeneticVariants)
		if err != nil {
			log.Printf("evidence: skipping genomic modifiers: %v", err)
		} else if len(modifiers) > 0 {
			pipeline = append(pipeline, genomicFactor{modifiers: modifiers})
		}
	}

	if len(ctx.FamilyHistory) > 0 {
		match := make(map[string]bool, len(ctx.FamilyHistory))
		for _, entry := range ctx.FamilyHistory {
			match[strings.ToLower(strings.TrimSpace(entry))] = true
		}
		pipeline = append(pipeline, familyHistoryFactor{match: match})
	}

	if len(ctx.CNNPredictions) > 0 {
		pipeline = append(pipeline, imagingFactor{
			signals:  collapseImagingSignals(ctx.CNNPredictions),
			registry: a.registry,
		})
	}

	return pipeline
}

// seasonalFactor boosts candidates with a nonzero epidemiological prior for
// the region and month. Presence of the signal, not its magnitude, triggers
// the flat boost; the raw weight is surfaced as EpiBoost for display.
type seasonalFactor struct {
	priors map[string]float64
}

func (f seasonalFactor) apply(candidates []models.Candidate, applied *models.Factors) []models.Candidate {
	for i := range candidates {
		w, ok := f.priors[candidates[i].DiseaseID]
		if !ok || w == 0 {
			continue
		}
		candidates[i].EpiBoost = w * epiBoostScale
		candidates[i].BaseProbability = capProbability(candidates[i].BaseProbability * seasonalBoost)
		applied.SeasonalApplied = true
	}
	return candidates
}

// genomicFactor multiplies matching candidates by their variant-derived risk
// modifier.
type genomicFactor struct {
	modifiers map[string]float64
}

func (f genomicFactor) apply(candidates []models.Candidate, applied *models.Factors) []models.Candidate {
	for i := range candidates {
		m, ok := f.modifiers[candidates[i].DiseaseID]
		if !ok {
			continue
		}
		candidates[i].GenomicModifier = m
		candidates[i].BaseProbability = capProbability(candidates[i].BaseProbability * m)
		applied.GenomicApplied = true
	}
	return candidates
}

// familyHistoryFactor boosts candidates whose disease appears in the
// patient's family history. Entries match by disease ID or display name,
// case-insensitively.
type familyHistoryFactor struct {
	match map[string]bool
}

func (f familyHistoryFactor) apply(candidates []models.Candidate, applied *models.Factors) []models.Candidate {
	for i := range candidates {
		if !f.match[strings.ToLower(candidates[i].DiseaseID)] &&
			!f.match[strings.ToLower(candidates[i].Name)] {
			continue
		}
		candidates[i].FamilyHistoryMatch = true
		candidates[i].BaseProbability = capProbability(candidates[i].BaseProbability * familyHistoryBoost)
		applied.FamilyHistoryApplied = true
	}
	return candidates
}

// imagingSignal is the strongest classifier signal pointing at one disease.
type imagingSignal struct {
	label      string
	confidence float64
}

// collapseImagingSignals translates label confidences through the
// label-to-disease map, keeping only the maximum confidence per disease.
// Unmapped labels and signals at or below the noise floor are dropped.
func collapseImagingSignals(predictions map[string]float64) map[string]imagingSignal {
	signals := make(map[string]imagingSignal)
	for label, confidence := range predictions {
		if confidence <= imagingMinConfidence {
			continue
		}
		diseaseID, ok := imaging.DiseaseForLabel(label)
		if !ok {
			continue
		}
		if current, seen := signals[diseaseID]; !seen || confidence > current.confidence {
			signals[diseaseID] = imagingSignal{label: label, confidence: confidence}
		}
	}
	return signals
}

// imagingFactor boosts candidates implied by the classifier and synthesizes
// candidates for imaging-only diseases above the addition threshold.
type imagingFactor struct {
	signals  map[string]imagingSignal
	registry Registry
}

func (f imagingFactor) apply(candidates []models.Candidate, applied *models.Factors) []models.Candidate {
	seen := make(map[string]bool, len(candidates))
	var topLabel string
	var topConfidence float64

	for i := range candidates {
		seen[candidates[i].DiseaseID] = true
		sig, ok := f.signals[candidates[i].DiseaseID]
		if !ok {
			continue
		}
		boost := 1 + 3*sig.confidence
		candidates[i].CNNBoost = boost
		candidates[i].CNNLabel = sig.label
		candidates[i].BaseProbability = capProbability(candidates[i].BaseProbability * boost)
		applied.ImagingApplied = true
		if sig.confidence > topConfidence {
			topLabel, topConfidence = sig.label, sig.confidence
		}
	}

	// Append new candidates in disease-ID order so equal-probability
	// additions rank the same across runs.
	added := make([]string, 0, len(f.signals))
	for diseaseID := range f.signals {
		if !seen[diseaseID] {
			added = append(added, diseaseID)
		}
	}
	sort.Strings(added)
	for _, diseaseID := range added {
		sig := f.signals[diseaseID]
		if sig.confidence <= imagingNewCandidateThreshold {
			continue
		}
		candidates = append(candidates, f.newCandidate(diseaseID, sig))
		applied.ImagingApplied = true
		if sig.confidence > topConfidence {
			topLabel, topConfidence = sig.label, sig.confidence
		}
	}

	if topLabel != "" {
		applied.TopImagingLabel = topLabel
	}
	return candidates
}

func (f imagingFactor) newCandidate(diseaseID string, sig imagingSignal) models.Candidate {
	c := models.Candidate{
		DiseaseID:       diseaseID,
		Name:            diseaseID,
		BaseProbability: sig.confidence * imagingSeedFactor,
		CNNBoost:        1 + 3*sig.confidence,
		CNNLabel:        sig.label,
		AddedByCNN:      true,
	}
	if f.registry != nil {
		if info, ok := f.registry.Lookup(diseaseID); ok {
			c.Name = info.Name
			c.Category = info.Category
			c.Severity = info.Severity
		}
	}
	return c
}

func capProbability(p float64) float64 {
	if p > probabilityCap {
		return probabilityCap
	}
	return p
}

// PriorAdjusted scales a base probability by an epidemiological weight for
// standalone candidate previews, outside a session. The scaled weight is
// capped at 2.0 so a single prior cannot triple a probability.
func PriorAdjusted(base, weight float64) float64 {
	boost := weight * epiBoostScale
	if boost > 2.0 {
		boost = 2.0
	}
	return capProbability(base * (1 + boost))
}
