// Package matcher provides the symptom-to-candidate collaborator: it
// normalizes free-text symptoms against a known vocabulary and scores
// diseases by symptom overlap to produce an initial ranked differential.
package matcher

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/diagnomed/ddx/internal/evidence"
	"github.com/diagnomed/ddx/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed diseases.yaml
var diseasesFS embed.FS

// DefaultTopK bounds the size of the initial differential.
const DefaultTopK = 10

// knownSymptoms is the recognized symptom vocabulary. Multi-word forms are
// normalized to their underscore identifiers.
var knownSymptoms = []string{
	"fever", "headache", "cough", "fatigue", "joint_pain",
	"rash", "nausea", "vomiting", "diarrhea", "chills", "sweating",
	"chest_pain", "shortness_of_breath", "body_aches", "sore_throat",
	"runny_nose", "muscle_pain", "weakness", "appetite", "weight_loss",
	"night_sweats", "abdominal_pain", "bleeding", "bruising", "eye_pain",
	"skin_rash",
}

// Disease is one registry entry.
type Disease struct {
	DiseaseID string   `yaml:"disease_id"`
	Name      string   `yaml:"name"`
	Category  string   `yaml:"category"`
	Severity  int      `yaml:"severity"`
	Symptoms  []string `yaml:"symptoms"`
}

// Mapper matches symptoms to diseases over the embedded registry.
type Mapper struct {
	diseases []Disease
	byID     map[string]Disease
}

// New loads the embedded disease registry.
func New() (*Mapper, error) {
	data, err := diseasesFS.ReadFile("diseases.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read disease registry: %w", err)
	}
	var f struct {
		Diseases []Disease `yaml:"diseases"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse disease registry: %w", err)
	}

	byID := make(map[string]Disease, len(f.Diseases))
	for _, d := range f.Diseases {
		byID[d.DiseaseID] = d
	}
	return &Mapper{diseases: f.Diseases, byID: byID}, nil
}

// MatchSymptom normalizes a free-text symptom against the known vocabulary.
// It returns the symptom identifier and whether it was recognized.
func (m *Mapper) MatchSymptom(text string) (string, bool) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(text)), " ", "_")
	for _, s := range knownSymptoms {
		if normalized == s {
			return s, true
		}
	}
	return "", false
}

// ExtractSymptoms pulls known symptom keywords out of a free-text
// description. When no keyword matches it falls back to comma splitting.
func (m *Mapper) ExtractSymptoms(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	seen := make(map[string]bool)
	for _, s := range knownSymptoms {
		spaced := strings.ReplaceAll(s, "_", " ")
		if strings.Contains(lower, s) || strings.Contains(lower, spaced) {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		normalized := strings.ReplaceAll(strings.ToLower(part), " ", "_")
		if !seen[normalized] {
			seen[normalized] = true
			out = append(out, normalized)
		}
	}
	return out
}

// GetCandidates scores every registry disease by symptom overlap and
// returns the top topK as an initial differential with probabilities
// normalized to sum to 1.0.
func (m *Mapper) GetCandidates(symptoms []string, topK int) []models.Candidate {
	if topK <= 0 {
		topK = DefaultTopK
	}
	input := make(map[string]bool, len(symptoms))
	for _, s := range symptoms {
		if id, ok := m.MatchSymptom(s); ok {
			input[id] = true
		}
	}

	var candidates []models.Candidate
	for _, d := range m.diseases {
		var matched []string
		for _, s := range d.Symptoms {
			if input[s] {
				matched = append(matched, s)
			}
		}
		if len(matched) == 0 {
			continue
		}
		candidates = append(candidates, models.Candidate{
			DiseaseID:        d.DiseaseID,
			Name:             d.Name,
			Category:         d.Category,
			Severity:         d.Severity,
			BaseProbability:  float64(len(matched)) / float64(len(d.Symptoms)),
			MatchingSymptoms: matched,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].BaseProbability > candidates[j].BaseProbability
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	models.NormalizeProbabilities(candidates)
	return candidates
}

// DiseaseName resolves a disease ID to its display name, or "" if unknown.
func (m *Mapper) DiseaseName(diseaseID string) string {
	return m.byID[diseaseID].Name
}

// Lookup implements evidence.Registry for synthesizing imaging-implied
// candidates.
func (m *Mapper) Lookup(diseaseID string) (evidence.DiseaseInfo, bool) {
	d, ok := m.byID[diseaseID]
	if !ok {
		return evidence.DiseaseInfo{}, false
	}
	return evidence.DiseaseInfo{
		DiseaseID: d.DiseaseID,
		Name:      d.Name,
		Category:  d.Category,
		Severity:  d.Severity,
	}, true
}
