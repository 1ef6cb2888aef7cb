// Package catalog maps disease identifiers to the diagnostic tests
// applicable to them and recommends tests for the current differential.
package catalog

import (
	"embed"
	"fmt"
	"log"
	"os"

	"github.com/diagnomed/ddx/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsFS embed.FS

// DefaultTopN is how many top candidates contribute tests to a
// recommendation.
const DefaultTopN = 3

// Catalog is a read-only set of test definitions keyed by disease ID.
type Catalog struct {
	tests map[string][]models.Test
}

type testFile struct {
	Tests map[string][]testEntry `yaml:"tests"`
}

type testEntry struct {
	TestID      string  `yaml:"test_id"`
	Name        string  `yaml:"name"`
	CostUSD     float64 `yaml:"cost_usd"`
	Sensitivity float64 `yaml:"sensitivity"`
	Specificity float64 `yaml:"specificity"`
}

// Load reads the catalog from path, falling back to the embedded defaults
// when path is empty or unreadable. A catalog failure must not fail the
// session, so the worst case is an empty catalog.
func Load(path string) *Catalog {
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			c, perr := parse(data)
			if perr == nil {
				return c
			}
			log.Printf("catalog: invalid catalog file %s, using defaults: %v", path, perr)
		} else {
			log.Printf("catalog: cannot read %s, using defaults: %v", path, err)
		}
	}
	return Default()
}

// Default returns the embedded built-in catalog.
func Default() *Catalog {
	data, err := defaultsFS.ReadFile("defaults.yaml")
	if err == nil {
		if c, perr := parse(data); perr == nil {
			return c
		}
	}
	log.Printf("catalog: embedded defaults unavailable, catalog is empty")
	return &Catalog{tests: map[string][]models.Test{}}
}

func parse(data []byte) (*Catalog, error) {
	var f testFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	tests := make(map[string][]models.Test, len(f.Tests))
	for diseaseID, entries := range f.Tests {
		defs := make([]models.Test, 0, len(entries))
		for _, e := range entries {
			defs = append(defs, models.Test{
				TestID:      e.TestID,
				Name:        e.Name,
				CostUSD:     e.CostUSD,
				Sensitivity: e.Sensitivity,
				Specificity: e.Specificity,
			})
		}
		tests[diseaseID] = defs
	}
	return &Catalog{tests: tests}, nil
}

// TestsFor returns the test definitions for a disease.
func (c *Catalog) TestsFor(diseaseID string) []models.Test {
	return c.tests[diseaseID]
}

// Find returns a test definition by ID, searching the whole catalog.
func (c *Catalog) Find(testID string) (models.Test, bool) {
	for _, defs := range c.tests {
		for _, t := range defs {
			if t.TestID == testID {
				return t, true
			}
		}
	}
	return models.Test{}, false
}

// Recommend collects the tests applicable to the top topN candidates,
// excluding completed tests and deduplicating by test ID. A test shared by
// two top candidates is attributed to the higher-ranked one, since the
// candidates arrive probability-sorted. The caller caps the result to a
// display size; Recommend itself only scopes by topN.
func (c *Catalog) Recommend(candidates []models.Candidate, completed []string, topN int) []models.Test {
	if topN <= 0 {
		topN = DefaultTopN
	}
	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}

	var recommended []models.Test
	seen := make(map[string]bool)
	for i := 0; i < len(candidates) && i < topN; i++ {
		candidate := candidates[i]
		for _, t := range c.tests[candidate.DiseaseID] {
			if done[t.TestID] || seen[t.TestID] {
				continue
			}
			seen[t.TestID] = true
			t.ForDisease = candidate.Name
			t.DiseaseID = candidate.DiseaseID
			recommended = append(recommended, t)
		}
	}
	return recommended
}
