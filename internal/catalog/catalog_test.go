package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/diagnomed/ddx/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	cat := Default()

	tests := cat.TestsFor("D001")
	require.Len(t, tests, 3)
	assert.Equal(t, "T001", tests[0].TestID)
	assert.Equal(t, "NS1 Antigen Test", tests[0].Name)
	assert.InDelta(t, 25, tests[0].CostUSD, 1e-9)
	assert.InDelta(t, 0.85, tests[0].Sensitivity, 1e-9)
	assert.InDelta(t, 0.95, tests[0].Specificity, 1e-9)

	assert.Empty(t, cat.TestsFor("D999"))
}

func TestLoad(t *testing.T) {
	t.Run("empty path falls back to defaults", func(t *testing.T) {
		cat := Load("")
		assert.NotEmpty(t, cat.TestsFor("D001"))
	})

	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cat := Load("/nonexistent/tests.yaml")
		assert.NotEmpty(t, cat.TestsFor("D001"))
	})

	t.Run("external file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tests.yaml")
		content := `tests:
  D042:
    - test_id: T900
      name: Custom Assay
      cost_usd: 42
      sensitivity: 0.8
      specificity: 0.9
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cat := Load(path)
		tests := cat.TestsFor("D042")
		require.Len(t, tests, 1)
		assert.Equal(t, "Custom Assay", tests[0].Name)
		assert.Empty(t, cat.TestsFor("D001"))
	})
}

func TestFind(t *testing.T) {
	cat := Default()

	test, ok := cat.Find("T004")
	require.True(t, ok)
	assert.Equal(t, "Blood Smear", test.Name)

	_, ok = cat.Find("T999")
	assert.False(t, ok)
}

func TestRecommend(t *testing.T) {
	cat := Default()

	candidates := []models.Candidate{
		{DiseaseID: "D001", Name: "Dengue", BaseProbability: 0.5},
		{DiseaseID: "D002", Name: "Malaria", BaseProbability: 0.3},
		{DiseaseID: "D003", Name: "Typhoid", BaseProbability: 0.2},
	}

	t.Run("collects tests for top candidates with attribution", func(t *testing.T) {
		recommended := cat.Recommend(candidates, nil, 2)

		ids := make([]string, 0, len(recommended))
		for _, r := range recommended {
			ids = append(ids, r.TestID)
		}
		assert.Equal(t, []string{"T001", "T002", "T003", "T004", "T005"}, ids)

		assert.Equal(t, "Dengue", recommended[0].ForDisease)
		assert.Equal(t, "D001", recommended[0].DiseaseID)
		assert.Equal(t, "Malaria", recommended[3].ForDisease)
	})

	t.Run("excludes completed tests", func(t *testing.T) {
		recommended := cat.Recommend(candidates, []string{"T001", "T004"}, 2)

		for _, r := range recommended {
			assert.NotEqual(t, "T001", r.TestID)
			assert.NotEqual(t, "T004", r.TestID)
		}
	})

	t.Run("topN scopes the candidate window", func(t *testing.T) {
		recommended := cat.Recommend(candidates, nil, 1)

		for _, r := range recommended {
			assert.Equal(t, "D001", r.DiseaseID)
		}
	})

	t.Run("zero topN uses the default", func(t *testing.T) {
		recommended := cat.Recommend(candidates, nil, 0)

		seen := make(map[string]bool)
		for _, r := range recommended {
			seen[r.DiseaseID] = true
		}
		assert.True(t, seen["D003"])
	})

	t.Run("empty candidates recommend nothing", func(t *testing.T) {
		assert.Empty(t, cat.Recommend(nil, nil, 3))
	})
}
