package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMapper(t *testing.T) *Mapper {
	t.Helper()
	m, err := New()
	require.NoError(t, err)
	return m
}

func TestMatchSymptom(t *testing.T) {
	m := newMapper(t)

	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"fever", "fever", true},
		{"FEVER", "fever", true},
		{"  chest pain  ", "chest_pain", true},
		{"shortness of breath", "shortness_of_breath", true},
		{"chest_pain", "chest_pain", true},
		{"elbow pain", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := m.MatchSymptom(tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestExtractSymptoms(t *testing.T) {
	m := newMapper(t)

	t.Run("keyword scan over free text", func(t *testing.T) {
		got := m.ExtractSymptoms("High fever for three days with headache and joint pain")
		assert.Contains(t, got, "fever")
		assert.Contains(t, got, "headache")
		assert.Contains(t, got, "joint_pain")
	})

	t.Run("no duplicates", func(t *testing.T) {
		got := m.ExtractSymptoms("fever, fever and more fever")
		count := 0
		for _, s := range got {
			if s == "fever" {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("comma fallback when nothing is recognized", func(t *testing.T) {
		got := m.ExtractSymptoms("dor de cabeca, febre alta")
		assert.Equal(t, []string{"dor_de_cabeca", "febre_alta"}, got)
	})
}

func TestGetCandidates(t *testing.T) {
	m := newMapper(t)

	t.Run("overlap scoring ranks best match first", func(t *testing.T) {
		// Malaria lists all three; Dengue only fever and headache.
		candidates := m.GetCandidates([]string{"fever", "chills", "sweating"}, 0)
		require.NotEmpty(t, candidates)
		assert.Equal(t, "D002", candidates[0].DiseaseID)
		assert.Equal(t, "Malaria", candidates[0].Name)
		assert.ElementsMatch(t, []string{"fever", "chills", "sweating"}, candidates[0].MatchingSymptoms)
	})

	t.Run("probabilities normalize to one", func(t *testing.T) {
		candidates := m.GetCandidates([]string{"fever", "cough", "fatigue"}, 0)
		var total float64
		for _, c := range candidates {
			total += c.BaseProbability
		}
		assert.InDelta(t, 1.0, total, 0.005)
	})

	t.Run("topK caps the differential", func(t *testing.T) {
		candidates := m.GetCandidates([]string{"fever", "headache", "fatigue", "cough"}, 2)
		assert.Len(t, candidates, 2)
	})

	t.Run("unknown symptoms produce no candidates", func(t *testing.T) {
		assert.Empty(t, m.GetCandidates([]string{"glowing"}, 0))
	})

	t.Run("spaced symptom forms are matched", func(t *testing.T) {
		candidates := m.GetCandidates([]string{"chest pain", "shortness of breath"}, 0)
		require.NotEmpty(t, candidates)
		// Pneumothorax lists exactly these two symptoms.
		assert.Equal(t, "D010", candidates[0].DiseaseID)
	})
}

func TestDiseaseName(t *testing.T) {
	m := newMapper(t)

	assert.Equal(t, "Dengue", m.DiseaseName("D001"))
	assert.Equal(t, "", m.DiseaseName("D999"))
}

func TestLookup(t *testing.T) {
	m := newMapper(t)

	info, ok := m.Lookup("D008")
	require.True(t, ok)
	assert.Equal(t, "Pulmonary Mass", info.Name)
	assert.Equal(t, "Oncology", info.Category)
	assert.Equal(t, 5, info.Severity)

	_, ok = m.Lookup("D999")
	assert.False(t, ok)
}
