package database

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/diagnomed/ddx/internal/session"
	"github.com/diagnomed/ddx/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDB returns a connected DB or skips if DATABASE_URL is not set.
// It also ensures migrations are run before tests.
func testDB(t *testing.T) *DB {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	err := Migrate(dbURL)
	require.NoError(t, err)

	ctx := context.Background()
	db, err := New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func TestMigrations(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	// Migrations are idempotent; MigrateDown is not run here because it
	// interferes with parallel test packages.
	err := Migrate(dbURL)
	require.NoError(t, err)
}

func testSummary(symptoms []string) session.CaseSummary {
	return session.CaseSummary{
		SessionID:  uuid.New().String(),
		Symptoms:   symptoms,
		Region:     "South Asia",
		DiseaseID:  "D001",
		Diagnosis:  "Dengue",
		Category:   "Infectious",
		Confidence: 0.82,
		Candidates: []models.Candidate{
			{DiseaseID: "D001", Name: "Dengue", BaseProbability: 0.82},
			{DiseaseID: "D002", Name: "Malaria", BaseProbability: 0.18},
		},
		TotalCost: 95,
	}
}

func TestSaveAndGetCase(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	summary := testSummary([]string{"fever", "headache", "joint_pain"})
	caseID, err := db.SaveCase(ctx, summary)
	require.NoError(t, err)
	require.NotEmpty(t, caseID)

	id, err := uuid.Parse(caseID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.DeleteCase(ctx, id) })

	c, err := db.GetCase(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, summary.SessionID, c.SessionID)
	assert.Equal(t, "Dengue", c.Diagnosis)
	assert.Equal(t, "D001", c.DiseaseID)
	assert.Equal(t, []string{"fever", "headache", "joint_pain"}, c.Symptoms)
	assert.Len(t, c.Candidates, 2)
	assert.Equal(t, "analyzed", c.Status)
	assert.InDelta(t, 0.82, c.Confidence, 1e-9)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestGetCase_NotFound(t *testing.T) {
	db := testDB(t)

	c, err := db.GetCase(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestSimilarCases(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	symptoms := []string{"fever", "headache", "joint_pain", "rash"}
	caseID, err := db.SaveCase(ctx, testSummary(symptoms))
	require.NoError(t, err)
	id, err := uuid.Parse(caseID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.DeleteCase(ctx, id) })

	t.Run("identical symptoms are found", func(t *testing.T) {
		similar, err := db.SimilarCases(ctx, symptoms, 10)
		require.NoError(t, err)

		var found bool
		for _, s := range similar {
			if s.ID == id {
				found = true
				assert.InDelta(t, 1.0, s.Similarity, 1e-6)
			}
		}
		assert.True(t, found)
	})

	t.Run("count includes stored case", func(t *testing.T) {
		n, err := db.SimilarCount(ctx, symptoms)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1)
	})

	t.Run("disjoint symptoms do not match", func(t *testing.T) {
		similar, err := db.SimilarCases(ctx, []string{"bruising", "night_sweats"}, 10)
		require.NoError(t, err)
		for _, s := range similar {
			assert.NotEqual(t, id, s.ID)
		}
	})
}

func TestListAndCountCases(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	caseID, err := db.SaveCase(ctx, testSummary([]string{"fever", "chills"}))
	require.NoError(t, err)
	id, err := uuid.Parse(caseID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.DeleteCase(ctx, id) })

	total, err := db.CountCases(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 1)

	cases, err := db.ListCases(ctx, 10, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, cases)
}

func TestSymptomEmbedding(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		a := SymptomEmbedding([]string{"fever", "cough"})
		b := SymptomEmbedding([]string{"fever", "cough"})
		assert.Equal(t, a, b)
	})

	t.Run("normalization is case and whitespace insensitive", func(t *testing.T) {
		a := SymptomEmbedding([]string{"Fever", " cough "})
		b := SymptomEmbedding([]string{"fever", "cough"})
		assert.Equal(t, a, b)
	})

	t.Run("unit length", func(t *testing.T) {
		vec := SymptomEmbedding([]string{"fever", "headache", "rash"}).Slice()
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
	})

	t.Run("empty input is the zero vector", func(t *testing.T) {
		vec := SymptomEmbedding(nil).Slice()
		for _, v := range vec {
			assert.Zero(t, v)
		}
	})
}
