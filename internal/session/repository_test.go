package session

import (
	"sync"
	"testing"

	"github.com/diagnomed/ddx/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedSession() *models.Session {
	return &models.Session{
		SessionID: "sess-1",
		Symptoms:  []string{"fever", "cough"},
		Region:    "Global",
		Candidates: []models.Candidate{
			{DiseaseID: "D004", Name: "Influenza", BaseProbability: 0.6},
		},
		TestResults: map[string]models.TestResult{},
		Status:      models.StatusInProgress,
	}
}

func TestMemoryRepository_GetUnknown(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	err = repo.Update("missing", func(*models.Session) error { return nil })
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryRepository_GetReturnsSnapshot(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Put(storedSession())

	first, err := repo.Get("sess-1")
	require.NoError(t, err)

	// Mutating the snapshot must not leak into the stored session.
	first.Symptoms[0] = "mutated"
	first.Candidates[0].BaseProbability = 0.99
	first.TestResults["T001"] = models.TestResult{TestName: "injected"}

	second, err := repo.Get("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "fever", second.Symptoms[0])
	assert.InDelta(t, 0.6, second.Candidates[0].BaseProbability, 1e-9)
	assert.Empty(t, second.TestResults)
}

func TestMemoryRepository_UpdateMutatesStoredSession(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Put(storedSession())

	err := repo.Update("sess-1", func(s *models.Session) error {
		s.TotalCost = 42
		s.Status = models.StatusHighConfidence
		return nil
	})
	require.NoError(t, err)

	got, err := repo.Get("sess-1")
	require.NoError(t, err)
	assert.InDelta(t, 42, got.TotalCost, 1e-9)
	assert.Equal(t, models.StatusHighConfidence, got.Status)
}

func TestMemoryRepository_ConcurrentUpdatesAreAtomic(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Put(storedSession())

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = repo.Update("sess-1", func(s *models.Session) error {
				s.TotalCost++
				s.CompletedTests = append(s.CompletedTests, "T")
				return nil
			})
		}()
	}
	wg.Wait()

	got, err := repo.Get("sess-1")
	require.NoError(t, err)
	assert.InDelta(t, workers, got.TotalCost, 1e-9)
	assert.Len(t, got.CompletedTests, workers)
}

func TestMemoryRepository_Remove(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Put(storedSession())

	repo.Remove("sess-1")
	_, err := repo.Get("sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Removing again is a no-op.
	repo.Remove("sess-1")
}
