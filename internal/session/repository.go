package session

import (
	"errors"
	"sync"

	"github.com/diagnomed/ddx/pkg/models"
)

// ErrSessionNotFound reports an unknown session ID.
var ErrSessionNotFound = errors.New("session not found")

// Repository stores live diagnostic sessions. Update must provide
// read-modify-write atomicity per session: concurrent updates against the
// same session serialize, updates against different sessions do not share a
// lock.
type Repository interface {
	Put(s *models.Session)
	// Get returns a snapshot of the session; mutating it does not affect
	// the stored state.
	Get(sessionID string) (*models.Session, error)
	// Update runs fn against the live session under the session's lock.
	Update(sessionID string, fn func(*models.Session) error) error
	Remove(sessionID string)
}

type entry struct {
	mu      sync.Mutex
	session *models.Session
}

// MemoryRepository keeps sessions in process memory. Sessions live until
// removed or the process exits; there is no expiry policy.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewMemoryRepository creates an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string]*entry)}
}

// Put stores a session under its ID.
func (r *MemoryRepository) Put(s *models.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[s.SessionID] = &entry{session: s}
}

// Get returns a snapshot of the stored session.
func (r *MemoryRepository) Get(sessionID string) (*models.Session, error) {
	e, err := r.entry(sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneSession(e.session), nil
}

// Update runs fn on the live session while holding its lock.
func (r *MemoryRepository) Update(sessionID string, fn func(*models.Session) error) error {
	e, err := r.entry(sessionID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.session)
}

// Remove deletes a session. Removing an unknown ID is a no-op.
func (r *MemoryRepository) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sessionID)
}

func (r *MemoryRepository) entry(sessionID string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func cloneSession(s *models.Session) *models.Session {
	c := *s
	c.Symptoms = append([]string(nil), s.Symptoms...)
	c.Candidates = append([]models.Candidate(nil), s.Candidates...)
	c.RecommendedTests = append([]models.Test(nil), s.RecommendedTests...)
	c.CompletedTests = append([]string(nil), s.CompletedTests...)
	c.GeneticVariants = append([]string(nil), s.GeneticVariants...)
	c.FamilyHistory = append([]string(nil), s.FamilyHistory...)
	c.TestResults = make(map[string]models.TestResult, len(s.TestResults))
	for k, v := range s.TestResults {
		c.TestResults[k] = v
	}
	if s.CNNPredictions != nil {
		c.CNNPredictions = make(map[string]float64, len(s.CNNPredictions))
		for k, v := range s.CNNPredictions {
			c.CNNPredictions[k] = v
		}
	}
	return &c
}
