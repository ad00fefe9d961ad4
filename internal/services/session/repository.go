package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/unifiedui/canvas-gateway/internal/domain/models"
)

// Repository stores sessions.  All methods must be safe for concurrent use.
// Implementations hand out copies so that no caller shares the stored
// credential bytes.
type Repository interface {
	// Insert stores a new session.  It fails if the id is already taken.
	Insert(ctx context.Context, s *models.Session) error

	// Get returns a copy of the session, or nil if it does not exist.
	Get(ctx context.Context, id string) (*models.Session, error)

	// Touch sets LastUsedAt.  It returns false if the session does not
	// exist.
	Touch(ctx context.Context, id string, at time.Time) (bool, error)

	// Delete wipes and removes the session.  It returns false if the
	// session did not exist.
	Delete(ctx context.Context, id string) (bool, error)

	// List returns copies of all stored sessions.
	List(ctx context.Context) ([]*models.Session, error)

	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int, error)
}

// MemoryRepository is the in-process Repository.  A single mutex guards the
// whole table.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]*models.Session),
	}
}

// Insert implements Repository.
func (r *MemoryRepository) Insert(_ context.Context, s *models.Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("session: missing session id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; ok {
		return fmt.Errorf("session: duplicate session id")
	}

	r.sessions[s.ID] = s.Clone()
	return nil
}

// Get implements Repository.
func (r *MemoryRepository) Get(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

// Touch implements Repository.
func (r *MemoryRepository) Touch(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false, nil
	}
	s.LastUsedAt = at
	return true, nil
}

// Delete implements Repository.
func (r *MemoryRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false, nil
	}
	s.Wipe()
	delete(r.sessions, id)
	return true, nil
}

// List implements Repository.
func (r *MemoryRepository) List(_ context.Context) ([]*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Clone())
	}
	return out, nil
}

// Count implements Repository.
func (r *MemoryRepository) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions), nil
}
