package repositories

import (
	"fmt"
	"sync"

	"github.com/sqless-io/sqless-engine/pkg/apperrors"
	"github.com/sqless-io/sqless-engine/pkg/models"
)

// SessionRegistry owns the lifetime of resolution sessions and serializes
// mutation. Core engine components are lock-free and pure; any caller that
// mutates a session must do so inside WithSession so that interleaved
// request handlers cannot corrupt the clarify/gate/select/render sequence.
type SessionRegistry interface {
	// Put registers a new session.
	Put(session *models.Session)

	// Get returns a session by id for read-only use.
	Get(sessionID string) (*models.Session, error)

	// WithSession runs fn with the session held under its per-session
	// lock. Returns ErrNotFound (wrapped) for unknown ids.
	WithSession(sessionID string, fn func(*models.Session) error) error
}

type sessionEntry struct {
	mu      sync.Mutex
	session *models.Session
}

type memorySessionRegistry struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

// NewMemorySessionRegistry creates an empty in-memory session registry.
// No expiry policy is applied; sessions live for the process lifetime.
func NewMemorySessionRegistry() SessionRegistry {
	return &memorySessionRegistry{entries: make(map[string]*sessionEntry)}
}

var _ SessionRegistry = (*memorySessionRegistry)(nil)

func (r *memorySessionRegistry) Put(session *models.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[session.SessionID] = &sessionEntry{session: session}
}

func (r *memorySessionRegistry) Get(sessionID string) (*models.Session, error) {
	r.mu.RLock()
	entry, ok := r.entries[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, apperrors.ErrNotFound)
	}
	return entry.session, nil
}

func (r *memorySessionRegistry) WithSession(sessionID string, fn func(*models.Session) error) error {
	r.mu.RLock()
	entry, ok := r.entries[sessionID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, apperrors.ErrNotFound)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.session)
}
