package validation

import (
	"sync"

	"Pantry-Pipeline-Backend/domain"
	"Pantry-Pipeline-Backend/entities"

	"github.com/google/uuid"
)

// SessionRegistry holds at most one live engine per receipt. Sessions are
// ephemeral: created when recognition completes, discarded after a
// successful commit. Nothing in here is persisted; a restart rebuilds
// sessions from the stored line items on demand.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Engine
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[uuid.UUID]*Engine),
	}
}

// Create replaces any existing session for the receipt.
func (r *SessionRegistry) Create(receiptID uuid.UUID, items []*entities.DetectedLineItem, threshold float64) *Engine {
	engine := NewReviewEngine(receiptID, items, threshold)

	r.mu.Lock()
	r.sessions[receiptID] = engine
	r.mu.Unlock()
	return engine
}

func (r *SessionRegistry) Get(receiptID uuid.UUID) (*Engine, error) {
	r.mu.RLock()
	engine, ok := r.sessions[receiptID]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return engine, nil
}

func (r *SessionRegistry) Remove(receiptID uuid.UUID) {
	r.mu.Lock()
	delete(r.sessions, receiptID)
	r.mu.Unlock()
}
