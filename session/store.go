package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/opencourts/pleaflow-go/contracts"
)

// ErrNotFound indicates no journey data exists for the given ID.
var ErrNotFound = errors.New("journey not found")

// Store persists journey data keyed by journey ID.
type Store interface {
	Get(ctx context.Context, journeyID string) (contracts.JourneyData, error)
	Put(ctx context.Context, journeyID string, data contracts.JourneyData) error
	Delete(ctx context.Context, journeyID string) error
}

// NewJourneyID mints an opaque journey identifier.
func NewJourneyID() string {
	return uuid.New().String()
}

// MemoryStore is an in-memory Store. Snapshots are deep-copied through a
// JSON round-trip so callers never share mutable state with the store.
type MemoryStore struct {
	journeys map[string]contracts.JourneyData
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{journeys: make(map[string]contracts.JourneyData)}
}

// Get loads a deep copy of the journey data.
func (s *MemoryStore) Get(ctx context.Context, journeyID string) (contracts.JourneyData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.journeys[journeyID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, journeyID)
	}
	return data.Copy()
}

// Put stores a deep copy of the journey data.
func (s *MemoryStore) Put(ctx context.Context, journeyID string, data contracts.JourneyData) error {
	if data == nil {
		return fmt.Errorf("journey data cannot be nil")
	}
	snapshot, err := data.Copy()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.journeys[journeyID] = snapshot
	return nil
}

// Delete removes the journey data, typically after a successful submission
// or an explicit abandon.
func (s *MemoryStore) Delete(ctx context.Context, journeyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.journeys, journeyID)
	return nil
}
