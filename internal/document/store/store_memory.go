package store

import (
	"context"
	"sync"

	"veridoc/internal/document/models"
	"veridoc/pkg/platform/sentinel"
	"veridoc/pkg/requestcontext"
)

// InMemory is a mutex-guarded map store. Suitable for tests and single-node
// development; production deployments use Postgres.
type InMemory struct {
	mu      sync.RWMutex
	records map[string]models.DocumentMetadata
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{records: make(map[string]models.DocumentMetadata)}
}

func (s *InMemory) Save(_ context.Context, md models.DocumentMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[md.ReferenceNumber]; exists {
		return sentinel.ErrDuplicateReference
	}
	s.records[md.ReferenceNumber] = md.Clone()
	return nil
}

func (s *InMemory) GetByReference(_ context.Context, reference string) (models.DocumentMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	md, ok := s.records[reference]
	if !ok {
		return models.DocumentMetadata{}, sentinel.ErrNotFound
	}
	return md.Clone(), nil
}

func (s *InMemory) Revoke(ctx context.Context, reference, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	md, ok := s.records[reference]
	if !ok {
		return sentinel.ErrNotFound
	}
	if md.Status == models.StatusRevoked {
		return sentinel.ErrAlreadyRevoked
	}
	md.Status = models.StatusRevoked
	md.StatusChangedAt = requestcontext.Now(ctx).UTC()
	md.StatusReason = reason
	s.records[reference] = md
	return nil
}

func (s *InMemory) Health(context.Context) error { return nil }

// Tamper overwrites a holder field value in place, bypassing all invariants.
// Test hook for exercising tamper detection; no production caller exists.
func (s *InMemory) Tamper(reference, fieldName, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	md, ok := s.records[reference]
	if !ok {
		return false
	}
	for i, f := range md.HolderFields {
		if f.Name == fieldName {
			md.HolderFields[i].Value = value
			s.records[reference] = md
			return true
		}
	}
	return false
}
