package state

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[NodeKey]WebhookRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: map[NodeKey]WebhookRecord{}}
}

func (s *MemoryStore) Load(ctx context.Context, key NodeKey) (WebhookRecord, error) {
	if err := key.Validate(); err != nil {
		return WebhookRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[key], nil
}

func (s *MemoryStore) Save(ctx context.Context, key NodeKey, rec WebhookRecord) error {
	if err := key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = rec
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, key NodeKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
