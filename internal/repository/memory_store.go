package repository

import (
	"sync"

	"lipa/internal/models"
)

// MemoryIntentStore keeps intents for the lifetime of the process.
type MemoryIntentStore struct {
	mu           sync.RWMutex
	intents      map[string]*models.PaymentIntent
	byCheckoutID map[string]string
	byIdemKey    map[string]string
}

func NewMemoryIntentStore() *MemoryIntentStore {
	return &MemoryIntentStore{
		intents:      make(map[string]*models.PaymentIntent),
		byCheckoutID: make(map[string]string),
		byIdemKey:    make(map[string]string),
	}
}

func (s *MemoryIntentStore) Put(intent *models.PaymentIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[intent.ID] = intent.Clone()
	return nil
}

func (s *MemoryIntentStore) GetByID(id string) (*models.PaymentIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryIntentStore) IndexByCheckoutRequestID(checkoutRequestID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byCheckoutID[checkoutRequestID] = id
	return nil
}

func (s *MemoryIntentStore) IndexByIdempotencyKey(key, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byIdemKey[key] = id
	return nil
}

func (s *MemoryIntentStore) ResolveCheckoutRequestID(checkoutRequestID string) (string, error) {
	return s.resolve(s.byCheckoutID, checkoutRequestID)
}

func (s *MemoryIntentStore) ResolveIdempotencyKey(key string) (string, error) {
	return s.resolve(s.byIdemKey, key)
}

func (s *MemoryIntentStore) resolve(index map[string]string, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := index[key]
	if !ok {
		return "", ErrIntentNotFound
	}
	return id, nil
}

// Len returns the number of stored intents.
func (s *MemoryIntentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.intents)
}
