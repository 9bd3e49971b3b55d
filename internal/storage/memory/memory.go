package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"budget/internal/storage"
)

// Store is an in-memory storage.KV. Data is lost when the process exits.
type Store struct {
	mu     sync.Mutex
	values map[string][]byte
	// failWrites makes every Put and Delete return this error.
	failWrites error
}

func New() *Store {
	return &Store{values: map[string][]byte{}}
}

// NewFromFiles seeds the store from <key>.json files in base, if present.
func NewFromFiles(base string) *Store {
	s := New()
	for _, key := range []string{
		storage.KeyTransactions,
		storage.KeyRecurring,
		storage.KeyMonthlyBudget,
		storage.KeyCategoryGoals,
		storage.KeyCurrency,
		storage.KeyLastRecurringCheck,
	} {
		data, err := os.ReadFile(filepath.Join(base, key+".json"))
		if err != nil {
			continue
		}
		s.values[key] = data
	}
	return s
}

// Get implements storage.KV
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put implements storage.KV
func (s *Store) Put(_ context.Context, entries ...storage.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites != nil {
		return s.failWrites
	}
	for _, e := range entries {
		s.values[e.Key] = append([]byte(nil), e.Value...)
	}
	return nil
}

// Delete implements storage.KV
func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites != nil {
		return s.failWrites
	}
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func (s *Store) Close() error { return nil }

// SetFailWrites toggles injected write failures.
func (s *Store) SetFailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = err
}
