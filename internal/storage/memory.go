package storage

import (
	"sync"

	"github.com/olehkaliuzhnyi/bookstore-demo/pkg/models"
)

// MemoryOperationStore is an in-memory OperationStore.
type MemoryOperationStore struct {
	mu    sync.RWMutex
	byID  map[string]*models.Operation
	order []string
}

func NewMemoryOperationStore() *MemoryOperationStore {
	return &MemoryOperationStore{byID: make(map[string]*models.Operation)}
}

func (s *MemoryOperationStore) Record(op *models.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[op.ID]; !exists {
		s.order = append(s.order, op.ID)
	}
	s.byID[op.ID] = op
	return nil
}

func (s *MemoryOperationStore) Get(id string) (*models.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id], nil
}

func (s *MemoryOperationStore) List() ([]models.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Operation, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, *s.byID[id])
	}
	return result, nil
}
