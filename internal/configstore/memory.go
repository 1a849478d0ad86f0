package configstore

import (
	"context"
	"sync"
)

// MemoryStore keeps namespaces in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

func (s *MemoryStore) GetAll(_ context.Context, namespace string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMap(s.data[namespace]), nil
}

func (s *MemoryStore) ReplaceAll(_ context.Context, namespace string, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[namespace] = copyMap(values)
	return nil
}

func (s *MemoryStore) Destroy(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, namespace)
	return nil
}

// Namespaces lists the namespaces currently held.
func (s *MemoryStore) Namespaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for ns := range s.data {
		out = append(out, ns)
	}
	return out
}
