package instances

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
)

// MemoryRepository is used by tests and by the in-memory repository manager.
type MemoryRepository struct {
	mu    sync.Mutex
	items map[string]models.OAuth2Instance
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]models.OAuth2Instance)}
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*models.OAuth2Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.items[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	inst.Scopes = append([]string(nil), inst.Scopes...)
	return &inst, nil
}

func (r *MemoryRepository) Create(_ context.Context, inst *models.OAuth2Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[inst.ID]; ok {
		return common.ErrAlreadyExists
	}
	now := time.Now().UTC()
	inst.CreatedAt, inst.UpdatedAt = now, now
	r.items[inst.ID] = *inst
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, inst *models.OAuth2Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.items[inst.ID]
	if !ok {
		return common.ErrNotFound
	}
	inst.Backend = old.Backend
	inst.CreatedAt = old.CreatedAt
	inst.UpdatedAt = time.Now().UTC()
	r.items[inst.ID] = *inst
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// Len is the number of stored instances.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
