package accounts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
)

type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]models.Account
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[int64]models.Account)}
}

func detach(a models.Account) models.Account {
	a.Identity = nil
	return a
}

func (r *MemoryRepository) Create(_ context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.items {
		if other.IdentityID == a.IdentityID && other.Kind == a.Kind {
			return common.ErrAlreadyExists
		}
	}
	r.nextID++
	now := time.Now().UTC()
	a.ID = r.nextID
	a.CreatedAt, a.UpdatedAt = now, now
	r.items[a.ID] = detach(*a)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id int64) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) ListByIdentity(_ context.Context, identityID int64) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Account
	for _, a := range r.items {
		if a.IdentityID == identityID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

func (r *MemoryRepository) Update(_ context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[a.ID]; !ok {
		return common.ErrNotFound
	}
	a.UpdatedAt = time.Now().UTC()
	r.items[a.ID] = detach(*a)
	return nil
}

func (r *MemoryRepository) UpdateActivity(_ context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[a.ID]
	if !ok {
		return common.ErrNotFound
	}
	stored.Errors = a.Errors
	stored.LastError = a.LastError
	stored.LastErrorAt = a.LastErrorAt
	stored.LastActivity = a.LastActivity
	r.items[a.ID] = stored
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.items, id)
	return nil
}
