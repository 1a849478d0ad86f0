package identities

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
)

type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]models.Identity
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[int64]models.Identity)}
}

func (r *MemoryRepository) Create(_ context.Context, identity *models.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.items {
		if strings.EqualFold(i.Email, identity.Email) {
			return common.ErrAlreadyExists
		}
	}
	r.nextID++
	now := time.Now().UTC()
	identity.ID = r.nextID
	identity.CreatedAt, identity.UpdatedAt = now, now
	r.items[identity.ID] = strip(*identity)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id int64) (*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.items[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &i, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.items {
		if strings.EqualFold(i.Email, email) {
			return &i, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *MemoryRepository) List(_ context.Context) ([]*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Identity, 0, len(r.items))
	for _, i := range r.items {
		i := i
		out = append(out, &i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
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

// strip drops the loaded account pointers before storing.
func strip(i models.Identity) models.Identity {
	i.Mailbox, i.SMTP = nil, nil
	return i
}
