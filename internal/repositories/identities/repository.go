// Package identities stores email identities (table identities).
package identities

import (
	"context"

	"github.com/dmitrijs2005/mailkeeper/internal/models"
)

type Repository interface {
	// Create returns common.ErrAlreadyExists when the address is taken.
	Create(ctx context.Context, identity *models.Identity) error
	Get(ctx context.Context, id int64) (*models.Identity, error)
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	List(ctx context.Context) ([]*models.Identity, error)
	Delete(ctx context.Context, id int64) error
}
