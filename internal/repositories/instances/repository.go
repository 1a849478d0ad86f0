// Package instances stores OAuth2 client configurations
// (table oauth2_instances).
package instances

import (
	"context"

	"github.com/dmitrijs2005/mailkeeper/internal/models"
)

type Repository interface {
	// Get returns common.ErrNotFound for an unknown id.
	Get(ctx context.Context, id string) (*models.OAuth2Instance, error)
	Create(ctx context.Context, inst *models.OAuth2Instance) error
	Update(ctx context.Context, inst *models.OAuth2Instance) error
	Delete(ctx context.Context, id string) error
}
