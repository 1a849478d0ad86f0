// Package accounts stores mailbox and SMTP account records (table accounts).
package accounts

import (
	"context"

	"github.com/dmitrijs2005/mailkeeper/internal/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) error
	Get(ctx context.Context, id int64) (*models.Account, error)
	ListByIdentity(ctx context.Context, identityID int64) ([]*models.Account, error)
	// Update saves settings, backend selection and activity fields.
	Update(ctx context.Context, account *models.Account) error
	// UpdateActivity saves only the error counter and activity timestamps.
	UpdateActivity(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id int64) error
}
