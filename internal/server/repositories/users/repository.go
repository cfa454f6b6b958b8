package users

import (
	"context"

	"github.com/univx/authcore/internal/server/models"
)

// Repository is the capability set the credential store needs from user
// storage. Implementations map storage failures to common sentinel errors.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByEmailForUpdate locks the user's row for the rest of the enclosing
	// transaction so concurrent logins cannot interleave history updates.
	GetByEmailForUpdate(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateActivity(ctx context.Context, id string, activity []models.ActivityEntry) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
}
