package users

import (
	"context"

	"github.com/silverkiwi/jobs-manager-sub002/internal/server/models"
)

// Repository abstracts user persistence.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, userName string) (*models.User, error)
}
