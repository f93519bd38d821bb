package repository

import (
	"context"

	"bookshelf/internal/domain"
)

// UserRepository defines persistence operations for User entities.
//
// GetByUsername matches exactly and backs the login path; GetByUsernameFold
// matches case-insensitively and backs only the public profile lookup.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByUsernameFold(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ListUsernames(ctx context.Context) ([]string, error)
}
