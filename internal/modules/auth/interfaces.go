package auth

import (
	"context"
	"time"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

// UserRepository is the subset of the user store auth needs.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByResetHash(ctx context.Context, hash string, now time.Time) (*domain.User, error)
	UpdateProfile(ctx context.Context, id int64, p repository.ProfilePatch) error
	SetPasswordReset(ctx context.Context, id int64, hash string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, id int64, passwordHash string) error
}

type TokenIssuer interface {
	GenerateToken(userID int64, role string) (string, error)
}
