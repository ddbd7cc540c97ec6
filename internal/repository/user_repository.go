package repository

import (
	"context"
	"errors"

	"github.com/contactsbook/contacts-api/internal/domain"
)

// ErrDuplicateEmail is returned by Create when the email or username is
// already taken.
var ErrDuplicateEmail = errors.New("email or username already registered")

// UserRepository is the persistent user store. Lookups return
// (nil, nil) when no row matches.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateAvatar(ctx context.Context, id int64, avatarURL string) error
	UpdateRefreshToken(ctx context.Context, id int64, refreshToken string) error
	UpdateHashedPassword(ctx context.Context, id int64, hashedPassword string) error
	MarkVerified(ctx context.Context, id int64) error
}
