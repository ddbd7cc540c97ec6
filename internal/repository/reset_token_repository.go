package repository

import (
	"context"

	"github.com/contactsbook/contacts-api/internal/domain"
)

// ResetTokenRepository is the persistent store for single-use password
// reset tokens. FindByToken returns (nil, nil) when no row matches;
// Delete of an absent token is a no-op.
type ResetTokenRepository interface {
	Insert(ctx context.Context, token *domain.PasswordResetToken) error
	FindByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error)
	FindByEmail(ctx context.Context, email string) (*domain.PasswordResetToken, error)
	Delete(ctx context.Context, token string) error
}
