package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/contactsbook/contacts-api/internal/domain"
)

// PostgresResetTokenRepository implements ResetTokenRepository using
// PostgreSQL.
type PostgresResetTokenRepository struct {
	pool PgxPool
}

// NewPostgresResetTokenRepository creates a new
// PostgresResetTokenRepository.
func NewPostgresResetTokenRepository(pool PgxPool) *PostgresResetTokenRepository {
	return &PostgresResetTokenRepository{pool: pool}
}

const resetTokenColumns = `id, email, token, expires_at, created_at`

func scanResetToken(row pgx.Row) (*domain.PasswordResetToken, error) {
	t := &domain.PasswordResetToken{}
	err := row.Scan(&t.ID, &t.Email, &t.Token, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// Insert persists a new reset token and fills in the generated id and
// creation timestamp.
func (r *PostgresResetTokenRepository) Insert(ctx context.Context, token *domain.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (email, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	return r.pool.QueryRow(ctx, query, token.Email, token.Token, token.ExpiresAt).
		Scan(&token.ID, &token.CreatedAt)
}

// FindByToken retrieves a reset token by its token value.
func (r *PostgresResetTokenRepository) FindByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error) {
	query := `SELECT ` + resetTokenColumns + ` FROM password_reset_tokens WHERE token = $1`
	return scanResetToken(r.pool.QueryRow(ctx, query, token))
}

// FindByEmail retrieves the reset token associated with an email, if
// any.
func (r *PostgresResetTokenRepository) FindByEmail(ctx context.Context, email string) (*domain.PasswordResetToken, error) {
	query := `SELECT ` + resetTokenColumns + ` FROM password_reset_tokens WHERE email = $1`
	return scanResetToken(r.pool.QueryRow(ctx, query, email))
}

// Delete removes a reset token. Deleting an absent token is a no-op.
func (r *PostgresResetTokenRepository) Delete(ctx context.Context, token string) error {
	query := `DELETE FROM password_reset_tokens WHERE token = $1`
	_, err := r.pool.Exec(ctx, query, token)
	return err
}
