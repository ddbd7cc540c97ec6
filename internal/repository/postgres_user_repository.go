package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/contactsbook/contacts-api/internal/domain"
)

// PostgresUserRepository implements UserRepository using PostgreSQL.
type PostgresUserRepository struct {
	pool PgxPool
}

// NewPostgresUserRepository creates a new PostgresUserRepository.
func NewPostgresUserRepository(pool PgxPool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `id, username, email, hashed_password, is_active, is_verified, created_at, avatar_url, role, refresh_token`

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.HashedPassword,
		&user.IsActive,
		&user.IsVerified,
		&user.CreatedAt,
		&user.AvatarURL,
		&user.Role,
		&user.RefreshToken,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// Create inserts a new user and fills in the generated id and creation
// timestamp.
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (username, email, hashed_password, is_active, is_verified, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.HashedPassword,
		user.IsActive,
		user.IsVerified,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetByID retrieves a user by id.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail retrieves a user by email.
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// ExistsByEmail checks if a user exists with the given email.
func (r *PostgresUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, email).Scan(&exists)
	return exists, err
}

// UpdateAvatar stores a new avatar URL for the user.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id int64, avatarURL string) error {
	query := `UPDATE users SET avatar_url = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, avatarURL)
	return err
}

// UpdateRefreshToken replaces the stored refresh token, invalidating
// any previously issued one.
func (r *PostgresUserRepository) UpdateRefreshToken(ctx context.Context, id int64, refreshToken string) error {
	query := `UPDATE users SET refresh_token = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, refreshToken)
	return err
}

// UpdateHashedPassword overwrites the stored password hash.
func (r *PostgresUserRepository) UpdateHashedPassword(ctx context.Context, id int64, hashedPassword string) error {
	query := `UPDATE users SET hashed_password = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, hashedPassword)
	return err
}

// MarkVerified flips the verified flag after a successful email
// verification.
func (r *PostgresUserRepository) MarkVerified(ctx context.Context, id int64) error {
	query := `UPDATE users SET is_verified = TRUE WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
