package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/contactsbook/contacts-api/internal/domain"
)

func newPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return mock
}

const userSelectCols = `SELECT id, username, email, hashed_password, is_active, is_verified, created_at, avatar_url, role, refresh_token FROM users`

func userRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "username", "email", "hashed_password", "is_active",
		"is_verified", "created_at", "avatar_url", "role", "refresh_token",
	})
}

func TestPostgresUserRepository_Create(t *testing.T) {
	mock := newPool(t)
	defer mock.Close()
	r := NewPostgresUserRepository(mock)
	ctx := context.Background()

	u := &domain.User{
		Username:       "alice",
		Email:          "alice@example.com",
		HashedPassword: "hash",
		IsActive:       true,
		Role:           domain.RoleUser,
	}

	created := time.Now()
	mock.ExpectQuery(`INSERT INTO users \(username, email, hashed_password, is_active, is_verified, role\)`).
		WithArgs(u.Username, u.Email, u.HashedPassword, u.IsActive, u.IsVerified, u.Role).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))
	require.NoError(t, r.Create(ctx, u))
	require.Equal(t, int64(7), u.ID)
	require.Equal(t, created, u.CreatedAt)

	mock.ExpectQuery(`INSERT INTO users \(username, email, hashed_password, is_active, is_verified, role\)`).
		WithArgs(u.Username, u.Email, u.HashedPassword, u.IsActive, u.IsVerified, u.Role).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	err := r.Create(ctx, u)
	require.ErrorIs(t, err, ErrDuplicateEmail)

	// Both unique columns surface the same constraint code; a taken
	// username with a fresh email maps the same way.
	dup := &domain.User{
		Username:       "alice",
		Email:          "alice2@example.com",
		HashedPassword: "hash",
		IsActive:       true,
		Role:           domain.RoleUser,
	}
	mock.ExpectQuery(`INSERT INTO users \(username, email, hashed_password, is_active, is_verified, role\)`).
		WithArgs(dup.Username, dup.Email, dup.HashedPassword, dup.IsActive, dup.IsVerified, dup.Role).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})
	err = r.Create(ctx, dup)
	require.ErrorIs(t, err, ErrDuplicateEmail)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_GetByID(t *testing.T) {
	mock := newPool(t)
	defer mock.Close()
	r := NewPostgresUserRepository(mock)
	ctx := context.Background()

	avatar := "https://cdn.example.com/a.png"
	mock.ExpectQuery(userSelectCols + ` WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(userRows().AddRow(
			int64(42), "alice", "alice@example.com", "hash", true,
			true, time.Now(), &avatar, domain.RoleUser, (*string)(nil),
		))
	u, err := r.GetByID(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, int64(42), u.ID)
	require.Equal(t, "alice@example.com", u.Email)
	require.NotNil(t, u.AvatarURL)
	require.Nil(t, u.RefreshToken)

	// Absent rows map to a nil user, not an error.
	mock.ExpectQuery(userSelectCols + ` WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(userRows())
	u, err = r.GetByID(ctx, 99)
	require.NoError(t, err)
	require.Nil(t, u)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_GetByEmail(t *testing.T) {
	mock := newPool(t)
	defer mock.Close()
	r := NewPostgresUserRepository(mock)
	ctx := context.Background()

	mock.ExpectQuery(userSelectCols + ` WHERE email = \$1`).
		WithArgs("bob@example.com").
		WillReturnRows(userRows().AddRow(
			int64(3), "bob", "bob@example.com", "hash", true,
			false, time.Now(), (*string)(nil), domain.RoleUser, (*string)(nil),
		))
	u, err := r.GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	require.Equal(t, "bob", u.Username)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_ExistsByEmail(t *testing.T) {
	mock := newPool(t)
	defer mock.Close()
	r := NewPostgresUserRepository(mock)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE email = \$1\)`).
		WithArgs("bob@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	exists, err := r.ExistsByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE email = \$1\)`).
		WithArgs("nobody@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	exists, err = r.ExistsByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_Updates(t *testing.T) {
	mock := newPool(t)
	defer mock.Close()
	r := NewPostgresUserRepository(mock)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE users SET avatar_url = \$2 WHERE id = \$1`).
		WithArgs(int64(1), "https://cdn.example.com/a.png").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.UpdateAvatar(ctx, 1, "https://cdn.example.com/a.png"))

	mock.ExpectExec(`UPDATE users SET refresh_token = \$2 WHERE id = \$1`).
		WithArgs(int64(1), "tok").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.UpdateRefreshToken(ctx, 1, "tok"))

	mock.ExpectExec(`UPDATE users SET hashed_password = \$2 WHERE id = \$1`).
		WithArgs(int64(1), "newhash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.UpdateHashedPassword(ctx, 1, "newhash"))

	mock.ExpectExec(`UPDATE users SET is_verified = TRUE WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.MarkVerified(ctx, 1))

	require.NoError(t, mock.ExpectationsWereMet())
}
