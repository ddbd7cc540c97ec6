package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/contactsbook/contacts-api/internal/domain"
)

// PostgresContactRepository implements ContactRepository using
// PostgreSQL.
type PostgresContactRepository struct {
	pool PgxPool
}

// NewPostgresContactRepository creates a new PostgresContactRepository.
func NewPostgresContactRepository(pool PgxPool) *PostgresContactRepository {
	return &PostgresContactRepository{pool: pool}
}

const contactColumns = `id, user_id, first_name, last_name, email, phone_number, birthday, additional_data`

func scanContact(row pgx.Row) (*domain.Contact, error) {
	c := &domain.Contact{}
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.PhoneNumber,
		&c.Birthday,
		&c.AdditionalData,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func collectContacts(rows pgx.Rows) ([]*domain.Contact, error) {
	defer rows.Close()
	contacts := []*domain.Contact{}
	for rows.Next() {
		c := &domain.Contact{}
		err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.FirstName,
			&c.LastName,
			&c.Email,
			&c.PhoneNumber,
			&c.Birthday,
			&c.AdditionalData,
		)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// Create inserts a new contact and fills in the generated id.
func (r *PostgresContactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	query := `
		INSERT INTO contacts (user_id, first_name, last_name, email, phone_number, birthday, additional_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return r.pool.QueryRow(ctx, query,
		contact.UserID,
		contact.FirstName,
		contact.LastName,
		contact.Email,
		contact.PhoneNumber,
		contact.Birthday,
		contact.AdditionalData,
	).Scan(&contact.ID)
}

// GetByID retrieves a contact by id, scoped to its owner.
func (r *PostgresContactRepository) GetByID(ctx context.Context, id, userID int64) (*domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND user_id = $2`
	return scanContact(r.pool.QueryRow(ctx, query, id, userID))
}

// List returns the user's contacts with optional case-insensitive
// substring filters and skip/limit pagination.
func (r *PostgresContactRepository) List(ctx context.Context, userID int64, filter domain.ContactFilter) ([]*domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE user_id = $1`
	args := []any{userID}

	if filter.FirstName != "" {
		args = append(args, "%"+filter.FirstName+"%")
		query += fmt.Sprintf(" AND first_name ILIKE $%d", len(args))
	}
	if filter.LastName != "" {
		args = append(args, "%"+filter.LastName+"%")
		query += fmt.Sprintf(" AND last_name ILIKE $%d", len(args))
	}
	if filter.Email != "" {
		args = append(args, "%"+filter.Email+"%")
		query += fmt.Sprintf(" AND email ILIKE $%d", len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, filter.Skip, limit)
	query += fmt.Sprintf(" ORDER BY id OFFSET $%d LIMIT $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectContacts(rows)
}

// ListAll returns every contact belonging to the user, unfiltered.
func (r *PostgresContactRepository) ListAll(ctx context.Context, userID int64) ([]*domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE user_id = $1 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return collectContacts(rows)
}

// Update rewrites all mutable fields of the contact.
func (r *PostgresContactRepository) Update(ctx context.Context, contact *domain.Contact) error {
	query := `
		UPDATE contacts
		SET first_name = $3, last_name = $4, email = $5, phone_number = $6, birthday = $7, additional_data = $8
		WHERE id = $1 AND user_id = $2
	`
	_, err := r.pool.Exec(ctx, query,
		contact.ID,
		contact.UserID,
		contact.FirstName,
		contact.LastName,
		contact.Email,
		contact.PhoneNumber,
		contact.Birthday,
		contact.AdditionalData,
	)
	return err
}

// Delete removes a contact, reporting whether a row was deleted.
func (r *PostgresContactRepository) Delete(ctx context.Context, id, userID int64) (bool, error) {
	query := `DELETE FROM contacts WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
