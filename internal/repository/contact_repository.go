package repository

import (
	"context"

	"github.com/contactsbook/contacts-api/internal/domain"
)

// ContactRepository is the persistent contact store. All operations are
// scoped by the owning user id; lookups return (nil, nil) when no row
// matches.
type ContactRepository interface {
	Create(ctx context.Context, contact *domain.Contact) error
	GetByID(ctx context.Context, id, userID int64) (*domain.Contact, error)
	List(ctx context.Context, userID int64, filter domain.ContactFilter) ([]*domain.Contact, error)
	ListAll(ctx context.Context, userID int64) ([]*domain.Contact, error)
	Update(ctx context.Context, contact *domain.Contact) error
	Delete(ctx context.Context, id, userID int64) (bool, error)
}
