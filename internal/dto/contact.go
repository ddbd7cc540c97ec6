package dto

import (
	"time"

	"github.com/contactsbook/contacts-api/internal/domain"
)

const birthdayLayout = "2006-01-02"

// ContactRequest creates a contact. Birthday is an ISO date string.
type ContactRequest struct {
	FirstName      string  `json:"first_name" binding:"required"`
	LastName       string  `json:"last_name" binding:"required"`
	Email          string  `json:"email" binding:"required"`
	PhoneNumber    string  `json:"phone_number" binding:"required"`
	Birthday       string  `json:"birthday" binding:"required"`
	AdditionalData *string `json:"additional_data"`
}

// ParseBirthday parses the birthday field.
func (r *ContactRequest) ParseBirthday() (time.Time, error) {
	return time.Parse(birthdayLayout, r.Birthday)
}

// ContactUpdate updates a contact; nil fields are left unchanged.
type ContactUpdate struct {
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	Email          *string `json:"email"`
	PhoneNumber    *string `json:"phone_number"`
	Birthday       *string `json:"birthday"`
	AdditionalData *string `json:"additional_data"`
}

// ContactResponse is the outward contact shape.
type ContactResponse struct {
	ID             int64   `json:"id"`
	UserID         int64   `json:"user_id"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	PhoneNumber    string  `json:"phone_number"`
	Birthday       string  `json:"birthday"`
	AdditionalData *string `json:"additional_data,omitempty"`
}

// NewContactResponse converts a domain contact into its response shape.
func NewContactResponse(c *domain.Contact) ContactResponse {
	return ContactResponse{
		ID:             c.ID,
		UserID:         c.UserID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Email:          c.Email,
		PhoneNumber:    c.PhoneNumber,
		Birthday:       c.Birthday.Format(birthdayLayout),
		AdditionalData: c.AdditionalData,
	}
}

// NewContactResponses converts a slice of domain contacts.
func NewContactResponses(contacts []*domain.Contact) []ContactResponse {
	out := make([]ContactResponse, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, NewContactResponse(c))
	}
	return out
}
