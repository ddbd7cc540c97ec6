package domain

import "time"

// Contact is an address book entry owned by a single user.
type Contact struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phone_number"`
	Birthday       time.Time `json:"birthday"`
	AdditionalData *string   `json:"additional_data,omitempty"`
}

// ContactFilter narrows contact listings. Empty fields are ignored;
// string matches are case-insensitive substring matches.
type ContactFilter struct {
	FirstName string
	LastName  string
	Email     string
	Skip      int
	Limit     int
}
