package domain

import "time"

// Role values stored in users.role
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the identity record owned by the persistent store.
// HashedPassword and RefreshToken are never serialized outward.
type User struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	IsActive       bool       `json:"is_active"`
	IsVerified     bool       `json:"is_verified"`
	CreatedAt      time.Time  `json:"created_at"`
	AvatarURL      *string    `json:"avatar_url"`
	Role           string     `json:"role"`
	RefreshToken   *string    `json:"-"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
