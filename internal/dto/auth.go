package dto

import (
	"regexp"
	"time"

	"github.com/contactsbook/contacts-api/internal/domain"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username" binding:"required,min=2,max=64"`
	Password string `json:"password" binding:"required"`
}

// ValidateEmail validates the email format.
func (r *RegisterRequest) ValidateEmail() (bool, string) {
	if !emailRegex.MatchString(r.Email) {
		return false, "Invalid email format"
	}
	return true, ""
}

// ValidatePassword validates password length. Bcrypt truncates input
// at 72 bytes, so longer passwords are rejected outright.
func (r *RegisterRequest) ValidatePassword() (bool, string) {
	if len(r.Password) < 8 {
		return false, "Password must be at least 8 characters"
	}
	if len(r.Password) > 72 {
		return false, "Password must not exceed 72 characters"
	}
	return true, ""
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenPair is the response carrying a freshly issued token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// PasswordResetRequest asks for a password reset link.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required"`
}

// VerificationRequest asks for a fresh verification email.
type VerificationRequest struct {
	Email string `json:"email" binding:"required"`
}

// PasswordResetConfirm submits a reset token with the new password.
type PasswordResetConfirm struct {
	Token              string `json:"token" binding:"required"`
	NewPassword        string `json:"new_password" binding:"required"`
	ConfirmNewPassword string `json:"confirm_new_password" binding:"required"`
}

// Validate checks the new password and its confirmation.
func (r *PasswordResetConfirm) Validate() (bool, string) {
	if r.NewPassword != r.ConfirmNewPassword {
		return false, "Passwords do not match"
	}
	if len(r.NewPassword) < 8 {
		return false, "Password must be at least 8 characters"
	}
	if len(r.NewPassword) > 72 {
		return false, "Password must not exceed 72 characters"
	}
	return true, ""
}

// UserResponse exposes safe user fields; the password hash and refresh
// token never leave the service.
type UserResponse struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	AvatarURL  *string   `json:"avatar_url"`
	Role       string    `json:"role"`
}

// NewUserResponse converts a domain user into its response shape.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
		AvatarURL:  u.AvatarURL,
		Role:       u.Role,
	}
}
