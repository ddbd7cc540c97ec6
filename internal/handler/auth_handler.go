package handler

import (
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/contactsbook/contacts-api/internal/dto"
	"github.com/contactsbook/contacts-api/internal/middleware"
	"github.com/contactsbook/contacts-api/internal/service"
	"github.com/contactsbook/contacts-api/pkg/response"
)

// maxAvatarSize caps avatar uploads at 5 MB.
const maxAvatarSize = 5 << 20

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles user registration
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if valid, msg := req.ValidateEmail(); !valid {
		response.BadRequest(c, msg)
		return
	}
	if valid, msg := req.ValidatePassword(); !valid {
		response.BadRequest(c, msg)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			response.Conflict(c, "Account already exists")
			return
		}
		response.InternalError(c, err)
		return
	}

	// Verification is best effort; registration already committed.
	_ = h.authService.SendVerificationEmail(c.Request.Context(), user)

	response.Created(c, dto.NewUserResponse(user))
}

// Login handles user login
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "Invalid email or password")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.Success(c, pair)
}

// Refresh handles token refresh
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "Invalid or expired refresh token")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.Success(c, pair)
}

// RequestVerification re-sends a verification email. Unknown or
// already-verified addresses get the same response as known ones.
// POST /api/v1/auth/request-verification
func (h *AuthHandler) RequestVerification(c *gin.Context) {
	var req dto.VerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.RequestVerification(c.Request.Context(), req.Email); err != nil {
		response.InternalError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Check your email for confirmation link"})
}

// VerifyEmail confirms the address carried by the token.
// GET /api/v1/auth/verify?token=...
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.BadRequest(c, "Token is required")
		return
	}

	if err := h.authService.VerifyEmail(c.Request.Context(), token); err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			response.BadRequest(c, "Invalid or expired token")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Email confirmed"})
}

// RequestPasswordReset emails a reset link. The response never reveals
// whether the address has an account.
// POST /api/v1/auth/password-reset/request
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req dto.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		response.InternalError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "If the account exists, a reset link has been sent"})
}

// ConfirmPasswordReset consumes a reset token and sets the new password.
// POST /api/v1/auth/password-reset/confirm
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req dto.PasswordResetConfirm
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if valid, msg := req.Validate(); !valid {
		response.BadRequest(c, msg)
		return
	}

	err := h.authService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenNotFound), errors.Is(err, service.ErrTokenExpired):
			response.BadRequest(c, "Invalid or expired token")
		case errors.Is(err, service.ErrUserNotFound):
			response.BadRequest(c, "Invalid or expired token")
		default:
			response.InternalError(c, err)
		}
		return
	}

	response.Success(c, gin.H{"message": "Password has been reset"})
}

// Me returns current user info
// GET /api/v1/users/me
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "Could not validate credentials")
		return
	}
	response.Success(c, dto.NewUserResponse(user))
}

// UploadAvatar stores a new avatar image for the current user.
// PATCH /api/v1/users/me/avatar
func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "Could not validate credentials")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "A file upload is required")
		return
	}
	if fileHeader.Size > maxAvatarSize {
		response.BadRequest(c, "File exceeds the 5MB limit")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.BadRequest(c, "Only image uploads are accepted")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAvatarSize))
	if err != nil {
		response.InternalError(c, err)
		return
	}

	updated, err := h.authService.UpdateAvatar(c.Request.Context(), user.ID, data, contentType)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	response.Success(c, dto.NewUserResponse(updated))
}
