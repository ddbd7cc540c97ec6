package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/contactsbook/contacts-api/internal/domain"
	"github.com/contactsbook/contacts-api/internal/service"
	"github.com/contactsbook/contacts-api/pkg/response"
)

// CurrentUserKey is the context key holding the authenticated user.
const CurrentUserKey = "current_user"

// Authenticate resolves the bearer token, enforces the active-account
// gate and stores the user in the request context. Missing or invalid
// tokens all fail with the same generic 401.
func Authenticate(auth service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "Could not validate credentials")
			c.Abort()
			return
		}

		user, err := auth.CurrentUser(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				response.Unauthorized(c, "Could not validate credentials")
			} else {
				response.InternalError(c, err)
			}
			c.Abort()
			return
		}

		if err := service.RequireActive(user); err != nil {
			response.Forbidden(c, "Inactive user")
			c.Abort()
			return
		}

		c.Set(CurrentUserKey, user)
		c.Next()
	}
}

// RequireAdmin allows only active administrators through. Must run
// after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Unauthorized(c, "Could not validate credentials")
			c.Abort()
			return
		}
		if err := service.RequireAdmin(user); err != nil {
			response.Forbidden(c, "Insufficient privileges")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user from the context, or nil.
func CurrentUser(c *gin.Context) *domain.User {
	if v, exists := c.Get(CurrentUserKey); exists {
		if user, ok := v.(*domain.User); ok {
			return user
		}
	}
	return nil
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
