package service

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes.
const (
	DefaultAccessTokenTTL  = 30 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// AccessClaims is the decoded payload of an access token.
type AccessClaims struct {
	Email     string
	UserID    int64
	ExpiresAt time.Time
}

// TokenIssuer creates and verifies signed HS256 tokens. It is pure
// given its configuration; the signing secret is process-wide and
// loaded once at startup.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer creates a TokenIssuer. Zero TTLs fall back to the
// defaults (30 minutes access, 7 days refresh).
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	if accessTTL == 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL == 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccessToken signs an access token carrying the subject email and
// numeric user id. The expiry claim is absolute, computed at issuance.
// A zero ttl uses the configured default.
func (t *TokenIssuer) IssueAccessToken(email string, userID int64, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = t.accessTTL
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": email,
		"id":  userID,
		"exp": time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(t.secret)
}

// IssueRefreshToken signs a refresh token with the stringified user id
// as subject and a "refresh" type discriminator.
func (t *TokenIssuer) IssueRefreshToken(userID int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatInt(userID, 10),
		"type": "refresh",
		"exp":  time.Now().Add(t.refreshTTL).Unix(),
	})
	return token.SignedString(t.secret)
}

// IssueVerificationToken signs an email-verification token. It carries
// only the subject email.
func (t *TokenIssuer) IssueVerificationToken(email string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": email,
	})
	return token.SignedString(t.secret)
}

// parse verifies the signature and expiry and returns the raw claims.
// Bad signature, malformed structure, and expired tokens all collapse
// to ErrInvalidToken; callers get no finer diagnostics.
func (t *TokenIssuer) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseAccessToken verifies an access token and extracts its claims.
// Fails with ErrInvalidToken when the email or user id claim is
// missing.
func (t *TokenIssuer) ParseAccessToken(tokenString string) (*AccessClaims, error) {
	claims, err := t.parse(tokenString)
	if err != nil {
		return nil, err
	}

	email, _ := claims["sub"].(string)
	id, ok := claims["id"].(float64)
	if email == "" || !ok {
		return nil, ErrInvalidToken
	}

	ac := &AccessClaims{Email: email, UserID: int64(id)}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		ac.ExpiresAt = exp.Time
	}
	return ac, nil
}

// ParseRefreshToken verifies a refresh token and returns the user id
// from its subject claim. Tokens without the "refresh" type are
// rejected.
func (t *TokenIssuer) ParseRefreshToken(tokenString string) (int64, error) {
	claims, err := t.parse(tokenString)
	if err != nil {
		return 0, err
	}

	if typ, _ := claims["type"].(string); typ != "refresh" {
		return 0, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// ParseVerificationToken verifies an email-verification token and
// returns the subject email.
func (t *TokenIssuer) ParseVerificationToken(tokenString string) (string, error) {
	claims, err := t.parse(tokenString)
	if err != nil {
		return "", err
	}
	email, _ := claims["sub"].(string)
	if email == "" {
		return "", ErrInvalidToken
	}
	return email, nil
}
