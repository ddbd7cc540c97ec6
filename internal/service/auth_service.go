package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/contactsbook/contacts-api/internal/cache"
	"github.com/contactsbook/contacts-api/internal/domain"
	"github.com/contactsbook/contacts-api/internal/dto"
	"github.com/contactsbook/contacts-api/internal/mailer"
	"github.com/contactsbook/contacts-api/internal/repository"
	"github.com/contactsbook/contacts-api/internal/storage"
	"github.com/contactsbook/contacts-api/pkg/telemetry"
)

// DefaultResetTokenTTL is the password-reset token validity window.
const DefaultResetTokenTTL = 15 * time.Minute

// UserCache is the session cache consumed by the token resolver. Get
// returns (nil, nil) on a miss; Set stores the projection under the
// user's own id with the cache TTL.
type UserCache interface {
	Get(ctx context.Context, userID int64) ([]byte, error)
	Set(ctx context.Context, user *cache.CachedUser) error
	Delete(ctx context.Context, userID int64) error
}

// AuthServiceConfig holds configuration for AuthService.
type AuthServiceConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ResetTokenTTL   time.Duration
	BcryptCost      int
	// VerifyURL is the base link embedded in verification emails; the
	// token is appended as a query parameter.
	VerifyURL string
	// ResetURL is the base link embedded in password-reset emails.
	ResetURL string
}

// AuthService defines the interface for authentication operations.
type AuthService interface {
	// Register creates a new user account.
	Register(ctx context.Context, req *dto.RegisterRequest) (*domain.User, error)
	// Login verifies credentials and issues a token pair.
	Login(ctx context.Context, email, password string) (*dto.TokenPair, error)
	// Refresh rotates the token pair using a refresh token.
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenPair, error)
	// CurrentUser resolves a bearer token to the authenticated user.
	CurrentUser(ctx context.Context, token string) (*domain.User, error)
	// SendVerificationEmail emails a verification link to the user.
	SendVerificationEmail(ctx context.Context, user *domain.User) error
	// RequestVerification emails a verification link to the address,
	// silently skipping unknown or already-verified accounts.
	RequestVerification(ctx context.Context, email string) error
	// VerifyEmail marks the token's subject as verified.
	VerifyEmail(ctx context.Context, token string) error
	// RequestPasswordReset creates a reset token and emails it.
	RequestPasswordReset(ctx context.Context, email string) error
	// ResetPassword consumes a reset token and sets a new password.
	ResetPassword(ctx context.Context, token, newPassword string) error
	// UpdateAvatar uploads an avatar image and stores its URL.
	UpdateAvatar(ctx context.Context, userID int64, data []byte, contentType string) (*domain.User, error)
}

// authService implements AuthService.
type authService struct {
	userRepo  repository.UserRepository
	resetRepo repository.ResetTokenRepository
	userCache UserCache
	tokens    *TokenIssuer
	hasher    *PasswordHasher
	mail      mailer.Mailer
	avatars   storage.AvatarStorage
	config    *AuthServiceConfig
	now       func() time.Time
}

// NewAuthService creates a new AuthService. The repositories, cache,
// mailer and avatar storage are injected so tests can substitute
// fakes.
func NewAuthService(
	userRepo repository.UserRepository,
	resetRepo repository.ResetTokenRepository,
	userCache UserCache,
	mail mailer.Mailer,
	avatars storage.AvatarStorage,
	config *AuthServiceConfig,
) AuthService {
	cfg := *config
	if cfg.ResetTokenTTL == 0 {
		cfg.ResetTokenTTL = DefaultResetTokenTTL
	}
	return &authService{
		userRepo:  userRepo,
		resetRepo: resetRepo,
		userCache: userCache,
		tokens:    NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		hasher:    NewPasswordHasher(cfg.BcryptCost),
		mail:      mail,
		avatars:   avatars,
		config:    &cfg,
		now:       time.Now,
	}
}

// Register creates a new user account.
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.register")
	defer span.End()

	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if exists {
		span.SetStatus(codes.Error, "user already exists")
		return nil, ErrUserAlreadyExists
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	user := &domain.User{
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: hashed,
		IsActive:       true,
		Role:           domain.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if err == repository.ErrDuplicateEmail {
			return nil, ErrUserAlreadyExists
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int64("user_id", user.ID))
	return user, nil
}

// Login verifies credentials, issues a token pair, persists the
// rotated refresh token and primes the user cache.
func (s *authService) Login(ctx context.Context, email, password string) (*dto.TokenPair, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.login")
	defer span.End()

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if user == nil || !s.hasher.Verify(password, user.HashedPassword) {
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// Prime the cache so the first authenticated request after login
	// is served without a second write.
	if err := s.userCache.Set(ctx, cache.NewCachedUser(user)); err != nil {
		span.RecordError(err)
	}

	span.SetAttributes(attribute.Int64("user_id", user.ID))
	return pair, nil
}

// Refresh rotates the token pair. The presented refresh token must
// verify and match the value currently stored for the user; anything
// else is indistinguishable from bad credentials.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenPair, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.refresh")
	defer span.End()

	userID, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		span.SetStatus(codes.Error, "invalid refresh token")
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if user == nil || user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		span.SetStatus(codes.Error, "refresh token mismatch")
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("user_id", user.ID))
	return pair, nil
}

// issueTokenPair signs a fresh access/refresh pair and stores the new
// refresh token, invalidating the previous one.
func (s *authService) issueTokenPair(ctx context.Context, user *domain.User) (*dto.TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(user.Email, user.ID, 0)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateRefreshToken(ctx, user.ID, refresh); err != nil {
		return nil, err
	}
	return &dto.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}

// CurrentUser resolves a bearer token to the authenticated user.
//
// The cache is advisory: a hit is re-checked against the store before
// being trusted, and the store's record is what gets returned, so
// role, verification and refresh-token fields are always fresh.
// Corrupted or stale entries are evicted eagerly. Cache
// infrastructure errors degrade to a miss and are never surfaced.
func (s *authService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.current_user")
	defer span.End()

	claims, err := s.tokens.ParseAccessToken(token)
	if err != nil {
		span.SetStatus(codes.Error, "invalid token")
		return nil, ErrInvalidCredentials
	}
	span.SetAttributes(attribute.Int64("user_id", claims.UserID))

	data, err := s.userCache.Get(ctx, claims.UserID)
	if err != nil {
		span.RecordError(err)
		data = nil
	}

	if data != nil {
		cached, ok := cache.DecodeCachedUser(data)
		if ok {
			// Existence check keyed by the cached id, not the token's.
			user, err := s.userRepo.GetByID(ctx, cached.ID)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			if user != nil {
				return user, nil
			}
			// The cached projection points at a deleted user. Evict
			// and fail; no second lookup by the token id.
			if err := s.userCache.Delete(ctx, claims.UserID); err != nil {
				span.RecordError(err)
			}
			span.SetStatus(codes.Error, "cached user no longer exists")
			return nil, ErrInvalidCredentials
		}
		// Corrupted payload: evict before falling back to the store.
		telemetry.AddSpanEvent(ctx, "cache.corrupted_entry")
		if err := s.userCache.Delete(ctx, claims.UserID); err != nil {
			span.RecordError(err)
		}
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if user == nil {
		span.SetStatus(codes.Error, "user not found")
		return nil, ErrInvalidCredentials
	}

	if err := s.userCache.Set(ctx, cache.NewCachedUser(user)); err != nil {
		span.RecordError(err)
	}
	return user, nil
}

// RequireActive passes the user through unless deactivated.
func RequireActive(user *domain.User) error {
	if !user.IsActive {
		return ErrUserInactive
	}
	return nil
}

// RequireAdmin checks the active flag first, then the admin role.
func RequireAdmin(user *domain.User) error {
	if err := RequireActive(user); err != nil {
		return err
	}
	if !user.IsAdmin() {
		return ErrInsufficientPrivilege
	}
	return nil
}

// SendVerificationEmail emails a verification link to the user.
func (s *authService) SendVerificationEmail(ctx context.Context, user *domain.User) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.send_verification_email")
	defer span.End()

	token, err := s.tokens.IssueVerificationToken(user.Email)
	if err != nil {
		span.RecordError(err)
		return err
	}

	link := fmt.Sprintf("%s?token=%s", s.config.VerifyURL, token)
	body := fmt.Sprintf(
		"Please click the following link to verify your email:<br><a href=%q>%s</a>",
		link, link,
	)
	if err := s.mail.Send(ctx, user.Email, "Verify your email", body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// RequestVerification re-sends the verification email. Unknown and
// already-verified addresses are skipped without an error so the
// endpoint does not leak account state.
func (s *authService) RequestVerification(ctx context.Context, email string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.request_verification")
	defer span.End()

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if user == nil || user.IsVerified {
		return nil
	}
	return s.SendVerificationEmail(ctx, user)
}

// VerifyEmail marks the token's subject as verified. Unknown or
// already-verified users fail the same way as a bad token.
func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.verify_email")
	defer span.End()

	email, err := s.tokens.ParseVerificationToken(token)
	if err != nil {
		span.SetStatus(codes.Error, "invalid verification token")
		return ErrInvalidToken
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if user == nil || user.IsVerified {
		span.SetStatus(codes.Error, "nothing to verify")
		return ErrInvalidToken
	}
	return s.userRepo.MarkVerified(ctx, user.ID)
}

// RequestPasswordReset creates a reset token and emails it. Unknown
// emails succeed silently so the endpoint does not leak which
// addresses have accounts.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.request_password_reset")
	defer span.End()

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if user == nil {
		return nil
	}

	// A new request supersedes any outstanding token for the address.
	if prior, err := s.resetRepo.FindByEmail(ctx, email); err != nil {
		span.RecordError(err)
		return err
	} else if prior != nil {
		if err := s.resetRepo.Delete(ctx, prior.Token); err != nil {
			span.RecordError(err)
			return err
		}
	}

	token, err := s.createResetToken(ctx, email)
	if err != nil {
		span.RecordError(err)
		return err
	}

	link := fmt.Sprintf("%s?token=%s", s.config.ResetURL, token.Token)
	body := fmt.Sprintf(
		"Use the following link to reset your password (valid for %d minutes):<br><a href=%q>%s</a>",
		int(s.config.ResetTokenTTL.Minutes()), link, link,
	)
	if err := s.mail.Send(ctx, email, "Password reset", body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// createResetToken generates a random URL-safe token with the
// configured expiry window and persists it.
func (s *authService) createResetToken(ctx context.Context, email string) (*domain.PasswordResetToken, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	token := &domain.PasswordResetToken{
		Email:     email,
		Token:     base64.RawURLEncoding.EncodeToString(raw),
		ExpiresAt: s.now().UTC().Add(s.config.ResetTokenTTL),
	}
	if err := s.resetRepo.Insert(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// evaluateResetToken checks a token's expiry against current UTC
// time. An expired token is purged before the failure is signaled.
func (s *authService) evaluateResetToken(ctx context.Context, token *domain.PasswordResetToken) error {
	if token.ExpiredAt(s.now()) {
		_ = s.resetRepo.Delete(ctx, token.Token)
		return ErrTokenExpired
	}
	return nil
}

// ResetPassword consumes a reset token: expiry check, user lookup,
// hash overwrite, then token deletion, in that order.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.reset_password")
	defer span.End()

	record, err := s.resetRepo.FindByToken(ctx, token)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if record == nil {
		span.SetStatus(codes.Error, "token not found")
		return ErrTokenNotFound
	}

	if err := s.evaluateResetToken(ctx, record); err != nil {
		span.SetStatus(codes.Error, "token expired")
		return err
	}

	user, err := s.userRepo.GetByEmail(ctx, record.Email)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if user == nil {
		span.SetStatus(codes.Error, "user not found")
		return ErrUserNotFound
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.userRepo.UpdateHashedPassword(ctx, user.ID, hashed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	// The token must not be usable twice.
	if err := s.resetRepo.Delete(ctx, record.Token); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// UpdateAvatar uploads the image and stores the resulting URL.
func (s *authService) UpdateAvatar(ctx context.Context, userID int64, data []byte, contentType string) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.update_avatar")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", userID))

	url, err := s.avatars.Upload(ctx, data, contentType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.userRepo.UpdateAvatar(ctx, userID, url); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
