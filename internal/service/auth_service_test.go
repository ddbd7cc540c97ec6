package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/contactsbook/contacts-api/internal/cache"
	"github.com/contactsbook/contacts-api/internal/domain"
	"github.com/contactsbook/contacts-api/internal/dto"
)

// mockUserRepository is a mock implementation of UserRepository. The
// counters let tests assert how many store reads an operation made.
type mockUserRepository struct {
	users       map[int64]*domain.User
	emailIndex  map[string]*domain.User
	nextID      int64
	getByIDs    int
	createError error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:      make(map[int64]*domain.User),
		emailIndex: make(map[string]*domain.User),
		nextID:     1,
	}
}

func (r *mockUserRepository) add(user *domain.User) {
	if user.ID == 0 {
		user.ID = r.nextID
		r.nextID++
	}
	r.users[user.ID] = user
	r.emailIndex[user.Email] = user
}

func (r *mockUserRepository) remove(id int64) {
	if user := r.users[id]; user != nil {
		delete(r.emailIndex, user.Email)
		delete(r.users, id)
	}
}

func (r *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if r.createError != nil {
		return r.createError
	}
	user.CreatedAt = time.Now()
	r.add(user)
	return nil
}

func (r *mockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.getByIDs++
	return r.users[id], nil
}

func (r *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.emailIndex[email], nil
}

func (r *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, exists := r.emailIndex[email]
	return exists, nil
}

func (r *mockUserRepository) UpdateAvatar(ctx context.Context, id int64, url string) error {
	if user := r.users[id]; user != nil {
		user.AvatarURL = &url
	}
	return nil
}

func (r *mockUserRepository) UpdateRefreshToken(ctx context.Context, id int64, token string) error {
	if user := r.users[id]; user != nil {
		user.RefreshToken = &token
	}
	return nil
}

func (r *mockUserRepository) UpdateHashedPassword(ctx context.Context, id int64, hashed string) error {
	if user := r.users[id]; user != nil {
		user.HashedPassword = hashed
	}
	return nil
}

func (r *mockUserRepository) MarkVerified(ctx context.Context, id int64) error {
	if user := r.users[id]; user != nil {
		user.IsVerified = true
	}
	return nil
}

// mockResetTokenRepository is a mock implementation of ResetTokenRepository.
type mockResetTokenRepository struct {
	tokens map[string]*domain.PasswordResetToken
}

func newMockResetTokenRepository() *mockResetTokenRepository {
	return &mockResetTokenRepository{tokens: make(map[string]*domain.PasswordResetToken)}
}

func (r *mockResetTokenRepository) Insert(ctx context.Context, token *domain.PasswordResetToken) error {
	token.CreatedAt = time.Now()
	r.tokens[token.Token] = token
	return nil
}

func (r *mockResetTokenRepository) FindByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error) {
	return r.tokens[token], nil
}

func (r *mockResetTokenRepository) FindByEmail(ctx context.Context, email string) (*domain.PasswordResetToken, error) {
	for _, t := range r.tokens {
		if t.Email == email {
			return t, nil
		}
	}
	return nil, nil
}

func (r *mockResetTokenRepository) Delete(ctx context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

// mockUserCache is an in-memory UserCache with call counters. Raw
// entries can be planted to simulate corruption.
type mockUserCache struct {
	entries map[int64][]byte
	gets    int
	sets    int
	deletes int
	getErr  error
	setErr  error
}

func newMockUserCache() *mockUserCache {
	return &mockUserCache{entries: make(map[int64][]byte)}
}

func (c *mockUserCache) Get(ctx context.Context, userID int64) ([]byte, error) {
	c.gets++
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.entries[userID], nil
}

func (c *mockUserCache) Set(ctx context.Context, user *cache.CachedUser) error {
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	c.entries[user.ID] = data
	return nil
}

func (c *mockUserCache) Delete(ctx context.Context, userID int64) error {
	c.deletes++
	delete(c.entries, userID)
	return nil
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type mockMailer struct {
	sent []sentMail
}

func (m *mockMailer) Send(ctx context.Context, to, subject, body string) error {
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type mockAvatarStorage struct {
	uploads int
	url     string
}

func (s *mockAvatarStorage) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	s.uploads++
	return s.url, nil
}

type authFixture struct {
	userRepo  *mockUserRepository
	resetRepo *mockResetTokenRepository
	userCache *mockUserCache
	mailer    *mockMailer
	avatars   *mockAvatarStorage
	svc       *authService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		userRepo:  newMockUserRepository(),
		resetRepo: newMockResetTokenRepository(),
		userCache: newMockUserCache(),
		mailer:    &mockMailer{},
		avatars:   &mockAvatarStorage{url: "https://cdn.example.com/avatars/abc.png"},
	}
	svc := NewAuthService(f.userRepo, f.resetRepo, f.userCache, f.mailer, f.avatars, &AuthServiceConfig{
		JWTSecret:       "test-secret-key",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		ResetTokenTTL:   15 * time.Minute,
		BcryptCost:      bcrypt.MinCost,
		VerifyURL:       "https://app.example.com/verify",
		ResetURL:        "https://app.example.com/reset",
	})
	f.svc = svc.(*authService)
	return f
}

func (f *authFixture) addUser(t *testing.T, id int64, email, password string) *domain.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt.GenerateFromPassword() error = %v", err)
	}
	user := &domain.User{
		ID:             id,
		Username:       "user",
		Email:          email,
		HashedPassword: string(hashed),
		IsActive:       true,
		Role:           domain.RoleUser,
		CreatedAt:      time.Now(),
	}
	f.userRepo.add(user)
	return user
}

func TestNewAuthService_ConfigDefaults(t *testing.T) {
	caller := &AuthServiceConfig{
		JWTSecret:      "test-secret-key",
		AccessTokenTTL: 30 * time.Minute,
		BcryptCost:     bcrypt.MinCost,
	}
	svc := NewAuthService(
		newMockUserRepository(), newMockResetTokenRepository(), newMockUserCache(),
		&mockMailer{}, &mockAvatarStorage{}, caller,
	)

	if got := svc.(*authService).config.ResetTokenTTL; got != DefaultResetTokenTTL {
		t.Errorf("service ResetTokenTTL = %v, want %v", got, DefaultResetTokenTTL)
	}
	// The caller's struct stays as it was passed in.
	if caller.ResetTokenTTL != 0 {
		t.Errorf("caller ResetTokenTTL = %v, want 0", caller.ResetTokenTTL)
	}
}

func TestAuthService_Register(t *testing.T) {
	f := newAuthFixture(t)

	t.Run("successful registration", func(t *testing.T) {
		req := &dto.RegisterRequest{
			Email:    "test@example.com",
			Username: "tester",
			Password: "Password1!",
		}

		user, err := f.svc.Register(context.Background(), req)
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		if user.ID == 0 {
			t.Error("Register() user ID not assigned")
		}
		if user.Email != req.Email {
			t.Errorf("Register() Email = %v, want %v", user.Email, req.Email)
		}
		if !user.IsActive {
			t.Error("Register() new user should be active")
		}
		if user.IsVerified {
			t.Error("Register() new user should not be verified")
		}
		if user.Role != domain.RoleUser {
			t.Errorf("Register() Role = %v, want %v", user.Role, domain.RoleUser)
		}
		if user.HashedPassword == req.Password {
			t.Error("Register() stored the plaintext password")
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		req := &dto.RegisterRequest{
			Email:    "test@example.com", // Same email as previous test
			Username: "another",
			Password: "Password2!",
		}

		_, err := f.svc.Register(context.Background(), req)
		if err != ErrUserAlreadyExists {
			t.Errorf("Register() error = %v, want %v", err, ErrUserAlreadyExists)
		}
	})
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, 1, "login@example.com", "Password1!")

	t.Run("successful login", func(t *testing.T) {
		pair, err := f.svc.Login(context.Background(), "login@example.com", "Password1!")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if pair.AccessToken == "" {
			t.Error("Login() AccessToken is empty")
		}
		if pair.RefreshToken == "" {
			t.Error("Login() RefreshToken is empty")
		}
		if pair.TokenType != "bearer" {
			t.Errorf("Login() TokenType = %v, want bearer", pair.TokenType)
		}
		// Refresh token must be persisted for later rotation checks.
		stored := f.userRepo.users[1].RefreshToken
		if stored == nil || *stored != pair.RefreshToken {
			t.Error("Login() did not persist the refresh token")
		}
		// Cache should be primed with the user projection.
		if _, ok := f.userCache.entries[1]; !ok {
			t.Error("Login() did not prime the user cache")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.svc.Login(context.Background(), "login@example.com", "WrongPassword1!")
		if err != ErrInvalidCredentials {
			t.Errorf("Login() error = %v, want %v", err, ErrInvalidCredentials)
		}
	})

	t.Run("non-existent user", func(t *testing.T) {
		_, err := f.svc.Login(context.Background(), "nobody@example.com", "Password1!")
		if err != ErrInvalidCredentials {
			t.Errorf("Login() error = %v, want %v", err, ErrInvalidCredentials)
		}
	})
}

func TestAuthService_CurrentUser(t *testing.T) {
	t.Run("valid token resolves to the stored user", func(t *testing.T) {
		f := newAuthFixture(t)
		user := f.addUser(t, 42, "a@b.com", "Password1!")

		token, err := f.svc.tokens.IssueAccessToken(user.Email, user.ID, time.Hour)
		if err != nil {
			t.Fatalf("IssueAccessToken() error = %v", err)
		}

		got, err := f.svc.CurrentUser(context.Background(), token)
		if err != nil {
			t.Fatalf("CurrentUser() error = %v", err)
		}
		if got.ID != 42 || got.Email != "a@b.com" {
			t.Errorf("CurrentUser() = id %d email %s, want id 42 email a@b.com", got.ID, got.Email)
		}
	})

	t.Run("invalid token touches neither cache nor store", func(t *testing.T) {
		f := newAuthFixture(t)
		f.addUser(t, 1, "x@example.com", "Password1!")

		_, err := f.svc.CurrentUser(context.Background(), "not-a-jwt")
		if err != ErrInvalidCredentials {
			t.Fatalf("CurrentUser() error = %v, want %v", err, ErrInvalidCredentials)
		}
		if f.userCache.gets != 0 || f.userCache.sets != 0 || f.userCache.deletes != 0 {
			t.Errorf("CurrentUser() touched the cache: gets=%d sets=%d deletes=%d",
				f.userCache.gets, f.userCache.sets, f.userCache.deletes)
		}
		if f.userRepo.getByIDs != 0 {
			t.Errorf("CurrentUser() touched the store: %d reads", f.userRepo.getByIDs)
		}
	})

	t.Run("miss populates the cache, hit does not rewrite it", func(t *testing.T) {
		f := newAuthFixture(t)
		user := f.addUser(t, 7, "cached@example.com", "Password1!")
		token, _ := f.svc.tokens.IssueAccessToken(user.Email, user.ID, time.Hour)

		if _, err := f.svc.CurrentUser(context.Background(), token); err != nil {
			t.Fatalf("first CurrentUser() error = %v", err)
		}
		if f.userCache.sets != 1 {
			t.Fatalf("first call cache sets = %d, want 1", f.userCache.sets)
		}
		if f.userRepo.getByIDs != 1 {
			t.Fatalf("first call store reads = %d, want 1", f.userRepo.getByIDs)
		}

		if _, err := f.svc.CurrentUser(context.Background(), token); err != nil {
			t.Fatalf("second CurrentUser() error = %v", err)
		}
		// The hit is re-validated against the store but never written
		// back.
		if f.userCache.sets != 1 {
			t.Errorf("second call cache sets = %d, want still 1", f.userCache.sets)
		}
		if f.userCache.gets != 2 {
			t.Errorf("cache gets = %d, want 2", f.userCache.gets)
		}
	})

	t.Run("corrupted cache entry is evicted and rebuilt from the store", func(t *testing.T) {
		f := newAuthFixture(t)
		user := f.addUser(t, 9, "corrupt@example.com", "Password1!")
		token, _ := f.svc.tokens.IssueAccessToken(user.Email, user.ID, time.Hour)

		f.userCache.entries[9] = []byte("{not json")

		got, err := f.svc.CurrentUser(context.Background(), token)
		if err != nil {
			t.Fatalf("CurrentUser() error = %v", err)
		}
		if got.ID != 9 {
			t.Errorf("CurrentUser() ID = %d, want 9", got.ID)
		}
		if f.userCache.deletes != 1 {
			t.Errorf("cache deletes = %d, want 1", f.userCache.deletes)
		}
		if f.userCache.sets != 1 {
			t.Errorf("cache sets = %d, want 1", f.userCache.sets)
		}
		var cu cache.CachedUser
		if err := json.Unmarshal(f.userCache.entries[9], &cu); err != nil || cu.Email != "corrupt@example.com" {
			t.Errorf("rebuilt cache entry = %s, err %v", f.userCache.entries[9], err)
		}
	})

	t.Run("stale cache entry for a deleted user is evicted", func(t *testing.T) {
		f := newAuthFixture(t)
		user := f.addUser(t, 11, "gone@example.com", "Password1!")
		token, _ := f.svc.tokens.IssueAccessToken(user.Email, user.ID, time.Hour)

		if _, err := f.svc.CurrentUser(context.Background(), token); err != nil {
			t.Fatalf("warm-up CurrentUser() error = %v", err)
		}
		f.userRepo.remove(11)

		_, err := f.svc.CurrentUser(context.Background(), token)
		if err != ErrInvalidCredentials {
			t.Fatalf("CurrentUser() error = %v, want %v", err, ErrInvalidCredentials)
		}
		if f.userCache.deletes != 1 {
			t.Errorf("cache deletes = %d, want 1", f.userCache.deletes)
		}
		if _, ok := f.userCache.entries[11]; ok {
			t.Error("stale cache entry was not removed")
		}
	})

	t.Run("cache read error degrades to a miss", func(t *testing.T) {
		f := newAuthFixture(t)
		user := f.addUser(t, 13, "degraded@example.com", "Password1!")
		token, _ := f.svc.tokens.IssueAccessToken(user.Email, user.ID, time.Hour)

		f.userCache.getErr = context.DeadlineExceeded

		got, err := f.svc.CurrentUser(context.Background(), token)
		if err != nil {
			t.Fatalf("CurrentUser() error = %v", err)
		}
		if got.ID != 13 {
			t.Errorf("CurrentUser() ID = %d, want 13", got.ID)
		}
	})

	t.Run("cache write error does not fail the request", func(t *testing.T) {
		f := newAuthFixture(t)
		user := f.addUser(t, 14, "writefail@example.com", "Password1!")
		token, _ := f.svc.tokens.IssueAccessToken(user.Email, user.ID, time.Hour)

		f.userCache.setErr = context.DeadlineExceeded

		if _, err := f.svc.CurrentUser(context.Background(), token); err != nil {
			t.Fatalf("CurrentUser() error = %v", err)
		}
	})
}

func TestAuthService_Refresh(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, 1, "refresh@example.com", "Password1!")

	pair, err := f.svc.Login(context.Background(), "refresh@example.com", "Password1!")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	t.Run("successful refresh rotates the pair", func(t *testing.T) {
		rotated, err := f.svc.Refresh(context.Background(), pair.RefreshToken)
		if err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if rotated.RefreshToken == pair.RefreshToken {
			t.Error("Refresh() should return a new refresh token")
		}

		// The old token no longer matches the stored one.
		if _, err := f.svc.Refresh(context.Background(), pair.RefreshToken); err != ErrInvalidCredentials {
			t.Errorf("reusing old refresh token error = %v, want %v", err, ErrInvalidCredentials)
		}

		// The rotated token still works.
		if _, err := f.svc.Refresh(context.Background(), rotated.RefreshToken); err != nil {
			t.Errorf("rotated refresh token error = %v", err)
		}
	})

	t.Run("garbage refresh token", func(t *testing.T) {
		_, err := f.svc.Refresh(context.Background(), "garbage")
		if err != ErrInvalidCredentials {
			t.Errorf("Refresh() error = %v, want %v", err, ErrInvalidCredentials)
		}
	})

	t.Run("access token rejected as refresh token", func(t *testing.T) {
		access, _ := f.svc.tokens.IssueAccessToken("refresh@example.com", 1, time.Hour)
		_, err := f.svc.Refresh(context.Background(), access)
		if err != ErrInvalidCredentials {
			t.Errorf("Refresh() error = %v, want %v", err, ErrInvalidCredentials)
		}
	})
}

func TestAuthService_VerifyEmail(t *testing.T) {
	f := newAuthFixture(t)
	user := f.addUser(t, 1, "verify@example.com", "Password1!")

	t.Run("verification email carries a working token", func(t *testing.T) {
		if err := f.svc.SendVerificationEmail(context.Background(), user); err != nil {
			t.Fatalf("SendVerificationEmail() error = %v", err)
		}
		if len(f.mailer.sent) != 1 {
			t.Fatalf("mails sent = %d, want 1", len(f.mailer.sent))
		}
		if f.mailer.sent[0].to != "verify@example.com" {
			t.Errorf("mail recipient = %v", f.mailer.sent[0].to)
		}
	})

	t.Run("valid token marks the user verified", func(t *testing.T) {
		token, _ := f.svc.tokens.IssueVerificationToken("verify@example.com")
		if err := f.svc.VerifyEmail(context.Background(), token); err != nil {
			t.Fatalf("VerifyEmail() error = %v", err)
		}
		if !f.userRepo.users[1].IsVerified {
			t.Error("VerifyEmail() did not mark the user verified")
		}
	})

	t.Run("already verified", func(t *testing.T) {
		token, _ := f.svc.tokens.IssueVerificationToken("verify@example.com")
		if err := f.svc.VerifyEmail(context.Background(), token); err != ErrInvalidToken {
			t.Errorf("VerifyEmail() error = %v, want %v", err, ErrInvalidToken)
		}
	})

	t.Run("unknown subject", func(t *testing.T) {
		token, _ := f.svc.tokens.IssueVerificationToken("stranger@example.com")
		if err := f.svc.VerifyEmail(context.Background(), token); err != ErrInvalidToken {
			t.Errorf("VerifyEmail() error = %v, want %v", err, ErrInvalidToken)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if err := f.svc.VerifyEmail(context.Background(), "garbage"); err != ErrInvalidToken {
			t.Errorf("VerifyEmail() error = %v, want %v", err, ErrInvalidToken)
		}
	})
}

func TestAuthService_PasswordReset(t *testing.T) {
	t.Run("request creates a token and sends mail", func(t *testing.T) {
		f := newAuthFixture(t)
		f.addUser(t, 1, "reset@example.com", "OldPassword1!")

		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		f.svc.now = func() time.Time { return base }

		if err := f.svc.RequestPasswordReset(context.Background(), "reset@example.com"); err != nil {
			t.Fatalf("RequestPasswordReset() error = %v", err)
		}
		record, _ := f.resetRepo.FindByEmail(context.Background(), "reset@example.com")
		if record == nil {
			t.Fatal("no reset token stored")
		}
		if want := base.Add(15 * time.Minute); !record.ExpiresAt.Equal(want) {
			t.Errorf("token ExpiresAt = %v, want %v", record.ExpiresAt, want)
		}
		if len(f.mailer.sent) != 1 {
			t.Fatalf("mails sent = %d, want 1", len(f.mailer.sent))
		}
	})

	t.Run("second request supersedes the outstanding token", func(t *testing.T) {
		f := newAuthFixture(t)
		f.addUser(t, 1, "reset@example.com", "OldPassword1!")

		if err := f.svc.RequestPasswordReset(context.Background(), "reset@example.com"); err != nil {
			t.Fatalf("first RequestPasswordReset() error = %v", err)
		}
		first, _ := f.resetRepo.FindByEmail(context.Background(), "reset@example.com")
		if first == nil {
			t.Fatal("no reset token stored after first request")
		}

		if err := f.svc.RequestPasswordReset(context.Background(), "reset@example.com"); err != nil {
			t.Fatalf("second RequestPasswordReset() error = %v", err)
		}
		if len(f.resetRepo.tokens) != 1 {
			t.Fatalf("stored tokens = %d, want 1", len(f.resetRepo.tokens))
		}
		second, _ := f.resetRepo.FindByEmail(context.Background(), "reset@example.com")
		if second == nil || second.Token == first.Token {
			t.Fatal("second request did not replace the token")
		}

		// The first token no longer works.
		if err := f.svc.ResetPassword(context.Background(), first.Token, "NewPassword1!"); err != ErrTokenNotFound {
			t.Errorf("ResetPassword() with superseded token error = %v, want %v", err, ErrTokenNotFound)
		}
		// The second one does.
		if err := f.svc.ResetPassword(context.Background(), second.Token, "NewPassword1!"); err != nil {
			t.Errorf("ResetPassword() with current token error = %v", err)
		}
	})

	t.Run("request for unknown email is silent", func(t *testing.T) {
		f := newAuthFixture(t)
		if err := f.svc.RequestPasswordReset(context.Background(), "nobody@example.com"); err != nil {
			t.Fatalf("RequestPasswordReset() error = %v", err)
		}
		if len(f.resetRepo.tokens) != 0 {
			t.Error("reset token stored for unknown email")
		}
		if len(f.mailer.sent) != 0 {
			t.Error("mail sent for unknown email")
		}
	})

	t.Run("reset with valid token replaces the password and consumes the token", func(t *testing.T) {
		f := newAuthFixture(t)
		f.addUser(t, 1, "reset@example.com", "OldPassword1!")

		record, err := f.svc.createResetToken(context.Background(), "reset@example.com")
		if err != nil {
			t.Fatalf("createResetToken() error = %v", err)
		}

		if err := f.svc.ResetPassword(context.Background(), record.Token, "NewPassword1!"); err != nil {
			t.Fatalf("ResetPassword() error = %v", err)
		}
		hash := f.userRepo.users[1].HashedPassword
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("NewPassword1!")); err != nil {
			t.Error("new password does not verify against the stored hash")
		}
		if _, ok := f.resetRepo.tokens[record.Token]; ok {
			t.Error("token not deleted after use")
		}

		// Second use of the same token must fail.
		if err := f.svc.ResetPassword(context.Background(), record.Token, "Again1234!"); err != ErrTokenNotFound {
			t.Errorf("second ResetPassword() error = %v, want %v", err, ErrTokenNotFound)
		}
	})

	t.Run("expired token is purged and rejected", func(t *testing.T) {
		f := newAuthFixture(t)
		f.addUser(t, 1, "reset@example.com", "OldPassword1!")

		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		f.svc.now = func() time.Time { return base }
		record, err := f.svc.createResetToken(context.Background(), "reset@example.com")
		if err != nil {
			t.Fatalf("createResetToken() error = %v", err)
		}

		// Advance past the 15 minute window.
		f.svc.now = func() time.Time { return base.Add(16 * time.Minute) }

		if err := f.svc.ResetPassword(context.Background(), record.Token, "NewPassword1!"); err != ErrTokenExpired {
			t.Fatalf("ResetPassword() error = %v, want %v", err, ErrTokenExpired)
		}
		if _, ok := f.resetRepo.tokens[record.Token]; ok {
			t.Error("expired token was not purged")
		}
	})

	t.Run("token expiry tolerates naive stored timestamps", func(t *testing.T) {
		f := newAuthFixture(t)
		f.addUser(t, 1, "reset@example.com", "OldPassword1!")

		// Simulate a timestamp read back without timezone info.
		naive := time.Date(2025, 6, 1, 12, 15, 0, 0, time.Local)
		record := &domain.PasswordResetToken{Email: "reset@example.com", Token: "naive-token", ExpiresAt: naive}
		f.resetRepo.tokens[record.Token] = record

		f.svc.now = func() time.Time { return naive.Add(-time.Minute) }
		if err := f.svc.ResetPassword(context.Background(), "naive-token", "NewPassword1!"); err != nil {
			t.Errorf("ResetPassword() before expiry error = %v", err)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newAuthFixture(t)
		if err := f.svc.ResetPassword(context.Background(), "missing", "NewPassword1!"); err != ErrTokenNotFound {
			t.Errorf("ResetPassword() error = %v, want %v", err, ErrTokenNotFound)
		}
	})
}

func TestAuthService_UpdateAvatar(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, 1, "avatar@example.com", "Password1!")

	user, err := f.svc.UpdateAvatar(context.Background(), 1, []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("UpdateAvatar() error = %v", err)
	}
	if f.avatars.uploads != 1 {
		t.Errorf("uploads = %d, want 1", f.avatars.uploads)
	}
	if user.AvatarURL == nil || *user.AvatarURL != f.avatars.url {
		t.Errorf("AvatarURL = %v, want %v", user.AvatarURL, f.avatars.url)
	}
}

func TestRequireActiveAndAdmin(t *testing.T) {
	active := &domain.User{IsActive: true, Role: domain.RoleUser}
	admin := &domain.User{IsActive: true, Role: domain.RoleAdmin}
	inactiveAdmin := &domain.User{IsActive: false, Role: domain.RoleAdmin}

	if err := RequireActive(active); err != nil {
		t.Errorf("RequireActive(active) = %v", err)
	}
	if err := RequireActive(&domain.User{}); err != ErrUserInactive {
		t.Errorf("RequireActive(inactive) = %v, want %v", err, ErrUserInactive)
	}
	if err := RequireAdmin(admin); err != nil {
		t.Errorf("RequireAdmin(admin) = %v", err)
	}
	if err := RequireAdmin(active); err != ErrInsufficientPrivilege {
		t.Errorf("RequireAdmin(user) = %v, want %v", err, ErrInsufficientPrivilege)
	}
	// The active check runs before the role check.
	if err := RequireAdmin(inactiveAdmin); err != ErrUserInactive {
		t.Errorf("RequireAdmin(inactive admin) = %v, want %v", err, ErrUserInactive)
	}
}
