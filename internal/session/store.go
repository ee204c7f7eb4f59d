// ABOUTME: Session store owning the current Identity and the credential registry
// ABOUTME: bcrypt-verified credentials, HS256 session tokens, silent-degrade restore

package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/repfit/repfit/internal/kv"
	"github.com/repfit/repfit/internal/notify"
)

// Session errors. These are the failure signals the presentation layer turns
// into inline messages; none of them is ever a panic.
var (
	ErrBadEmail           = errors.New("email must be non-empty and contain @")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownEmail       = errors.New("no account with this email")
	ErrResetTokenInvalid  = errors.New("reset link is invalid or expired")
	ErrNotAuthenticated   = errors.New("not signed in")
	ErrPersistenceFailed  = errors.New("could not save session state")
)

const (
	minPasswordLength      = 8
	defaultSessionLifetime = 24 * time.Hour
	defaultResetLifetime   = 30 * time.Minute
)

// dummyHash is compared against when the email is unknown, keeping login
// timing independent of account existence.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("repfit-timing-pad"), bcrypt.DefaultCost)

// Store owns the current Identity and the credential registry. It is the
// sole writer of the user, registeredUsers, and savedEmail keys.
type Store struct {
	mu         sync.Mutex
	kv         kv.Store
	current    *Identity
	notifier   *notify.Broadcaster
	logger     *slog.Logger
	now        func() time.Time
	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
	loading    bool
	restoreOne sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithNotifier attaches a change broadcaster.
func WithNotifier(n *notify.Broadcaster) Option {
	return func(s *Store) { s.notifier = n }
}

// WithSessionTTL sets how long issued session tokens stay valid.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Store) { s.sessionTTL = ttl }
}

// WithResetTTL sets how long password-reset tokens stay valid.
func WithResetTTL(ttl time.Duration) Option {
	return func(s *Store) { s.resetTTL = ttl }
}

// New creates a session store. The secret signs session tokens; it must be
// non-empty and stable across restarts for Restore to succeed.
func New(store kv.Store, secret []byte, opts ...Option) *Store {
	s := &Store{
		kv:         store,
		logger:     slog.Default().With("component", "session"),
		now:        time.Now,
		secret:     secret,
		sessionTTL: defaultSessionLifetime,
		resetTTL:   defaultResetLifetime,
		loading:    true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Loading reports whether the first restore attempt has completed. UI
// surfaces use it to distinguish "still checking" from "checked, no session".
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Restore attempts to load a previously saved Identity. Absent, malformed,
// or expired sessions silently degrade to signed-out. The loading flag flips
// exactly once, after the first attempt, whatever its outcome.
func (s *Store) Restore(ctx context.Context) *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.restoreOne.Do(func() { s.loading = false })

	raw, err := s.kv.Get(ctx, kv.KeyUser)
	if errors.Is(err, kv.ErrNoValue) {
		s.logger.Debug("no stored session")
		return nil
	}
	if err != nil {
		s.logger.Error("failed to read stored session", "error", err)
		return nil
	}

	var identity Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		s.logger.Error("malformed stored session, discarding", "error", err)
		s.removeStoredUser(ctx)
		return nil
	}

	if !s.tokenValid(identity.Token) {
		s.logger.Debug("stored session token invalid or expired", "email", identity.Email)
		s.removeStoredUser(ctx)
		return nil
	}

	s.current = &identity
	s.logger.Info("session restored", "email", identity.Email)
	copied := identity
	return &copied
}

// Register creates a new account. The password is stored only as a bcrypt
// hash. Registering does not sign the user in.
func (s *Store) Register(ctx context.Context, email, name, password string) error {
	if !validEmail(email) {
		return ErrBadEmail
	}
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	registry := s.loadRegistry(ctx)
	if _, exists := registry[email]; exists {
		return ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return ErrPersistenceFailed
	}

	if name == "" {
		name = localPart(email)
	}
	registry[email] = credential{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Joined:       s.now(),
	}
	if err := s.saveRegistry(ctx, registry); err != nil {
		return ErrPersistenceFailed
	}

	s.logger.Info("account registered", "email", email)
	return nil
}

// Login verifies credentials and makes the matching Identity current,
// stamping LastLogin and issuing a fresh session token. With rememberEmail
// the address is kept at savedEmail for the next sign-in form; otherwise any
// remembered address is cleared. On any failure prior state is untouched.
func (s *Store) Login(ctx context.Context, email, password string, rememberEmail bool) (*Identity, error) {
	if !validEmail(email) {
		return nil, ErrInvalidCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	registry := s.loadRegistry(ctx)
	cred, exists := registry[email]
	if !exists {
		// Burn the same bcrypt time an existing account would
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	token, expiry, err := s.issueToken(email, now)
	if err != nil {
		s.logger.Error("failed to issue session token", "error", err)
		return nil, ErrPersistenceFailed
	}

	identity := Identity{
		Email:       email,
		Name:        cred.Name,
		Joined:      cred.Joined,
		LastLogin:   now,
		Token:       token,
		TokenExpiry: expiry.UnixMilli(),
	}
	if identity.Name == "" {
		identity.Name = localPart(email)
	}

	data, err := json.Marshal(identity)
	if err != nil {
		s.logger.Error("failed to encode identity", "error", err)
		return nil, ErrPersistenceFailed
	}
	if err := s.kv.Set(ctx, kv.KeyUser, string(data)); err != nil {
		s.logger.Error("failed to persist session", "error", err)
		return nil, ErrPersistenceFailed
	}

	if rememberEmail {
		if err := s.kv.Set(ctx, kv.KeySavedEmail, email); err != nil {
			s.logger.Error("failed to remember email", "error", err)
		}
	} else if err := s.kv.Delete(ctx, kv.KeySavedEmail); err != nil {
		s.logger.Error("failed to clear remembered email", "error", err)
	}

	s.current = &identity
	s.logger.Info("user signed in", "email", email)
	s.publish(notify.OpLogin)

	copied := identity
	return &copied, nil
}

// Logout clears the current Identity and removes it from storage.
// Logging out while signed out is a no-op.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return
	}
	email := s.current.Email
	s.current = nil
	s.removeStoredUser(ctx)

	s.logger.Info("user signed out", "email", email)
	s.publish(notify.OpLogout)
}

// Current returns a copy of the signed-in Identity, or nil.
func (s *Store) Current() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}
	copied := *s.current
	return &copied
}

// IsAuthenticated reports whether an Identity is current.
func (s *Store) IsAuthenticated() bool {
	return s.Current() != nil
}

// SavedEmail returns the remembered sign-in address, or "".
func (s *Store) SavedEmail(ctx context.Context) string {
	email, err := s.kv.Get(ctx, kv.KeySavedEmail)
	if err != nil {
		return ""
	}
	return email
}

// BeginReset issues a password-reset token for the account. The raw token is
// returned for delivery out of band; only its digest is stored.
func (s *Store) BeginReset(ctx context.Context, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	registry := s.loadRegistry(ctx)
	cred, exists := registry[email]
	if !exists {
		return "", ErrUnknownEmail
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		s.logger.Error("failed to generate reset token", "error", err)
		return "", ErrPersistenceFailed
	}
	token := hex.EncodeToString(buf)

	cred.ResetHash = digest(token)
	cred.ResetExpiry = s.now().Add(s.resetTTL)
	registry[email] = cred
	if err := s.saveRegistry(ctx, registry); err != nil {
		return "", ErrPersistenceFailed
	}

	s.logger.Info("password reset started", "email", email)
	return token, nil
}

// CompleteReset verifies the reset token and installs the new password.
// A mismatched email, wrong token, or expired token all report the same
// failure.
func (s *Store) CompleteReset(ctx context.Context, email, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	registry := s.loadRegistry(ctx)
	cred, exists := registry[email]
	if !exists || cred.ResetHash == "" {
		return ErrResetTokenInvalid
	}
	if cred.ResetHash != digest(token) || s.now().After(cred.ResetExpiry) {
		return ErrResetTokenInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return ErrPersistenceFailed
	}

	cred.PasswordHash = string(hash)
	cred.ResetHash = ""
	cred.ResetExpiry = time.Time{}
	registry[email] = cred
	if err := s.saveRegistry(ctx, registry); err != nil {
		return ErrPersistenceFailed
	}

	s.logger.Info("password reset completed", "email", email)
	return nil
}

// issueToken creates an HS256 session token for the email.
func (s *Store) issueToken(email string, now time.Time) (string, time.Time, error) {
	expiry := now.Add(s.sessionTTL)
	claims := jwt.MapClaims{
		"sub": email,
		"iat": now.Unix(),
		"exp": expiry.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiry, nil
}

// tokenValid checks signature and expiry of a stored session token.
func (s *Store) tokenValid(tokenString string) bool {
	if tokenString == "" {
		return false
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	return err == nil && token.Valid
}

// loadRegistry reads the credential registry, degrading to empty on faults.
// Must be called with mu held.
func (s *Store) loadRegistry(ctx context.Context) map[string]credential {
	registry := make(map[string]credential)
	raw, err := s.kv.Get(ctx, kv.KeyRegisteredUsers)
	if errors.Is(err, kv.ErrNoValue) {
		return registry
	}
	if err != nil {
		s.logger.Error("failed to load credential registry", "error", err)
		return registry
	}
	if err := json.Unmarshal([]byte(raw), &registry); err != nil {
		s.logger.Error("malformed credential registry", "error", err)
		return make(map[string]credential)
	}
	return registry
}

// saveRegistry writes the credential registry. Must be called with mu held.
func (s *Store) saveRegistry(ctx context.Context, registry map[string]credential) error {
	data, err := json.Marshal(registry)
	if err != nil {
		s.logger.Error("failed to encode credential registry", "error", err)
		return err
	}
	if err := s.kv.Set(ctx, kv.KeyRegisteredUsers, string(data)); err != nil {
		s.logger.Error("failed to persist credential registry", "error", err)
		return err
	}
	return nil
}

// removeStoredUser deletes the persisted Identity. Must be called with mu held.
func (s *Store) removeStoredUser(ctx context.Context) {
	if err := s.kv.Delete(ctx, kv.KeyUser); err != nil {
		s.logger.Error("failed to remove stored session", "error", err)
	}
}

func (s *Store) publish(op string) {
	if s.notifier != nil {
		s.notifier.Publish(notify.Change{Store: notify.StoreSession, Op: op})
	}
}

// digest returns the hex SHA-256 of a token.
func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
