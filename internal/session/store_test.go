// ABOUTME: Tests for the session store.
// ABOUTME: Validates register/login/restore round-trips, expiry, reset flow, and fault behavior.

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repfit/repfit/internal/kv"
)

var testSecret = []byte("test-secret-do-not-use")

func newTestStore(t *testing.T, opts ...Option) (*Store, *kv.MemoryStore) {
	t.Helper()
	mem := kv.NewMemoryStore()
	return New(mem, testSecret, opts...), mem
}

func register(t *testing.T, s *Store, email, password string) {
	t.Helper()
	require.NoError(t, s.Register(context.Background(), email, "", password))
}

func TestStore_RegisterValidation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Register(ctx, "", "", "longenough"), ErrBadEmail)
	assert.ErrorIs(t, s.Register(ctx, "no-at-sign", "", "longenough"), ErrBadEmail)
	assert.ErrorIs(t, s.Register(ctx, "@nolocal", "", "longenough"), ErrBadEmail)
	assert.ErrorIs(t, s.Register(ctx, "a@b.com", "", "short"), ErrWeakPassword)
	assert.NoError(t, s.Register(ctx, "a@b.com", "", "longenough"))
	assert.ErrorIs(t, s.Register(ctx, "a@b.com", "", "longenough"), ErrEmailTaken)
}

func TestStore_RegisterNeverStoresPlaintext(t *testing.T) {
	s, mem := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Register(ctx, "a@b.com", "Ada", "hunter2hunter2"))

	raw, err := mem.Get(ctx, kv.KeyRegisteredUsers)
	require.NoError(t, err)
	assert.NotContains(t, raw, "hunter2hunter2")
}

func TestStore_LoginHappyPath(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	register(t, s, "ada@example.com", "correct horse")

	identity, err := s.Login(ctx, "ada@example.com", "correct horse", false)
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", identity.Email)
	assert.Equal(t, "ada", identity.Name, "name falls back to email local-part")
	assert.False(t, identity.LastLogin.IsZero())
	assert.NotEmpty(t, identity.Token)
	assert.True(t, s.IsAuthenticated())
}

func TestStore_LoginWrongPassword(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	register(t, s, "ada@example.com", "correct horse")

	_, err := s.Login(ctx, "ada@example.com", "wrong", false)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, s.IsAuthenticated())
}

func TestStore_LoginUnknownEmailSameError(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Login(context.Background(), "ghost@example.com", "whatever", false)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestStore_RestoreRoundTrip(t *testing.T) {
	mem := kv.NewMemoryStore()
	ctx := context.Background()

	s := New(mem, testSecret)
	require.NoError(t, s.Register(ctx, "ada@example.com", "Ada", "correct horse"))
	logged, err := s.Login(ctx, "ada@example.com", "correct horse", false)
	require.NoError(t, err)

	// Fresh instance over the same storage, as after a process restart
	fresh := New(mem, testSecret)
	assert.True(t, fresh.Loading())

	restored := fresh.Restore(ctx)
	require.NotNil(t, restored)
	assert.Equal(t, logged.Email, restored.Email)
	assert.Equal(t, logged.Name, restored.Name)
	assert.True(t, fresh.IsAuthenticated())
	assert.False(t, fresh.Loading())
}

func TestStore_RestoreNothingStored(t *testing.T) {
	s, _ := newTestStore(t)

	assert.Nil(t, s.Restore(context.Background()))
	assert.False(t, s.Loading(), "loading flips even when restore finds nothing")
	assert.False(t, s.IsAuthenticated())
}

func TestStore_RestoreMalformedIdentity(t *testing.T) {
	mem := kv.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, kv.KeyUser, "{broken"))

	s := New(mem, testSecret)
	assert.Nil(t, s.Restore(ctx))

	_, err := mem.Get(ctx, kv.KeyUser)
	assert.ErrorIs(t, err, kv.ErrNoValue, "malformed session is cleared")
}

func TestStore_RestoreExpiredToken(t *testing.T) {
	mem := kv.NewMemoryStore()
	ctx := context.Background()

	clock := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	s := New(mem, testSecret,
		WithClock(func() time.Time { return clock }),
		WithSessionTTL(time.Hour))
	require.NoError(t, s.Register(ctx, "ada@example.com", "", "correct horse"))
	_, err := s.Login(ctx, "ada@example.com", "correct horse", false)
	require.NoError(t, err)

	// Two hours later in a fresh instance: token is past expiry
	later := clock.Add(2 * time.Hour)
	fresh := New(mem, testSecret, WithClock(func() time.Time { return later }))
	assert.Nil(t, fresh.Restore(ctx))
	assert.False(t, fresh.IsAuthenticated())
}

func TestStore_RestoreRejectsForeignToken(t *testing.T) {
	mem := kv.NewMemoryStore()
	ctx := context.Background()

	s := New(mem, testSecret)
	require.NoError(t, s.Register(ctx, "ada@example.com", "", "correct horse"))
	_, err := s.Login(ctx, "ada@example.com", "correct horse", false)
	require.NoError(t, err)

	// A store keyed with a different secret must not accept the session
	fresh := New(mem, []byte("other-secret"))
	assert.Nil(t, fresh.Restore(ctx))
}

func TestStore_LogoutClearsEverything(t *testing.T) {
	mem := kv.NewMemoryStore()
	ctx := context.Background()

	s := New(mem, testSecret)
	require.NoError(t, s.Register(ctx, "a@b.com", "", "correct horse"))
	_, err := s.Login(ctx, "a@b.com", "correct horse", false)
	require.NoError(t, err)

	s.Logout(ctx)
	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, s.Current())

	// A later restore in a new instance finds no identity
	fresh := New(mem, testSecret)
	assert.Nil(t, fresh.Restore(ctx))
}

func TestStore_RememberEmail(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	register(t, s, "ada@example.com", "correct horse")

	_, err := s.Login(ctx, "ada@example.com", "correct horse", true)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", s.SavedEmail(ctx))

	// Signing in without remember clears the saved address
	_, err = s.Login(ctx, "ada@example.com", "correct horse", false)
	require.NoError(t, err)
	assert.Empty(t, s.SavedEmail(ctx))
}

func TestStore_LoginFaultLeavesStateUntouched(t *testing.T) {
	mem := kv.NewMemoryStore()
	ctx := context.Background()

	s := New(mem, testSecret)
	require.NoError(t, s.Register(ctx, "a@b.com", "", "correct horse"))

	mem.FailWrites = true
	mem.FailErr = errors.New("no space left")

	_, err := s.Login(ctx, "a@b.com", "correct horse", false)
	assert.ErrorIs(t, err, ErrPersistenceFailed)
	assert.False(t, s.IsAuthenticated())
}

func TestStore_PasswordResetFlow(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	register(t, s, "ada@example.com", "old password")

	token, err := s.BeginReset(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, s.CompleteReset(ctx, "ada@example.com", token, "new password"))

	_, err = s.Login(ctx, "ada@example.com", "old password", false)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(ctx, "ada@example.com", "new password", false)
	assert.NoError(t, err)
}

func TestStore_ResetTokenSingleUse(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	register(t, s, "ada@example.com", "old password")

	token, err := s.BeginReset(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NoError(t, s.CompleteReset(ctx, "ada@example.com", token, "new password"))

	err = s.CompleteReset(ctx, "ada@example.com", token, "newer password")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestStore_ResetRejectsMismatchedEmail(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	register(t, s, "ada@example.com", "old password")
	register(t, s, "bob@example.com", "bob password")

	token, err := s.BeginReset(ctx, "ada@example.com")
	require.NoError(t, err)

	err = s.CompleteReset(ctx, "bob@example.com", token, "new password")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestStore_ResetTokenExpires(t *testing.T) {
	clock := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	mem := kv.NewMemoryStore()
	s := New(mem, testSecret,
		WithClock(func() time.Time { return clock }),
		WithResetTTL(10*time.Minute))
	ctx := context.Background()
	register(t, s, "ada@example.com", "old password")

	token, err := s.BeginReset(ctx, "ada@example.com")
	require.NoError(t, err)

	clock = clock.Add(11 * time.Minute)
	err = s.CompleteReset(ctx, "ada@example.com", token, "new password")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestStore_BeginResetUnknownEmail(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.BeginReset(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrUnknownEmail)
}
