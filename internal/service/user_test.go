package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blog-platform/internal/apperror"
)

func newTestUserService(t *testing.T) (*UserService, *fakeUserRepo) {
	t.Helper()
	repo := newFakeUserRepo()
	return NewUserService(repo, newTestPasswords(t), discardLogger()), repo
}

// =========================================================================
// REGISTER
// =========================================================================

func TestRegister_Success(t *testing.T) {
	svc, repo := newTestUserService(t)

	user, err := svc.Register(context.Background(), "  Ada  ", " ada@example.com ", "s3cret")
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Empty(t, user.PasswordHash, "the response never carries the hash")

	// The stored record has a real bcrypt hash, not the plaintext.
	require.Len(t, repo.users, 1)
	stored := repo.users[0].PasswordHash
	assert.True(t, strings.HasPrefix(stored, "$2a$"), "stored hash = %q", stored)
	assert.NotContains(t, stored, "s3cret")
}

func TestRegister_MissingFields(t *testing.T) {
	svc, repo := newTestUserService(t)

	tests := []struct {
		name, email, password string
		field                 string
	}{
		{"", "a@example.com", "pw", "name"},
		{"   ", "a@example.com", "pw", "name"},
		{"Ada", "", "pw", "email"},
		{"Ada", "a@example.com", "", "password"},
	}
	for _, tt := range tests {
		_, err := svc.Register(context.Background(), tt.name, tt.email, tt.password)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperror.ErrValidation))

		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, tt.field, appErr.Field)
		assert.Equal(t, "Name, email, and password are required", appErr.Message)
	}
	assert.Empty(t, repo.users)
}

func TestRegister_PasswordTooLong(t *testing.T) {
	svc, _ := newTestUserService(t)

	_, err := svc.Register(context.Background(), "Ada", "a@example.com", strings.Repeat("x", 73))
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, repo := newTestUserService(t)

	_, err := svc.Register(context.Background(), "first", "dup@example.com", "pw")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "second", "dup@example.com", "pw")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrDuplicate))
	assert.Equal(t, "user with this email already exists", err.Error())
	assert.Len(t, repo.users, 1, "no second record")
}

func TestRegister_StoreFailure(t *testing.T) {
	svc, repo := newTestUserService(t)
	repo.failErr = errors.New("connection reset")

	_, err := svc.Register(context.Background(), "Ada", "a@example.com", "pw")
	require.Error(t, err)

	var appErr *apperror.AppError
	assert.False(t, errors.As(err, &appErr), "a store failure is not a domain error")
}

// =========================================================================
// LOGIN
// =========================================================================

func TestLogin_Success(t *testing.T) {
	svc, _ := newTestUserService(t)
	registered, err := svc.Register(context.Background(), "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	user, err := svc.Login(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Empty(t, user.PasswordHash)
}

func TestLogin_UniformFailure(t *testing.T) {
	svc, _ := newTestUserService(t)
	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	_, wrongPassword := svc.Login(context.Background(), "ada@example.com", "nope")
	_, unknownEmail := svc.Login(context.Background(), "ghost@example.com", "pw")

	for _, err := range []error{wrongPassword, unknownEmail} {
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperror.ErrUnauthenticated))
	}
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error(), "failures must be indistinguishable")
	assert.Equal(t, "Invalid email or password", wrongPassword.Error())
}

func TestLogin_MissingFields(t *testing.T) {
	svc, _ := newTestUserService(t)

	for _, in := range [][2]string{{"", "pw"}, {"a@example.com", ""}} {
		_, err := svc.Login(context.Background(), in[0], in[1])
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperror.ErrValidation))
		assert.Equal(t, "Email and password are required", err.Error())
	}
}

func TestLogin_CorruptStoredHash(t *testing.T) {
	svc, repo := newTestUserService(t)
	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "pw")
	require.NoError(t, err)
	repo.users[0].PasswordHash = "garbage"

	_, err = svc.Login(context.Background(), "ada@example.com", "pw")
	assert.True(t, errors.Is(err, apperror.ErrUnauthenticated))
}

func TestLogin_OverlongPassword(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewUserService(newFakeUserRepo(), newTestPasswords(t), logger)
	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "ada@example.com", strings.Repeat("p", 100))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUnauthenticated))
	assert.Equal(t, "Invalid email or password", err.Error())
	assert.Empty(t, logs.String(), "a wrong password is not a server-side error")
}

// =========================================================================
// LIST / GET
// =========================================================================

func TestUserList_StripsHashes(t *testing.T) {
	svc, _ := newTestUserService(t)
	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := svc.Register(context.Background(), "u", email, "pw")
		require.NoError(t, err)
	}

	users, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.Empty(t, u.PasswordHash)
	}
}

func TestUserGetByID(t *testing.T) {
	svc, _ := newTestUserService(t)
	created, err := svc.Register(context.Background(), "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	got, err := svc.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	_, err = svc.GetByID(context.Background(), "user-999")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	_, err = svc.GetByID(context.Background(), " ")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}
