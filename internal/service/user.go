// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the store
//
// Services accept primitives and return domain types plus apperror values.
// They never see an *http.Request, and they only know the store through the
// repository interfaces, so the same code runs on MongoDB and SQLite.
//
// THE DEPENDENCY CHAIN:
//
//	server.go creates:  Store → Service → Handler
//	At runtime:         Handler calls Service calls Repository calls Store
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

// invalidCredentials is the one message every failed login gets, whether
// the email is unknown or the password is wrong.
const invalidCredentials = "Invalid email or password"

// UserService handles registration, login and account lookups.
type UserService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger

	// dummyHash is verified against when the email is unknown, so a miss
	// costs one bcrypt comparison just like a wrong password does.
	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *UserService {
	return &UserService{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// Register hashes the password and stores the account.
// The returned user never carries the hash.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	switch {
	case name == "":
		return nil, apperror.ValidationFailed("name", "Name, email, and password are required")
	case email == "":
		return nil, apperror.ValidationFailed("email", "Name, email, and password are required")
	case password == "":
		return nil, apperror.ValidationFailed("password", "Name, email, and password are required")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password",
				fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
		}
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicate) {
			return nil, err
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("id", user.ID))

	user.PasswordHash = ""
	return user, nil
}

// Login checks credentials. Unknown email and wrong password produce the
// exact same error, so the response never reveals whether an account exists.
func (s *UserService) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			_ = s.passwords.Verify(s.timingHash(), password)
			return nil, apperror.Unauthenticated(invalidCredentials)
		}
		s.logger.Error("failed to look up user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrMismatch) {
			// A corrupt stored hash is our problem, but the caller still
			// only learns that the login failed.
			s.logger.Error("stored password hash unusable",
				slog.String("id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.Unauthenticated(invalidCredentials)
	}

	s.logger.Info("user logged in", slog.String("id", user.ID))

	user.PasswordHash = ""
	return user, nil
}

// List returns every account, without hashes. No filter, no pagination.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing users: %w", err)
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

// GetByID returns one account. Used by the session endpoint.
func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to get user", slog.String("id", id), slog.String("error", err.Error()))
		}
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *UserService) timingHash() string {
	s.dummyOnce.Do(func() {
		// Hash of a random-looking constant; it only has to be a valid bcrypt
		// string at the configured cost.
		s.dummyHash, _ = s.passwords.Hash("blog-platform-timing-equalizer")
	})
	return s.dummyHash
}
