package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// CredentialStore owns user records and password verification on top of a
// UserRepository.
type CredentialStore struct {
	users  repository.UserRepository
	hasher *auth.PasswordHasher
}

// NewCredentialStore builds the store.
func NewCredentialStore(users repository.UserRepository, hasher *auth.PasswordHasher) *CredentialStore {
	return &CredentialStore{users: users, hasher: hasher}
}

// NormalizeEmail is the fixed email policy: surrounding whitespace is dropped
// and the address is compared case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create hashes the password and persists a new user.
func (s *CredentialStore) Create(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	switch {
	case name == "":
		return nil, apperrors.NewInvalidInput("name is required")
	case email == "":
		return nil, apperrors.NewInvalidInput("email is required")
	case password == "":
		return nil, apperrors.NewInvalidInput("password is required")
	case role == "":
		return nil, apperrors.NewInvalidInput("role is required")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) || errors.Is(err, auth.ErrEmptyPassword) {
			return nil, apperrors.NewInvalidInput(err.Error())
		}
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, apperrors.NewDuplicateEmail()
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return user, nil
}

// FindByEmail returns domain.ErrUserNotFound when no user has the address.
func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.lookup(s.users.GetByEmail(ctx, NormalizeEmail(email)))
}

// FindByID returns domain.ErrUserNotFound when the id is unknown.
func (s *CredentialStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, domain.ErrUserNotFound
	}
	return s.lookup(s.users.GetByID(ctx, id))
}

// ValidatePassword reports whether plaintext produced storedHash.
func (s *CredentialStore) ValidatePassword(plaintext, storedHash string) bool {
	return s.hasher.Validate(plaintext, storedHash)
}

func (s *CredentialStore) lookup(user *domain.User, err error) (*domain.User, error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return nil, domain.ErrUserNotFound
	case err != nil:
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return user, nil
}
