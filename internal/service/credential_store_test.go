package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

type failingUserRepository struct {
	err error
}

func (r *failingUserRepository) Create(context.Context, *domain.User) error { return r.err }

func (r *failingUserRepository) GetByID(context.Context, string) (*domain.User, error) {
	return nil, r.err
}

func (r *failingUserRepository) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, r.err
}

func newTestStore() (*CredentialStore, *repository.MemoryUserRepository) {
	repo := repository.NewMemoryUserRepository()
	return NewCredentialStore(repo, auth.NewPasswordHasher(bcrypt.MinCost)), repo
}

func TestCredentialStore_Create(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore()
	ctx := context.Background()

	user, err := store.Create(ctx, " A ", " A@X.com ", "p1", domain.RoleUser)
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "A", user.Name)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "p1", user.PasswordHash)
	assert.True(t, store.ValidatePassword("p1", user.PasswordHash))
	assert.False(t, store.ValidatePassword("wrong", user.PasswordHash))
	assert.False(t, store.ValidatePassword("", user.PasswordHash))
}

func TestCredentialStore_Create_InvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		userName string
		email    string
		password string
		role     domain.Role
	}{
		{"empty name", "", "a@x.com", "p1", domain.RoleUser},
		{"blank name", "   ", "a@x.com", "p1", domain.RoleUser},
		{"empty email", "A", "", "p1", domain.RoleUser},
		{"empty password", "A", "a@x.com", "", domain.RoleUser},
		{"empty role", "A", "a@x.com", "p1", ""},
		{"password too long", "A", "a@x.com", strings.Repeat("x", auth.MaxPasswordBytes+1), domain.RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore()

			user, err := store.Create(context.Background(), tt.userName, tt.email, tt.password, tt.role)
			assert.Nil(t, user)
			assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidInput), "got %v", err)
		})
	}
}

func TestCredentialStore_Create_DuplicateEmail(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore()
	ctx := context.Background()

	original, err := store.Create(ctx, "A", "a@x.com", "p1", domain.RoleUser)
	require.NoError(t, err)

	_, err = store.Create(ctx, "B", "A@x.COM", "p2", domain.RoleUser)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDuplicateEmail), "got %v", err)

	stored, err := store.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, original.ID, stored.ID)
	assert.Equal(t, "A", stored.Name)
	assert.True(t, store.ValidatePassword("p1", stored.PasswordHash))
}

func TestCredentialStore_Create_ConcurrentSameEmail(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore()
	ctx := context.Background()

	const workers = 8
	results := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = store.Create(ctx, "A", "race@x.com", "p1", domain.RoleUser)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperrors.IsKind(err, apperrors.KindDuplicateEmail), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestCredentialStore_Lookups(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore()
	ctx := context.Background()

	user, err := store.Create(ctx, "A", "a@x.com", "p1", domain.RoleUser)
	require.NoError(t, err)

	byID, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)

	byEmail, err := store.FindByEmail(ctx, "  A@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = store.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = store.FindByID(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = store.FindByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestCredentialStore_StorageUnavailable(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	store := NewCredentialStore(&failingUserRepository{err: cause}, auth.NewPasswordHasher(bcrypt.MinCost))
	ctx := context.Background()

	_, err := store.Create(ctx, "A", "a@x.com", "p1", domain.RoleUser)
	assert.True(t, apperrors.IsKind(err, apperrors.KindStorageUnavailable))
	assert.ErrorIs(t, err, cause)

	_, err = store.FindByID(ctx, "id")
	assert.True(t, apperrors.IsKind(err, apperrors.KindStorageUnavailable))
	assert.NotErrorIs(t, err, domain.ErrUserNotFound)

	_, err = store.FindByEmail(ctx, "a@x.com")
	assert.True(t, apperrors.IsKind(err, apperrors.KindStorageUnavailable))
}

func TestCredentialStore_CancelledContextIsStorageFailure(t *testing.T) {
	store, _ := newTestStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.FindByID(ctx, "id")
	assert.True(t, apperrors.IsKind(err, apperrors.KindStorageUnavailable))
	assert.ErrorIs(t, err, context.Canceled)
}
