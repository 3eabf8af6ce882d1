package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// timingPadPassword is hashed once so unknown-email logins spend the same
// bcrypt work as wrong-password logins.
const timingPadPassword = "timing-pad-password"

// AuthResult is what register and login hand back to the transport.
type AuthResult struct {
	User   *domain.User
	Token  string
	Claims domain.Token
}

// UserService coordinates registration and login flows.
type UserService struct {
	store       *CredentialStore
	tokens      *auth.TokenManager
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	defaultRole domain.Role
	padHash     string
}

// UserDependencies encapsulates requirements for the user service.
type UserDependencies struct {
	Store       *CredentialStore
	Tokens      *auth.TokenManager
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	DefaultRole domain.Role
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	role := deps.DefaultRole
	if role == "" {
		role = domain.RoleUser
	}
	padHash, err := deps.Store.hasher.Hash(timingPadPassword)
	if err != nil {
		logger.Warn("failed to prepare login timing pad", zap.Error(err))
	}
	return &UserService{
		store:       deps.Store,
		tokens:      deps.Tokens,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		defaultRole: role,
		padHash:     padHash,
	}
}

// Register creates a user with the default role and issues a token.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	user, err := s.store.Create(ctx, name, email, password, s.defaultRole)
	if err != nil {
		return nil, err
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{Type: events.EventUserRegistered, UserID: user.ID, Email: user.Email})
	return result, nil
}

// Login checks credentials and issues a token. Unknown email and wrong
// password produce the same error.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.store.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		s.store.ValidatePassword(password, s.padHash)
		return nil, s.loginFailed(ctx, NormalizeEmail(email), "unknown email")
	case err != nil:
		return nil, err
	}

	if !s.store.ValidatePassword(password, user.PasswordHash) {
		return nil, s.loginFailed(ctx, user.Email, "wrong password")
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{Type: events.EventUserLoggedIn, UserID: user.ID, Email: user.Email})
	return result, nil
}

// CurrentUser returns the principal's outward view.
func (s *UserService) CurrentUser(ctx context.Context) (domain.PublicUser, error) {
	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return domain.PublicUser{}, apperrors.NewPrincipalMissing()
	}
	return principal.User, nil
}

// Tokens exposes the token manager for the authentication gate.
func (s *UserService) Tokens() *auth.TokenManager {
	return s.tokens
}

func (s *UserService) issue(user *domain.User) (*AuthResult, error) {
	token, claims, err := s.tokens.Sign(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, Claims: claims}, nil
}

func (s *UserService) loginFailed(ctx context.Context, email, reason string) error {
	s.publish(ctx, events.Event{Type: events.EventLoginFailed, Email: email, Reason: reason})
	return apperrors.NewInvalidCredentials()
}

func (s *UserService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
