package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/domain"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

const bearerScheme = "Bearer"

type principalKey struct{}

// PrincipalStore resolves a verified token subject to its user record.
type PrincipalStore interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Gate validates bearer tokens and loads principals.
type Gate struct {
	tokens *TokenManager
	users  PrincipalStore
	logger *zap.Logger
}

// NewGate constructs the authentication gate.
func NewGate(tokens *TokenManager, users PrincipalStore, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{tokens: tokens, users: users, logger: logger}
}

// Authenticate turns a raw Authorization header value into a principal.
// Every token or lookup failure collapses to the same Unauthorized error;
// only storage failures surface as something else.
func (g *Gate) Authenticate(ctx context.Context, header string) (*domain.Principal, error) {
	tokenStr, ok := extractBearer(header)
	if !ok {
		return nil, g.reject("missing or malformed authorization header")
	}

	token, err := g.tokens.Verify(tokenStr)
	if err != nil {
		var tokenErr *TokenError
		if errors.As(err, &tokenErr) {
			return nil, g.reject("token " + tokenErr.Kind.String())
		}
		return nil, apperrors.NewInternalError(err)
	}

	user, err := g.users.FindByID(ctx, token.SubjectID)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return nil, g.reject("token subject no longer exists")
	case apperrors.IsKind(err, apperrors.KindStorageUnavailable):
		return nil, err
	case err != nil:
		return nil, apperrors.NewInternalError(err)
	case user == nil:
		return nil, g.reject("token subject no longer exists")
	}

	return &domain.Principal{User: user.Public(), Token: token}, nil
}

// Handle is the Fiber adapter: it authenticates the request and threads the
// principal to downstream handlers through the request's user context.
func (g *Gate) Handle(c *fiber.Ctx) error {
	principal, err := g.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}
	c.SetUserContext(WithPrincipal(c.UserContext(), principal))
	return c.Next()
}

func (g *Gate) reject(reason string) error {
	g.logger.Debug("authentication rejected", zap.String("reason", reason))
	return apperrors.NewUnauthorized(reason)
}

func extractBearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// WithPrincipal returns a copy of ctx carrying the principal.
func WithPrincipal(ctx context.Context, principal *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(*domain.Principal)
	return principal, ok && principal != nil
}
