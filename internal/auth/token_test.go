package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestManager(ttl time.Duration) (*TokenManager, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewTokenManager("test-secret", ttl, WithClock(clock.Now)), clock
}

func requireTokenErrorKind(t *testing.T, err error, kinds ...TokenErrorKind) {
	t.Helper()

	var tokenErr *TokenError
	require.True(t, errors.As(err, &tokenErr), "expected *TokenError, got %v", err)
	assert.Contains(t, kinds, tokenErr.Kind)
}

func TestTokenManager_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		userID string
		role   domain.Role
	}{
		{"uuid subject", "8f14e45f-ceea-467f-a0e6-2b1f0a3f6e11", domain.RoleUser},
		{"admin role", "42", domain.RoleAdmin},
		{"empty role", "u1", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tm, clock := newTestManager(time.Hour)
			tokenStr, issued, err := tm.Sign(tt.userID, tt.role)
			require.NoError(t, err)
			require.NotEmpty(t, tokenStr)

			got, err := tm.Verify(tokenStr)
			require.NoError(t, err)
			assert.Equal(t, tt.userID, got.SubjectID)
			assert.Equal(t, tt.role, got.Role)
			assert.True(t, got.IssuedAt.Equal(clock.now))
			assert.True(t, got.ExpiresAt.Equal(clock.now.Add(time.Hour)))
			assert.True(t, issued.ExpiresAt.Equal(got.ExpiresAt))
		})
	}
}

func TestTokenManager_SignRejectsEmptySubject(t *testing.T) {
	tm, _ := newTestManager(time.Hour)

	_, _, err := tm.Sign("", domain.RoleUser)
	assert.Error(t, err)
}

func TestTokenManager_Expiry(t *testing.T) {
	t.Parallel()

	tm, clock := newTestManager(30 * time.Minute)
	tokenStr, issued, err := tm.Sign("user-1", domain.RoleUser)
	require.NoError(t, err)

	clock.now = issued.ExpiresAt.Add(-time.Second)
	_, err = tm.Verify(tokenStr)
	require.NoError(t, err, "token must be accepted before expiry")

	clock.now = issued.ExpiresAt
	_, err = tm.Verify(tokenStr)
	requireTokenErrorKind(t, err, TokenExpired)

	clock.now = issued.ExpiresAt.Add(24 * time.Hour)
	_, err = tm.Verify(tokenStr)
	requireTokenErrorKind(t, err, TokenExpired)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	t.Parallel()

	signer := NewTokenManager("right-secret", time.Hour)
	verifier := NewTokenManager("wrong-secret", time.Hour)

	tokenStr, _, err := signer.Sign("user-1", domain.RoleUser)
	require.NoError(t, err)

	_, err = verifier.Verify(tokenStr)
	requireTokenErrorKind(t, err, TokenInvalidSignature)
}

func TestTokenManager_ForgedExpiredTokenReportsSignature(t *testing.T) {
	t.Parallel()

	forger, _ := newTestManager(time.Minute)
	forger.secret = []byte("attacker")
	tokenStr, _, err := forger.Sign("user-1", domain.RoleAdmin)
	require.NoError(t, err)

	tm, clock := newTestManager(time.Minute)
	clock.now = clock.now.Add(time.Hour)

	_, err = tm.Verify(tokenStr)
	requireTokenErrorKind(t, err, TokenInvalidSignature)
}

func TestTokenManager_Malformed(t *testing.T) {
	t.Parallel()

	tm, _ := newTestManager(time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"two segments", "abc.def"},
		{"three junk segments", "not.a.jwt"},
		{"four segments", "a.b.c.d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tm.Verify(tt.token)
			requireTokenErrorKind(t, err, TokenMalformed)
		})
	}
}

func TestTokenManager_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	tm, clock := newTestManager(time.Hour)
	claims := &Claims{
		Role: domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.Verify(unsigned)
	requireTokenErrorKind(t, err, TokenInvalidSignature)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = tm.Verify(hs512)
	requireTokenErrorKind(t, err, TokenInvalidSignature)
}

func TestTokenManager_RequiresExpiryAndSubject(t *testing.T) {
	t.Parallel()

	tm, clock := newTestManager(time.Hour)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = tm.Verify(noExp)
	requireTokenErrorKind(t, err, TokenMalformed)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour))},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = tm.Verify(noSub)
	requireTokenErrorKind(t, err, TokenMalformed)
}

func TestTokenManager_TamperRejection(t *testing.T) {
	t.Parallel()

	tm, _ := newTestManager(time.Hour)
	tokenStr, _, err := tm.Sign("user-1", domain.RoleUser)
	require.NoError(t, err)

	for i := 0; i < len(tokenStr); i++ {
		if tokenStr[i] == '.' {
			continue
		}
		replacement := byte('A')
		if tokenStr[i] == 'A' {
			replacement = 'B'
		}
		tampered := tokenStr[:i] + string(replacement) + tokenStr[i+1:]

		_, err := tm.Verify(tampered)
		require.Error(t, err, "tampered byte %d must not verify", i)
		requireTokenErrorKind(t, err, TokenInvalidSignature, TokenMalformed)
	}
}

func TestTokenManager_DistinctSubjectsProduceDistinctTokens(t *testing.T) {
	tm, _ := newTestManager(time.Hour)

	first, _, err := tm.Sign("user-1", domain.RoleUser)
	require.NoError(t, err)
	second, _, err := tm.Sign("user-2", domain.RoleUser)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, strings.Count(first, "."))
}

func TestNewTokenManager_DefaultTTL(t *testing.T) {
	tm := NewTokenManager("s", 0)
	assert.Equal(t, time.Hour, tm.ttl)
}
