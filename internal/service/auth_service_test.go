package service

import (
	"context"
	"testing"
	"time"

	"commerce-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(ttl time.Duration) *AuthService {
	return &AuthService{
		secret: []byte("test-secret"),
		ttl:    ttl,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	s := newTestAuthService(time.Hour)

	user := &models.User{ID: 42, Role: models.RoleVendor}
	pair, err := s.issueToken(user)
	require.NoError(t, err)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.Equal(t, int64(3600), pair.ExpiresIn)

	claims, err := s.ParseToken(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, models.RoleVendor, claims.Role)
	assert.NotEmpty(t, claims.ID)

	actor, err := ActorFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, int64(42), actor.ID)
	assert.Equal(t, models.RoleVendor, actor.Role)
}

func TestParseTokenExpired(t *testing.T) {
	s := newTestAuthService(-time.Minute)

	pair, err := s.issueToken(&models.User{ID: 1, Role: models.RoleCustomer})
	require.NoError(t, err)

	_, err = s.ParseToken(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestParseTokenWrongSecret(t *testing.T) {
	issuer := newTestAuthService(time.Hour)
	verifier := &AuthService{secret: []byte("other-secret"), ttl: time.Hour}

	pair, err := issuer.issueToken(&models.User{ID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = verifier.ParseToken(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestParseTokenGarbage(t *testing.T) {
	s := newTestAuthService(time.Hour)
	_, err := s.ParseToken(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestActorFromClaimsBadSubject(t *testing.T) {
	_, err := ActorFromClaims(&Claims{Role: models.RoleAdmin})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRoleValid(t *testing.T) {
	assert.True(t, models.RoleAdmin.Valid())
	assert.True(t, models.RoleVendor.Valid())
	assert.True(t, models.RoleCustomer.Valid())
	assert.False(t, models.Role("superuser").Valid())
	assert.False(t, models.Role("").Valid())
}
