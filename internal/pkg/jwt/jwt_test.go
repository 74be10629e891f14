package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)

	token, expiresAt, err := svc.GenerateAccessToken("emp-1", user.RoleEmployee)
	require.NoError(t, err)
	assert.Greater(t, expiresAt, time.Now().Unix())

	decoded, err := jwtauth.VerifyToken(svc.JWTAuth(), token)
	require.NoError(t, err)

	ctx := jwtauth.NewContext(context.Background(), decoded, nil)
	claims, err := ClaimsFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, Claims{UserID: "emp-1", Role: user.RoleEmployee}, claims)
}

func TestClaimsFromContextRejectsOtherTokenTypes(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)
	token, _, err := svc.JWTAuth().Encode(map[string]interface{}{
		"user_id": "emp-1",
		"role":    "employee",
		"type":    "refresh",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	ctx := jwtauth.NewContext(context.Background(), token, nil)
	_, err = ClaimsFromContext(ctx)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestClaimsFromContextRequiresRole(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)
	token, _, err := svc.JWTAuth().Encode(map[string]interface{}{
		"user_id": "emp-1",
		"role":    "owner",
		"type":    "access",
	})
	require.NoError(t, err)

	ctx := jwtauth.NewContext(context.Background(), token, nil)
	_, err = ClaimsFromContext(ctx)
	assert.ErrorIs(t, err, auth.ErrMissingClaim)

	_, err = ClaimsFromContext(context.Background())
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
