package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-links-api/internal/models"
	appErrors "github.com/noah-isme/compliance-links-api/pkg/errors"
)

func newTestAuthService() *AuthService {
	return NewAuthService(nil, AuthConfig{
		AccessTokenSecret: "secret",
		Issuer:            "compliance-links",
		Audience:          []string{"links-api"},
	})
}

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := newTestAuthService()

	token, err := svc.IssueToken(models.Operator{ID: "user-1", Role: models.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.Operator{ID: "user-1", Role: models.RoleAdmin}, claims.Operator())
}

func TestAuthServiceRejectsExpiredToken(t *testing.T) {
	svc := newTestAuthService()
	token, err := svc.IssueToken(models.Operator{ID: "user-1", Role: models.RoleManager}, time.Minute)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRejectsForeignIssuerAndSecret(t *testing.T) {
	svc := newTestAuthService()

	other := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "someone-else", Audience: []string{"links-api"}})
	token, err := other.IssueToken(models.Operator{ID: "user-1"}, time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)

	forged := NewAuthService(nil, AuthConfig{AccessTokenSecret: "guess", Issuer: "compliance-links", Audience: []string{"links-api"}})
	token, err = forged.IssueToken(models.Operator{ID: "user-1"}, time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)

	_, err = svc.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}

func TestAuthServiceIssueRequiresOperator(t *testing.T) {
	_, err := newTestAuthService().IssueToken(models.Operator{}, time.Hour)
	assert.Error(t, err)
}
