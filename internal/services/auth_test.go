package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testTokenService() TokenService {
	return TokenService{
		Secret:   []byte("test-secret"),
		Issuer:   "smartscribe",
		UserTTL:  7 * 24 * time.Hour,
		AdminTTL: 2 * time.Hour,
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	svc := testTokenService()
	hash, err := svc.HashPassword("Str0ng!pass")
	require.NoError(t, err)
	assert.True(t, svc.VerifyPassword("Str0ng!pass", hash))
	assert.False(t, svc.VerifyPassword("wrong", hash))
}

func TestVerifyPasswordBcryptFallback(t *testing.T) {
	// rows migrated from the previous system carry bcrypt hashes
	hash, err := bcrypt.GenerateFromPassword([]byte("Legacy!Pass1"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := testTokenService()
	assert.True(t, svc.VerifyPassword("Legacy!Pass1", string(hash)))
	assert.False(t, svc.VerifyPassword("nope", string(hash)))
}

func TestTokenRoundTrip(t *testing.T) {
	svc := testTokenService()
	signed, exp, err := svc.CreateToken("user-1", false)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(svc.UserTTL), exp, time.Minute)

	token, claims, err := svc.ParseToken(signed)
	require.NoError(t, err)
	require.True(t, token.Valid)
	assert.Equal(t, "user-1", claims["sub"])
	assert.Equal(t, false, claims["admin"])
}

func TestAdminTokenShorterLived(t *testing.T) {
	svc := testTokenService()
	_, userExp, err := svc.CreateToken("u", false)
	require.NoError(t, err)
	_, adminExp, err := svc.CreateToken("u", true)
	require.NoError(t, err)
	assert.True(t, adminExp.Before(userExp))
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	svc := testTokenService()
	signed, _, err := svc.CreateToken("user-1", false)
	require.NoError(t, err)

	other := testTokenService()
	other.Secret = []byte("different")
	token, _, err := other.ParseToken(signed)
	assert.Error(t, err)
	if token != nil {
		assert.False(t, token.Valid)
	}
}

func TestParseTokenRejectsWrongIssuer(t *testing.T) {
	svc := testTokenService()
	signed, _, err := svc.CreateToken("user-1", false)
	require.NoError(t, err)

	other := testTokenService()
	other.Issuer = "someone-else"
	_, _, err = other.ParseToken(signed)
	assert.Error(t, err)
}
