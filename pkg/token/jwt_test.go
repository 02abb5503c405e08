package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyToken(t *testing.T) {
	m := NewJWTManager("test-secret", 1, 7)

	signed, _, err := m.GenerateTokenPair("", "user-1", "a@college.edu", "student")
	require.NoError(t, err)

	claims, err := m.VerifyTokenOfType(signed, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@college.edu", claims.Email)
	assert.Equal(t, "student", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	m := NewJWTManager("test-secret", 1, 7)

	_, refresh, err := m.GenerateTokenPair("", "user-1", "a@college.edu", "student")
	require.NoError(t, err)

	_, err = m.VerifyTokenOfType(refresh, TypeAccess)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	claims, err := m.VerifyTokenOfType(refresh, TypeRefresh)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	signed, _, err := NewJWTManager("secret-a", 1, 1).GenerateTokenPair("", "u", "e", "admin")
	require.NoError(t, err)

	_, err = NewJWTManager("secret-b", 1, 1).VerifyToken(signed)
	assert.Error(t, err)
}

func TestVerifyToken_Expired(t *testing.T) {
	m := NewJWTManager("test-secret", 1, 1)
	claims := CustomClaims{
		UserID:    "u",
		TokenType: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = m.VerifyToken(signed)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenPairSharesSession(t *testing.T) {
	m := NewJWTManager("test-secret", 1, 7)

	access, refresh, err := m.GenerateTokenPair("", "user-1", "a@college.edu", "student")
	require.NoError(t, err)
	a, err := m.VerifyToken(access)
	require.NoError(t, err)
	r, err := m.VerifyToken(refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, a.ID, r.ID)
	assert.WithinDuration(t, r.ExpiresAt.Time, m.SessionExpiry(a), 5*time.Second)

	next, _, err := m.GenerateTokenPair(a.ID, "user-1", "a@college.edu", "student")
	require.NoError(t, err)
	n, err := m.VerifyToken(next)
	require.NoError(t, err)
	assert.Equal(t, a.ID, n.ID)

	other, _, err := m.GenerateTokenPair("", "user-1", "a@college.edu", "student")
	require.NoError(t, err)
	o, err := m.VerifyToken(other)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, o.ID)
}
