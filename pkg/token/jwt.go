// Package token issues and verifies the portal's JSON Web Tokens.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// ErrWrongTokenType is returned when a refresh token is presented as an access token or vice versa.
var ErrWrongTokenType = errors.New("wrong token type")

// JWTManager signs and verifies HS256 tokens.
type JWTManager struct {
	secretKey       []byte
	accessTokenDur  time.Duration
	refreshTokenDur time.Duration
}

// CustomClaims is what the portal stores in a token on top of the registered claims.
type CustomClaims struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"tokenType"`
	jwt.RegisteredClaims
}

// NewJWTManager creates a JWTManager.
// accessTokenExpireHours and refreshTokenExpireDays set the lifetime of each token kind.
func NewJWTManager(secret string, accessTokenExpireHours, refreshTokenExpireDays int) *JWTManager {
	return &JWTManager{
		secretKey:       []byte(secret),
		accessTokenDur:  time.Hour * time.Duration(accessTokenExpireHours),
		refreshTokenDur: time.Duration(refreshTokenExpireDays) * 24 * time.Hour,
	}
}

// GenerateTokenPair issues an access token and a longer-lived refresh token
// that share one session ID, carried in the jti claim. An empty sessionID
// starts a new session.
func (m *JWTManager) GenerateTokenPair(sessionID, userID, email, role string) (access, refresh string, err error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	access, err = m.sign(sessionID, userID, email, role, TypeAccess, m.accessTokenDur)
	if err != nil {
		return "", "", err
	}
	refresh, err = m.sign(sessionID, userID, email, role, TypeRefresh, m.refreshTokenDur)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// SessionExpiry is the latest time any refresh token issued alongside claims can expire.
func (m *JWTManager) SessionExpiry(claims *CustomClaims) time.Time {
	if claims.IssuedAt == nil {
		return time.Now().Add(m.refreshTokenDur)
	}
	return claims.IssuedAt.Time.Add(m.refreshTokenDur)
}

func (m *JWTManager) sign(sessionID, userID, email, role, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyToken parses tokenString and checks its signature and expiry.
func (m *JWTManager) VerifyToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// VerifyTokenOfType is VerifyToken plus a check of the token kind.
func (m *JWTManager) VerifyTokenOfType(tokenString, tokenType string) (*CustomClaims, error) {
	claims, err := m.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
