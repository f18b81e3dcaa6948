// Package token issues and validates the JWT session tokens used by the
// HTTP surface.
package token

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stockroom/stockroom-backend/pkg/config"
	"github.com/stockroom/stockroom-backend/pkg/errors"
)

// Claims represents the JWT claims
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsStaff  bool   `json:"is_staff"`
}

// RefreshClaims represents refresh token claims
type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID    int64  `json:"user_id"`
	SessionID string `json:"session_id"`
}

// Manager handles JWT operations
type Manager struct {
	config *config.JWTConfig
}

// NewManager creates a new JWT manager
func NewManager(cfg *config.JWTConfig) *Manager {
	return &Manager{config: cfg}
}

// UserInfo contains user information for token generation
type UserInfo struct {
	ID       int64
	Username string
	Email    string
	IsStaff  bool
}

// TokenPair contains access and refresh tokens
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

// GenerateTokenPair generates both access and refresh tokens
func (m *Manager) GenerateTokenPair(user *UserInfo, sessionID string) (*TokenPair, error) {
	now := time.Now()
	accessExpiry := now.Add(m.config.AccessExpiry)
	refreshExpiry := now.Add(m.config.RefreshExpiry)

	subject := strconv.FormatInt(user.ID, 10)

	accessClaims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsStaff:  user.IsStaff,
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString([]byte(m.config.Secret))
	if err != nil {
		return nil, err
	}

	refreshClaims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(refreshExpiry),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		UserID:    user.ID,
		SessionID: sessionID,
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	refreshTokenString, err := refreshToken.SignedString([]byte(m.config.Secret))
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessTokenString,
		RefreshToken: refreshTokenString,
		ExpiresAt:    accessExpiry,
		TokenType:    "Bearer",
	}, nil
}

// ValidateAccessToken validates an access token and returns the claims
func (m *Manager) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.TokenInvalid()
		}
		return []byte(m.config.Secret), nil
	})

	if err != nil {
		if err.Error() == "token has invalid claims: token is expired" {
			return nil, errors.TokenExpired()
		}
		return nil, errors.TokenInvalid()
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.TokenInvalid()
	}

	return claims, nil
}

// ValidateRefreshToken validates a refresh token and returns the claims
func (m *Manager) ValidateRefreshToken(tokenString string) (*RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.TokenInvalid()
		}
		return []byte(m.config.Secret), nil
	})

	if err != nil {
		if err.Error() == "token has invalid claims: token is expired" {
			return nil, errors.TokenExpired()
		}
		return nil, errors.TokenInvalid()
	}

	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return nil, errors.TokenInvalid()
	}

	return claims, nil
}
