package token_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockroom/stockroom-backend/internal/identity/token"
	"github.com/stockroom/stockroom-backend/pkg/config"
	"github.com/stockroom/stockroom-backend/pkg/errors"
)

func newManager(accessExpiry time.Duration) *token.Manager {
	return token.NewManager(&config.JWTConfig{
		Secret:        "test-secret",
		AccessExpiry:  accessExpiry,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "stockroom-test",
	})
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	m := newManager(15 * time.Minute)

	pair, err := m.GenerateTokenPair(&token.UserInfo{
		ID:       42,
		Username: "alice",
		Email:    "alice@example.com",
		IsStaff:  true,
	}, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)

	claims, err := m.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.IsStaff)

	refresh, err := m.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), refresh.UserID)
	assert.Equal(t, "session-1", refresh.SessionID)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	m := newManager(-time.Minute)

	pair, err := m.GenerateTokenPair(&token.UserInfo{ID: 1, Username: "alice"}, "")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.AccessToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenExpired))
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	m := newManager(15 * time.Minute)
	other := token.NewManager(&config.JWTConfig{
		Secret:        "other-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "stockroom-test",
	})

	pair, err := other.GenerateTokenPair(&token.UserInfo{ID: 1, Username: "alice"}, "")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.AccessToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	m := newManager(15 * time.Minute)

	_, err := m.ValidateAccessToken("not-a-jwt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
}
