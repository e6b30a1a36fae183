package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenManager_AccessToken(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Minute, 0)

	token, err := tm.GenerateAccessToken("guest-42", "guest@hotel.test", []string{RoleGuest})
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "guest-42", claims.UserID)
	assert.Equal(t, "guest-42", claims.Subject)
	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.True(t, claims.HasRole(RoleGuest))
	assert.False(t, claims.HasRole(RoleAdmin))
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_RefreshToken(t *testing.T) {
	tm := NewTokenManager(testSecret, 0, 0)

	token, err := tm.GenerateRefreshToken("guest-42", "")
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.Type)
	assert.Empty(t, claims.Roles)
}

func TestTokenManager_ValidateToken(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Minute, 0)

	t.Run("Wrong secret", func(t *testing.T) {
		token, err := NewTokenManager("another-secret-another-secret-123", time.Minute, 0).GenerateAccessToken("u", "", nil)
		require.NoError(t, err)
		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		claims := UserClaims{
			UserID: "u",
			Type:   TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("Subject fills user id", func(t *testing.T) {
		claims := UserClaims{
			Type:             TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{Subject: "from-sub"},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		got, err := tm.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "from-sub", got.UserID)
	})

	t.Run("No identity", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, UserClaims{Type: TokenTypeAccess}).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := tm.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
