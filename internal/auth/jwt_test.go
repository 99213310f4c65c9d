package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	mgr := NewJWTManager("test-secret-at-least-32-characters-long", time.Hour)
	accountID := uuid.New()

	token, err := mgr.GenerateToken(accountID, "sharp_bettor")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := mgr.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, accountID.String(), claims.Subject)
	assert.Equal(t, "sharp_bettor", claims.Username)

	parsed, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, accountID, parsed)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	mgr := NewJWTManager("test-secret-at-least-32-characters-long", time.Hour)
	other := NewJWTManager("another-secret-at-least-32-chars-long!!", time.Hour)

	token, err := mgr.GenerateToken(uuid.New(), "someone")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	mgr := NewJWTManager("test-secret-at-least-32-characters-long", -time.Minute)

	token, err := mgr.GenerateToken(uuid.New(), "someone")
	require.NoError(t, err)

	_, err = mgr.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	mgr := NewJWTManager("test-secret-at-least-32-characters-long", time.Hour)
	_, err := mgr.ValidateToken("not.a.token")
	require.Error(t, err)
}
