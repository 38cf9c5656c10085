package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken(secret, "user-a", "alice", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "user-a", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestParseTokenRejects(t *testing.T) {
	token, err := GenerateToken([]byte("one"), "user-a", "alice", time.Hour)
	require.NoError(t, err)
	_, err = ParseToken([]byte("two"), token)
	assert.Error(t, err, "wrong secret")

	expired, err := GenerateToken([]byte("one"), "user-a", "alice", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken([]byte("one"), expired)
	assert.Error(t, err, "expired")
}
