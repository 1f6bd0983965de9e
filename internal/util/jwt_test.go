package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, exp, err := GenerateToken("secret", "efarina", "id-1", "sess-1", "a@x.com", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "id-1", claims.IdentityID)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "efarina", claims.Issuer)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _, err := GenerateToken("secret", "", "id-1", "sess-1", "", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("other", token)
	assert.Error(t, err)
}

func TestGenerateToken_DefaultTTL(t *testing.T) {
	token, _, err := GenerateToken("secret", "", "id-1", "sess-1", "", -time.Hour)
	require.NoError(t, err)
	// non-positive ttl falls back to one hour
	_, err = ParseToken("secret", token)
	assert.NoError(t, err)
}
