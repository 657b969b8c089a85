package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestSessionTokenRoundTrip(t *testing.T) {
	now := time.Now()
	token, expiresAt, err := NewSessionToken(secret, now)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(SessionTTL), expiresAt, time.Second)

	assert.NoError(t, VerifySessionToken(token, secret))
	assert.NoError(t, VerifySessionToken("Bearer "+token, secret))
}

func TestSessionTokenWrongSecret(t *testing.T) {
	token, _, err := NewSessionToken(secret, time.Now())
	require.NoError(t, err)
	assert.Error(t, VerifySessionToken(token, []byte("other-secret")))
}

func TestSessionTokenExpired(t *testing.T) {
	token, _, err := NewSessionToken(secret, time.Now().Add(-SessionTTL-time.Hour))
	require.NoError(t, err)
	assert.Error(t, VerifySessionToken(token, secret))
}

func TestSessionTokenMissing(t *testing.T) {
	assert.Error(t, VerifySessionToken("", secret))
	assert.Error(t, VerifySessionToken("Bearer ", secret))
	assert.Error(t, VerifySessionToken("not-a-token", secret))
}

func TestMissingSecret(t *testing.T) {
	_, _, err := NewSessionToken(nil, time.Now())
	assert.Error(t, err)
}
