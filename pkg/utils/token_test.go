package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewToken(t *testing.T) {
	a, b := NewToken(), NewToken()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
	assert.Equal(t, strings.ToLower(a), a, "hex tokens are lowercase, safe for as-is lookup")
}

func TestDigestStable(t *testing.T) {
	tok := NewToken()
	assert.Equal(t, Digest(tok), Digest(tok))
	assert.NotEqual(t, Digest(tok), Digest(tok+"x"))
	assert.Len(t, Digest(tok), 64)
}

func TestNewID(t *testing.T) {
	id := NewID()
	assert.Len(t, id, 32)
	assert.NotContains(t, id, "-")
	assert.NotEqual(t, id, NewID())
}

func TestPasswordRoundTrip(t *testing.T) {
	h := HashPassword("secret1")
	assert.NotEqual(t, "secret1", h)
	assert.True(t, CheckPassword("secret1", h))
	assert.False(t, CheckPassword("Secret1", h))
	assert.False(t, CheckPassword("secret1", "not-a-bcrypt-hash"))
}
