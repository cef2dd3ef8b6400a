package utils

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestSessionCookieRoundTrip(t *testing.T) {
    c, err := NewSessionCookie("secret", "abc123", time.Hour)
    require.NoError(t, err)
    assert.True(t, c.Exp.After(time.Now()))

    sid, err := ParseSessionCookie("secret", c.Token)
    require.NoError(t, err)
    assert.Equal(t, "abc123", sid)
}

func TestSessionCookieRejectsWrongSecretAndExpiry(t *testing.T) {
    c, err := NewSessionCookie("secret", "abc123", time.Hour)
    require.NoError(t, err)
    _, err = ParseSessionCookie("other", c.Token)
    assert.ErrorIs(t, err, ErrInvalidCookie)

    expired, err := NewSessionCookie("secret", "abc123", -time.Minute)
    require.NoError(t, err)
    _, err = ParseSessionCookie("secret", expired.Token)
    assert.ErrorIs(t, err, ErrInvalidCookie)

    _, err = ParseSessionCookie("secret", "garbage")
    assert.ErrorIs(t, err, ErrInvalidCookie)
}

func TestRandomHexAndHash(t *testing.T) {
    a, err := RandomHex(16)
    require.NoError(t, err)
    b, err := RandomHex(16)
    require.NoError(t, err)
    assert.Len(t, a, 32)
    assert.NotEqual(t, a, b)
    assert.Equal(t, HashToken(a), HashToken(a))
    assert.Len(t, HashToken(a), 64)
}
