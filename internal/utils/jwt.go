package utils // package utils provides helper functions for cookie tokens and hashing

import (
    "crypto/rand"   // secure random number generation
    "crypto/sha256" // SHA‑256 hashing for session ids and bearer tokens
    "encoding/hex"  // hex encoding and decoding functions
    "errors"
    "time" // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for signing the session cookie
)

// ErrInvalidCookie is returned when a session cookie cannot be verified.
var ErrInvalidCookie = errors.New("invalid session cookie")

// SessionCookie represents the signed value placed in the browser cookie.
// Token is the serialized JWT and Exp its expiration time.  The JWT only
// carries the opaque session id; the API bearer token never leaves the
// server.
type SessionCookie struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewSessionCookie builds and signs an HS256 JWT carrying the session id
// in the "sid" claim.
func NewSessionCookie(secret, sid string, ttl time.Duration) (SessionCookie, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "sid": sid,
        "exp": exp.Unix(),
        "iat": now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return SessionCookie{}, err
    }
    return SessionCookie{Token: signed, Exp: exp}, nil
}

// ParseSessionCookie verifies the signature and expiry of raw and returns
// the session id it carries.
func ParseSessionCookie(secret, raw string) (string, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // Only accept HMAC signing; reject "none" and asymmetric algorithms.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidCookie
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return "", ErrInvalidCookie
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return "", ErrInvalidCookie
    }
    sid, _ := claims["sid"].(string)
    if sid == "" {
        return "", ErrInvalidCookie
    }
    return sid, nil
}

// HashToken returns the SHA‑256 hash of raw as a hex string.  Session ids
// and bearer tokens are only ever stored in hashed form.
func HashToken(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}

// RandomHex returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.
func RandomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
