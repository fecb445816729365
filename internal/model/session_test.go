package model

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "76561197960287930",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func TestSession_IsAccessTokenExpired(t *testing.T) {
	now := time.Unix(1700000000, 0)

	fresh := &Session{AccessToken: signedToken(t, now.Add(time.Hour))}
	assert.False(t, fresh.IsAccessTokenExpired(now))

	stale := &Session{AccessToken: signedToken(t, now.Add(-time.Minute))}
	assert.True(t, stale.IsAccessTokenExpired(now))

	// мусор вместо JWT считаем истёкшим
	assert.True(t, (&Session{AccessToken: "not-a-jwt"}).IsAccessTokenExpired(now))
	assert.True(t, (&Session{}).IsAccessTokenExpired(now))

	var nilSession *Session
	assert.True(t, nilSession.IsAccessTokenExpired(now))
	assert.True(t, nilSession.IsRefreshTokenExpired(now))
}

func TestSession_IsRefreshTokenExpired(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := &Session{RefreshToken: signedToken(t, now.Add(24*time.Hour))}
	assert.False(t, s.IsRefreshTokenExpired(now))
	assert.True(t, s.IsRefreshTokenExpired(now.Add(48*time.Hour)))
}

func TestSession_Cookies(t *testing.T) {
	s := &Session{SteamID: 76561197960287930, AccessToken: "tok", SessionID: "sid"}
	got := map[string]string{}
	for _, c := range s.Cookies() {
		got[c.Name] = c.Value
	}
	assert.Equal(t, "76561197960287930%7C%7Ctok", got["steamLoginSecure"])
	assert.Equal(t, "sid", got["sessionid"])
	assert.Equal(t, "android", got["mobileClient"])

	var nilSession *Session
	assert.Len(t, nilSession.Cookies(), 3)
}
