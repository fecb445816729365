package model

import (
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session — данные входа, полученные от внешнего провайдера логина.
// Имена JSON-полей совпадают с форматом .maFile.
type Session struct {
	SteamID      uint64 `json:"SteamID"`
	AccessToken  string `json:"AccessToken"`
	RefreshToken string `json:"RefreshToken"`
	SessionID    string `json:"SessionID,omitempty"`
}

const (
	mobileClient        = "android"
	mobileClientVersion = "777777 3.6.4"
)

// Cookies возвращает cookie, которые ожидает мобильный веб-интерфейс подтверждений.
func (s *Session) Cookies() []*http.Cookie {
	cookies := []*http.Cookie{
		{Name: "mobileClient", Value: mobileClient},
		{Name: "mobileClientVersion", Value: mobileClientVersion},
		{Name: "Steam_Language", Value: "english"},
	}
	if s == nil {
		return cookies
	}
	cookies = append(cookies, &http.Cookie{
		Name:  "steamLoginSecure",
		Value: strconv.FormatUint(s.SteamID, 10) + "%7C%7C" + s.AccessToken,
	})
	if s.SessionID != "" {
		cookies = append(cookies, &http.Cookie{Name: "sessionid", Value: s.SessionID})
	}
	return cookies
}

// IsAccessTokenExpired сообщает, истёк ли access-токен на момент now.
// Подпись не проверяется: токен выдан сервером и нам нужен только срок жизни.
func (s *Session) IsAccessTokenExpired(now time.Time) bool {
	if s == nil {
		return true
	}
	return tokenExpired(s.AccessToken, now)
}

// IsRefreshTokenExpired сообщает, истёк ли refresh-токен на момент now.
func (s *Session) IsRefreshTokenExpired(now time.Time) bool {
	if s == nil {
		return true
	}
	return tokenExpired(s.RefreshToken, now)
}

func tokenExpired(raw string, now time.Time) bool {
	if raw == "" {
		return true
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
