package service

import (
	"context"
	"net/http"
	"net/url"

	"SteamGuard/internal/api"
)

// Clock — синхронизированное время в unix-секундах (timealign.Aligner).
type Clock interface {
	Now(ctx context.Context) int64
}

// SyncClock — Clock с явной ресинхронизацией.
type SyncClock interface {
	Clock
	Sync(ctx context.Context) error
}

// EnrollmentAPI — удалённые вызовы, нужные для привязки аутентификатора.
type EnrollmentAPI interface {
	AddAuthenticator(ctx context.Context, accessToken string, req api.AddAuthenticatorRequest) (*api.AddAuthenticatorResponse, error)
	FinalizeAddAuthenticator(ctx context.Context, accessToken string, req api.FinalizeRequest) (*api.FinalizeResponse, error)
	SetAccountPhoneNumber(ctx context.Context, accessToken, phone, countryCode string) (*api.SetPhoneResponse, error)
	IsAccountWaitingForEmailConfirmation(ctx context.Context, accessToken string) (*api.EmailConfirmationResponse, error)
	SendPhoneVerificationCode(ctx context.Context, accessToken string) error
	GetUserCountry(ctx context.Context, accessToken string, steamID uint64) (string, error)
}

// ConfirmationAPI — вызовы мобильного веб-интерфейса подтверждений.
type ConfirmationAPI interface {
	GetConfirmations(ctx context.Context, params url.Values, cookies []*http.Cookie) (*api.ConfirmationsResponse, error)
	SendConfirmation(ctx context.Context, params url.Values, cookies []*http.Cookie) (*api.ConfirmationActionResponse, error)
	SendMultiConfirmation(ctx context.Context, form url.Values, cookies []*http.Cookie) (*api.ConfirmationActionResponse, error)
}

// TokenAPI обменивает refresh-токен на новый access-токен.
type TokenAPI interface {
	GenerateAccessToken(ctx context.Context, refreshToken string, steamID uint64) (string, string, error)
}

// RemovalAPI отвязывает аутентификатор.
type RemovalAPI interface {
	RemoveAuthenticator(ctx context.Context, accessToken string, req api.RemoveRequest) (*api.RemoveResponse, error)
}

var (
	_ EnrollmentAPI   = (*api.Client)(nil)
	_ ConfirmationAPI = (*api.Client)(nil)
	_ TokenAPI        = (*api.Client)(nil)
	_ RemovalAPI      = (*api.Client)(nil)
)
