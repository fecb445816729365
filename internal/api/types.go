package api

import (
	"bytes"
	"encoding/json"
	"strconv"

	"SteamGuard/internal/model"
)

// Int64String — число, которое сервер присылает то строкой, то числом.
type Int64String int64

// UnmarshalJSON принимает и "123", и 123.
func (n *Int64String) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return err
	}
	*n = Int64String(v)
	return nil
}

// MarshalJSON пишет значение строкой, как это делает сервер.
func (n Int64String) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(n), 10))
}

// envelope — обёртка {"response": {...}} ответов Web API.
type envelope[T any] struct {
	Response *T `json:"response"`
}

// QueryTimeResponse — ответ ITwoFactorService/QueryTime.
type QueryTimeResponse struct {
	ServerTime           Int64String `json:"server_time"`
	SkewToleranceSeconds Int64String `json:"skew_tolerance_seconds"`
	LargeTimeJink        Int64String `json:"large_time_jink"`
}

// Коды статуса AddAuthenticator / FinalizeAddAuthenticator.
const (
	StatusOK                   = 1
	StatusMustProvidePhone     = 2
	StatusAuthenticatorPresent = 29
	StatusUnableToGenerateCode = 88
	StatusBadSMSCode           = 89
)

// AddAuthenticatorRequest — параметры ITwoFactorService/AddAuthenticator.
type AddAuthenticatorRequest struct {
	SteamID           uint64
	AuthenticatorTime int64
	DeviceID          string
}

// AddAuthenticatorResponse — ответ ITwoFactorService/AddAuthenticator.
// Секреты приходят в base64 и декодируются прямо в []byte.
type AddAuthenticatorResponse struct {
	SharedSecret    []byte      `json:"shared_secret"`
	SerialNumber    string      `json:"serial_number"`
	RevocationCode  string      `json:"revocation_code"`
	URI             string      `json:"uri"`
	ServerTime      Int64String `json:"server_time"`
	AccountName     string      `json:"account_name"`
	TokenGID        string      `json:"token_gid"`
	IdentitySecret  []byte      `json:"identity_secret"`
	Secret1         []byte      `json:"secret_1"`
	Status          int         `json:"status"`
	PhoneNumberHint string      `json:"phone_number_hint"`
	ConfirmType     int         `json:"confirm_type"`
}

// FinalizeRequest — параметры ITwoFactorService/FinalizeAddAuthenticator.
type FinalizeRequest struct {
	SteamID           uint64
	AuthenticatorCode string
	AuthenticatorTime int64
	ActivationCode    string
}

// FinalizeResponse — ответ ITwoFactorService/FinalizeAddAuthenticator.
type FinalizeResponse struct {
	Status     int         `json:"status"`
	ServerTime Int64String `json:"server_time"`
	WantMore   bool        `json:"want_more"`
	Success    bool        `json:"success"`
}

// SetPhoneResponse — ответ IPhoneService/SetAccountPhoneNumber.
type SetPhoneResponse struct {
	ConfirmationEmailAddress string `json:"confirmation_email_address"`
	PhoneNumberFormatted     string `json:"phone_number_formatted"`
}

// EmailConfirmationResponse — ответ IPhoneService/IsAccountWaitingForEmailConfirmation.
type EmailConfirmationResponse struct {
	AwaitingEmailConfirmation bool `json:"awaiting_email_confirmation"`
	SecondsToWait             int  `json:"seconds_to_wait"`
}

type userCountryResponse struct {
	Country string `json:"country"`
}

// RemoveRequest — параметры ITwoFactorService/RemoveAuthenticator.
type RemoveRequest struct {
	SteamID        uint64
	RevocationCode string
	// Scheme: 1 — вернуться к кодам по почте, 2 — отключить защиту полностью.
	Scheme int
}

// RemoveResponse — ответ ITwoFactorService/RemoveAuthenticator.
type RemoveResponse struct {
	Success                     bool `json:"success"`
	RevocationAttemptsRemaining int  `json:"revocation_attempts_remaining"`
}

type accessTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ConfirmationsResponse — ответ mobileconf/getlist.
type ConfirmationsResponse struct {
	Success       bool                 `json:"success"`
	NeedAuth      bool                 `json:"needauth"`
	Message       string               `json:"message"`
	Detail        string               `json:"detail"`
	Confirmations []model.Confirmation `json:"conf"`
}

// ConfirmationActionResponse — ответ mobileconf/ajaxop и multiajaxop.
type ConfirmationActionResponse struct {
	Success  bool   `json:"success"`
	NeedAuth bool   `json:"needauth"`
	Message  string `json:"message"`
}
