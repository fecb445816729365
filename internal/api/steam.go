package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"SteamGuard/internal/errs"
)

// QueryTime возвращает серверное время (unix-секунды). Реализует timealign.TimeSource.
func (c *Client) QueryTime(ctx context.Context) (int64, error) {
	body, err := c.PostForm(ctx, c.webAPI("ITwoFactorService", "QueryTime", "v0001"), url.Values{"steamid": {"0"}}, nil)
	if err != nil {
		return 0, err
	}
	resp, err := decodeResponse[QueryTimeResponse](body)
	if err != nil {
		return 0, err
	}
	if resp.ServerTime == 0 {
		return 0, fmt.Errorf("query time: empty server_time: %w", errs.ErrProtocol)
	}
	return int64(resp.ServerTime), nil
}

// AddAuthenticator начинает привязку аутентификатора к аккаунту.
func (c *Client) AddAuthenticator(ctx context.Context, accessToken string, req AddAuthenticatorRequest) (*AddAuthenticatorResponse, error) {
	form := url.Values{
		"steamid":            {strconv.FormatUint(req.SteamID, 10)},
		"authenticator_time": {strconv.FormatInt(req.AuthenticatorTime, 10)},
		"authenticator_type": {"1"},
		"device_identifier":  {req.DeviceID},
		"sms_phone_id":       {"1"},
	}
	body, err := c.PostForm(ctx, c.withToken(c.webAPI("ITwoFactorService", "AddAuthenticator", "v1"), accessToken), form, nil)
	if err != nil {
		return nil, err
	}
	return decodeResponse[AddAuthenticatorResponse](body)
}

// FinalizeAddAuthenticator подтверждает привязку кодом из SMS и текущим кодом аутентификатора.
func (c *Client) FinalizeAddAuthenticator(ctx context.Context, accessToken string, req FinalizeRequest) (*FinalizeResponse, error) {
	form := url.Values{
		"steamid":            {strconv.FormatUint(req.SteamID, 10)},
		"authenticator_code": {req.AuthenticatorCode},
		"authenticator_time": {strconv.FormatInt(req.AuthenticatorTime, 10)},
		"activation_code":    {req.ActivationCode},
		"validate_sms_code":  {"1"},
	}
	body, err := c.PostForm(ctx, c.withToken(c.webAPI("ITwoFactorService", "FinalizeAddAuthenticator", "v1"), accessToken), form, nil)
	if err != nil {
		return nil, err
	}
	return decodeResponse[FinalizeResponse](body)
}

// SetAccountPhoneNumber привязывает телефон; сервер отвечает адресом почты для подтверждения.
func (c *Client) SetAccountPhoneNumber(ctx context.Context, accessToken, phone, countryCode string) (*SetPhoneResponse, error) {
	form := url.Values{
		"phone_number":       {phone},
		"phone_country_code": {countryCode},
	}
	body, err := c.PostForm(ctx, c.withToken(c.webAPI("IPhoneService", "SetAccountPhoneNumber", "v1"), accessToken), form, nil)
	if err != nil {
		return nil, err
	}
	return decodeResponse[SetPhoneResponse](body)
}

// IsAccountWaitingForEmailConfirmation сообщает, ждёт ли сервер подтверждения по почте.
func (c *Client) IsAccountWaitingForEmailConfirmation(ctx context.Context, accessToken string) (*EmailConfirmationResponse, error) {
	body, err := c.PostForm(ctx, c.withToken(c.webAPI("IPhoneService", "IsAccountWaitingForEmailConfirmation", "v1"), accessToken), url.Values{}, nil)
	if err != nil {
		return nil, err
	}
	return decodeResponse[EmailConfirmationResponse](body)
}

// SendPhoneVerificationCode просит сервер отправить SMS с кодом активации.
func (c *Client) SendPhoneVerificationCode(ctx context.Context, accessToken string) error {
	_, err := c.PostForm(ctx, c.withToken(c.webAPI("IPhoneService", "SendPhoneVerificationCode", "v1"), accessToken), url.Values{"language": {"0"}}, nil)
	return err
}

// GetUserCountry возвращает код страны аккаунта.
func (c *Client) GetUserCountry(ctx context.Context, accessToken string, steamID uint64) (string, error) {
	form := url.Values{"steamid": {strconv.FormatUint(steamID, 10)}}
	body, err := c.PostForm(ctx, c.withToken(c.webAPI("IUserAccountService", "GetUserCountry", "v1"), accessToken), form, nil)
	if err != nil {
		return "", err
	}
	resp, err := decodeResponse[userCountryResponse](body)
	if err != nil {
		return "", err
	}
	return resp.Country, nil
}

// RemoveAuthenticator отвязывает аутентификатор по коду отзыва.
func (c *Client) RemoveAuthenticator(ctx context.Context, accessToken string, req RemoveRequest) (*RemoveResponse, error) {
	scheme := req.Scheme
	if scheme == 0 {
		scheme = 1
	}
	form := url.Values{
		"steamid":           {strconv.FormatUint(req.SteamID, 10)},
		"revocation_code":   {req.RevocationCode},
		"steamguard_scheme": {strconv.Itoa(scheme)},
		"revocation_reason": {"1"},
	}
	body, err := c.PostForm(ctx, c.withToken(c.webAPI("ITwoFactorService", "RemoveAuthenticator", "v1"), accessToken), form, nil)
	if err != nil {
		return nil, err
	}
	return decodeResponse[RemoveResponse](body)
}

// GenerateAccessToken обменивает refresh-токен на новый access-токен.
// Второе значение — новый refresh-токен, если сервер его выдал.
func (c *Client) GenerateAccessToken(ctx context.Context, refreshToken string, steamID uint64) (string, string, error) {
	form := url.Values{
		"refresh_token": {refreshToken},
		"steamid":       {strconv.FormatUint(steamID, 10)},
	}
	body, err := c.PostForm(ctx, c.webAPI("IAuthenticationService", "GenerateAccessTokenForApp", "v1"), form, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := decodeResponse[accessTokenResponse](body)
	if err != nil {
		return "", "", err
	}
	if resp.AccessToken == "" {
		return "", "", fmt.Errorf("generate access token: empty token: %w", errs.ErrAuthorization)
	}
	return resp.AccessToken, resp.RefreshToken, nil
}

// decodeResponse разбирает {"response": {...}}; пустой response — ошибка протокола.
func decodeResponse[T any](body []byte) (*T, error) {
	var env envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response: %v: %w", err, errs.ErrProtocol)
	}
	if env.Response == nil {
		return nil, fmt.Errorf("missing response object: %w", errs.ErrProtocol)
	}
	return env.Response, nil
}
