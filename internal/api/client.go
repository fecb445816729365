// Package api — HTTP-транспорт к удалённому сервису: Web API (ITwoFactorService,
// IPhoneService, ...) и мобильный интерфейс подтверждений сообщества.
// Имена полей и параметров фиксированы сервером и не меняются.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"SteamGuard/internal/errs"
	"SteamGuard/internal/middleware"

	"go.uber.org/zap"
)

const (
	// DefaultAPIURL — базовый адрес Web API.
	DefaultAPIURL = "https://api.steampowered.com"
	// DefaultCommunityURL — базовый адрес сообщества (очередь подтверждений).
	DefaultCommunityURL = "https://steamcommunity.com"

	// MobileUserAgent — user agent мобильного приложения; часть эндпоинтов без него отвечает иначе.
	MobileUserAgent = "Dalvik/2.1.0 (Linux; U; Android 9; Valve Steam App Version/3)"

	defaultTimeout = 30 * time.Second
	maxBodySize    = 4 << 20
)

// Options — параметры клиента.
type Options struct {
	APIURL       string
	CommunityURL string
	Timeout      time.Duration
	Transport    http.RoundTripper
	Logger       *zap.SugaredLogger
}

// Client выполняет запросы к сервису. Безопасен для конкурентного использования.
type Client struct {
	http         *http.Client
	apiURL       string
	communityURL string
	logger       *zap.SugaredLogger
}

// NewClient создаёт клиент; пустые поля Options заполняются значениями по умолчанию.
func NewClient(opts Options) *Client {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.CommunityURL == "" {
		opts.CommunityURL = DefaultCommunityURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &Client{
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: middleware.NewLoggingTransport(opts.Transport, opts.Logger),
		},
		apiURL:       strings.TrimRight(opts.APIURL, "/"),
		communityURL: strings.TrimRight(opts.CommunityURL, "/"),
		logger:       opts.Logger,
	}
}

// PostForm отправляет form-urlencoded POST и возвращает тело ответа.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values, cookies []*http.Cookie) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	return c.do(req, cookies)
}

// Get отправляет GET и возвращает тело ответа.
func (c *Client) Get(ctx context.Context, endpoint string, cookies []*http.Cookie) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, cookies)
}

// do выполняет запрос и классифицирует ошибки:
// транспорт/таймаут/5xx/429 → ErrNetwork, 401/403 → ErrAuthorization, прочие не-2xx → ErrProtocol.
// В тексте ошибок только путь: query содержит токены.
func (c *Client) do(req *http.Request, cookies []*http.Cookie) ([]byte, error) {
	req.Header.Set("User-Agent", MobileUserAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %v: %w", req.Method, req.URL.Path, redact(err), errs.ErrNetwork)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %v: %w", req.Method, req.URL.Path, err, errs.ErrNetwork)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%s %s: status %d: %w", req.Method, req.URL.Path, resp.StatusCode, errs.ErrAuthorization)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%s %s: status %d: %w", req.Method, req.URL.Path, resp.StatusCode, errs.ErrNetwork)
	default:
		return nil, fmt.Errorf("%s %s: status %d: %w", req.Method, req.URL.Path, resp.StatusCode, errs.ErrProtocol)
	}
}

// redact убирает URL (с query) из ошибок транспорта.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}

func (c *Client) webAPI(iface, method, version string) string {
	return c.apiURL + "/" + iface + "/" + method + "/" + version + "/"
}

func (c *Client) withToken(endpoint, accessToken string) string {
	if accessToken == "" {
		return endpoint
	}
	return endpoint + "?access_token=" + url.QueryEscape(accessToken)
}
