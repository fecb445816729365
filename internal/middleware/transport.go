package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LoggingTransport — исходящий http.RoundTripper, логирующий обращения к сервису.
// Query string не логируется: там access_token и подписи подтверждений.
type LoggingTransport struct {
	Next   http.RoundTripper
	Logger *zap.SugaredLogger
}

// NewLoggingTransport оборачивает next (или http.DefaultTransport, если next == nil).
func NewLoggingTransport(next http.RoundTripper, logger *zap.SugaredLogger) *LoggingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = log
	}
	return &LoggingTransport{Next: next, Logger: logger}
}

// RoundTrip выполняет запрос и пишет одну строку лога.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.Next.RoundTrip(req)
	fields := []any{
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
		"duration", time.Since(start),
	}
	if err != nil {
		t.Logger.Warnw("outbound request failed", append(fields, "error", err)...)
		return nil, err
	}
	t.Logger.Debugw("outbound request", append(fields, "status", resp.StatusCode)...)
	return resp, nil
}
