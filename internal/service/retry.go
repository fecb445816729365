package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultMaxAttempts = 5
	defaultMaxBackoff  = 30 * time.Second
)

// RetryPolicy ограничивает число попыток и задаёт паузы между ними.
// Пауза растёт экспоненциально: Backoff, 2*Backoff, 4*Backoff... но не больше MaxBackoff.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration

	// Sleep подменяет ожидание (в тестах — без реального сна).
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy — 5 попыток, пауза от 2 секунд.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: defaultMaxAttempts,
		Backoff:     2 * time.Second,
		MaxBackoff:  defaultMaxBackoff,
	}
}

// Attempts возвращает лимит попыток (не меньше одной).
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts <= 0 {
		return defaultMaxAttempts
	}
	return p.MaxAttempts
}

// Delay возвращает паузу перед попыткой attempt+1 (attempt считается с 1).
// После исчерпания MaxAttempts пауза нулевая.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.Backoff <= 0 || attempt < 1 || attempt >= p.Attempts() {
		return 0
	}
	b := p.backOff()
	var d time.Duration
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
		if d == backoff.Stop {
			return 0
		}
	}
	return d
}

// backOff — экспоненциальная последовательность пауз без случайного разброса,
// ограниченная числом повторов.
func (p RetryPolicy) backOff() backoff.BackOff {
	limit := p.MaxBackoff
	if limit <= 0 {
		limit = defaultMaxBackoff
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = min(p.Backoff, limit)
	eb.MaxInterval = limit
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0

	b := backoff.WithMaxRetries(eb, uint64(p.Attempts()-1))
	b.Reset()
	return b
}

// Wait ждёт паузу после неудачной попытки attempt или отмены контекста.
func (p RetryPolicy) Wait(ctx context.Context, attempt int) error {
	d := p.Delay(attempt)
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
