package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{Backoff: time.Second, MaxBackoff: 5 * time.Second}
	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 5*time.Second, p.Delay(4))
	// бюджет 5 попыток: после пятой пауз нет
	assert.Equal(t, time.Duration(0), p.Delay(5))
	assert.Equal(t, time.Duration(0), p.Delay(100))

	short := RetryPolicy{MaxAttempts: 3, Backoff: time.Second}
	assert.Equal(t, 2*time.Second, short.Delay(2))
	assert.Equal(t, time.Duration(0), short.Delay(3))

	// начальная пауза больше потолка
	assert.Equal(t, 5*time.Second, RetryPolicy{Backoff: time.Minute, MaxBackoff: 5 * time.Second}.Delay(1))

	assert.Equal(t, time.Duration(0), RetryPolicy{}.Delay(3))
}

func TestRetryPolicy_Attempts(t *testing.T) {
	assert.Equal(t, 5, RetryPolicy{}.Attempts())
	assert.Equal(t, 2, RetryPolicy{MaxAttempts: 2}.Attempts())
	assert.Equal(t, 5, DefaultRetryPolicy().Attempts())
}

func TestRetryPolicy_WaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := RetryPolicy{Backoff: time.Hour}
	assert.ErrorIs(t, p.Wait(ctx, 1), context.Canceled)
}

func TestRetryPolicy_WaitZero(t *testing.T) {
	assert.NoError(t, RetryPolicy{}.Wait(context.Background(), 1))
}

func TestRetryPolicy_WaitUsesSleep(t *testing.T) {
	var got time.Duration
	p := RetryPolicy{Backoff: 3 * time.Second, Sleep: func(_ context.Context, d time.Duration) error {
		got = d
		return nil
	}}
	assert.NoError(t, p.Wait(context.Background(), 2))
	assert.Equal(t, 6*time.Second, got)
}
