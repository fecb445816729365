package service

import (
	"context"
	"testing"

	"SteamGuard/internal/crypto"
	"SteamGuard/internal/errs"
	"SteamGuard/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentCode(t *testing.T) {
	secret, err := crypto.DecodeSecret("cnOgv/KdpLoP6Nbh0GMkXkPXALQ=")
	require.NoError(t, err)
	rec := &model.AccountRecord{SharedSecret: secret}

	code, remaining, err := CurrentCode(context.Background(), &fixedClock{t: 1700000000}, rec)
	require.NoError(t, err)
	assert.Equal(t, "X45RP", code)
	assert.Equal(t, int64(10), remaining)

	code, remaining, err = CurrentCode(context.Background(), &fixedClock{t: 1700000010}, rec)
	require.NoError(t, err)
	assert.Equal(t, "YWH3Q", code)
	assert.Equal(t, int64(30), remaining)

	// середина того же окна: код прежний, остаток убывает
	code, remaining, err = CurrentCode(context.Background(), &fixedClock{t: 1700000015}, rec)
	require.NoError(t, err)
	assert.Equal(t, "YWH3Q", code)
	assert.Equal(t, int64(25), remaining)
}

func TestCurrentCode_InvalidSecret(t *testing.T) {
	_, _, err := CurrentCode(context.Background(), &fixedClock{t: 1}, &model.AccountRecord{})
	assert.ErrorIs(t, err, errs.ErrInvalidSecret)

	_, _, err = CurrentCode(context.Background(), &fixedClock{t: 1}, nil)
	assert.ErrorIs(t, err, errs.ErrInvalidSecret)
}
