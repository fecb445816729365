package service

import (
	"context"
	"fmt"

	"SteamGuard/internal/crypto"
	"SteamGuard/internal/errs"
	"SteamGuard/internal/model"
)

// CurrentCode возвращает код входа для синхронизированного времени
// и число секунд до смены кода.
func CurrentCode(ctx context.Context, clock Clock, rec *model.AccountRecord) (string, int64, error) {
	if rec == nil {
		return "", 0, fmt.Errorf("nil account record: %w", errs.ErrInvalidSecret)
	}
	ts := clock.Now(ctx)
	code, err := crypto.GenerateCode(rec.SharedSecret, ts)
	if err != nil {
		return "", 0, err
	}
	return code, crypto.SecondsRemaining(ts), nil
}
