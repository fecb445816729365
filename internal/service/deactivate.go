package service

import (
	"context"
	"fmt"

	"SteamGuard/internal/api"
	"SteamGuard/internal/errs"
	"SteamGuard/internal/model"
)

// Схемы Steam Guard после отвязки аутентификатора.
const (
	SchemeEmail = 1
	SchemeNone  = 2
)

// RemoveAuthenticator отвязывает аутентификатор на сервере по коду отзыва.
// Локальная запись не удаляется: это решает вызывающий код.
func RemoveAuthenticator(ctx context.Context, client RemovalAPI, rec *model.AccountRecord, scheme int) (*api.RemoveResponse, error) {
	if rec == nil || rec.RevocationCode == "" {
		return nil, fmt.Errorf("revocation code missing: %w", errs.ErrState)
	}
	if rec.Session == nil || rec.Session.AccessToken == "" {
		return nil, fmt.Errorf("account %q has no session: %w", rec.AccountName, errs.ErrState)
	}
	if scheme != SchemeEmail && scheme != SchemeNone {
		scheme = SchemeEmail
	}
	resp, err := client.RemoveAuthenticator(ctx, rec.Session.AccessToken, api.RemoveRequest{
		SteamID:        rec.SteamID(),
		RevocationCode: rec.RevocationCode,
		Scheme:         scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("remove authenticator: %w", err)
	}
	return resp, nil
}
