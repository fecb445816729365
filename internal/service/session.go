package service

import (
	"context"
	"fmt"
	"time"

	"SteamGuard/internal/errs"
	"SteamGuard/internal/model"
	"SteamGuard/internal/repo"

	"go.uber.org/zap"
)

// SessionRefresher обновляет истёкший access-токен по refresh-токену и сохраняет запись.
type SessionRefresher struct {
	api   TokenAPI
	store repo.AccountStore
	now   func() time.Time
	log   *zap.SugaredLogger

	// PathFor — ключ записи в хранилище; по умолчанию repo.DefaultPath.
	PathFor func(rec *model.AccountRecord) string
}

// NewSessionRefresher создаёт SessionRefresher. store может быть nil — тогда запись не сохраняется.
func NewSessionRefresher(api TokenAPI, store repo.AccountStore, logger *zap.SugaredLogger) *SessionRefresher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SessionRefresher{
		api:     api,
		store:   store,
		now:     time.Now,
		log:     logger,
		PathFor: repo.DefaultPath,
	}
}

// Ensure обновляет access-токен записи, если он истёк. Возвращает true, если токен обновлён.
// Запись меняется на месте.
func (r *SessionRefresher) Ensure(ctx context.Context, rec *model.AccountRecord) (bool, error) {
	if rec == nil || rec.Session == nil {
		return false, fmt.Errorf("no session: %w", errs.ErrState)
	}
	now := r.now()
	if !rec.Session.IsAccessTokenExpired(now) {
		return false, nil
	}
	return r.Refresh(ctx, rec)
}

// Refresh безусловно обменивает refresh-токен на новый access-токен.
func (r *SessionRefresher) Refresh(ctx context.Context, rec *model.AccountRecord) (bool, error) {
	if rec == nil || rec.Session == nil {
		return false, fmt.Errorf("no session: %w", errs.ErrState)
	}
	s := rec.Session
	if s.IsRefreshTokenExpired(r.now()) {
		return false, fmt.Errorf("refresh token expired, log in again: %w", errs.ErrAuthorization)
	}
	access, refresh, err := r.api.GenerateAccessToken(ctx, s.RefreshToken, s.SteamID)
	if err != nil {
		return false, fmt.Errorf("refresh session: %w", err)
	}
	s.AccessToken = access
	if refresh != "" {
		s.RefreshToken = refresh
	}
	r.log.Infow("session refreshed", "steamid", s.SteamID)

	if r.store == nil {
		return true, nil
	}
	path := r.PathFor(rec)
	if err := r.store.Save(ctx, rec, path); err != nil {
		return true, fmt.Errorf("save refreshed session %s: %w", path, err)
	}
	return true, nil
}
