package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"SteamGuard/internal/crypto"
	"SteamGuard/internal/errs"
	"SteamGuard/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	tagList  = "list"
	opAllow  = "allow"
	opCancel = "cancel"
	confMode = "react"
)

// ConfirmationsOptions — зависимости менеджера подтверждений.
type ConfirmationsOptions struct {
	API    ConfirmationAPI
	Clock  SyncClock
	Policy RetryPolicy
	Logger *zap.SugaredLogger

	// Sessions обновляет истёкший access-токен перед запросом; nil — не обновлять.
	Sessions *SessionRefresher
}

// Confirmations получает и подтверждает/отклоняет ожидающие операции аккаунта.
// Вызовы для разных аккаунтов независимы и могут выполняться параллельно.
type Confirmations struct {
	api      ConfirmationAPI
	clock    SyncClock
	policy   RetryPolicy
	log      *zap.SugaredLogger
	sessions *SessionRefresher
}

// NewConfirmations создаёт менеджер подтверждений.
func NewConfirmations(opts ConfirmationsOptions) *Confirmations {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Confirmations{
		api:      opts.API,
		clock:    opts.Clock,
		policy:   opts.Policy,
		log:      log,
		sessions: opts.Sessions,
	}
}

// Fetch возвращает очередь подтверждений в порядке сервера. Пустая очередь — не ошибка.
// Сетевые сбои повторяются в пределах RetryPolicy; подпись считается заново на каждую попытку.
func (c *Confirmations) Fetch(ctx context.Context, rec *model.AccountRecord) ([]model.Confirmation, error) {
	if err := c.prepare(ctx, rec); err != nil {
		return nil, err
	}
	limit := c.policy.Attempts()
	var lastErr error
	for attempt := 1; attempt <= limit; attempt++ {
		items, err := c.fetchOnce(ctx, rec)
		if err == nil {
			return items, nil
		}
		lastErr = err
		if !errors.Is(err, errs.ErrNetwork) || attempt == limit {
			break
		}
		c.log.Warnw("fetch confirmations failed, retrying", "steamid", rec.SteamID(), "attempt", attempt, "error", err)
		if werr := c.policy.Wait(ctx, attempt); werr != nil {
			return nil, fmt.Errorf("fetch confirmations: %w", werr)
		}
	}
	c.resyncOnAuth(ctx, lastErr)
	return nil, fmt.Errorf("fetch confirmations: %w", lastErr)
}

func (c *Confirmations) fetchOnce(ctx context.Context, rec *model.AccountRecord) ([]model.Confirmation, error) {
	params, err := c.signed(ctx, rec, tagList)
	if err != nil {
		return nil, err
	}
	params.Set("tag", tagList)
	resp, err := c.api.GetConfirmations(ctx, params, cookies(rec))
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = resp.Detail
		}
		return nil, fmt.Errorf("confirmations rejected: %q: %w", msg, errs.ErrAuthorization)
	}
	if resp.Confirmations == nil {
		return []model.Confirmation{}, nil
	}
	return resp.Confirmations, nil
}

// Accept подтверждает операцию. false без ошибки — сервер отказал (например, подтверждение устарело).
func (c *Confirmations) Accept(ctx context.Context, rec *model.AccountRecord, item model.Confirmation) (bool, error) {
	return c.respond(ctx, rec, item, opAllow)
}

// Deny отклоняет операцию.
func (c *Confirmations) Deny(ctx context.Context, rec *model.AccountRecord, item model.Confirmation) (bool, error) {
	return c.respond(ctx, rec, item, opCancel)
}

// AcceptMultiple подтверждает несколько операций одним запросом.
// Результат общий: сервер не сообщает исход по каждой операции.
func (c *Confirmations) AcceptMultiple(ctx context.Context, rec *model.AccountRecord, items []model.Confirmation) (bool, error) {
	return c.respondMulti(ctx, rec, items, opAllow)
}

// DenyMultiple отклоняет несколько операций одним запросом.
func (c *Confirmations) DenyMultiple(ctx context.Context, rec *model.AccountRecord, items []model.Confirmation) (bool, error) {
	return c.respondMulti(ctx, rec, items, opCancel)
}

// respond — мутирующий запрос, внутри не повторяется.
func (c *Confirmations) respond(ctx context.Context, rec *model.AccountRecord, item model.Confirmation, op string) (bool, error) {
	if err := c.prepare(ctx, rec); err != nil {
		return false, err
	}
	params, err := c.signed(ctx, rec, op)
	if err != nil {
		return false, err
	}
	params.Set("op", op)
	params.Set("tag", op)
	params.Set("cid", item.ID)
	params.Set("ck", item.Nonce)

	resp, err := c.api.SendConfirmation(ctx, params, cookies(rec))
	if err != nil {
		c.resyncOnAuth(ctx, err)
		return false, fmt.Errorf("%s confirmation %s: %w", op, item.ID, err)
	}
	c.log.Infow("confirmation", "op", op, "id", item.ID, "type", item.Type.String(), "success", resp.Success)
	return resp.Success, nil
}

func (c *Confirmations) respondMulti(ctx context.Context, rec *model.AccountRecord, items []model.Confirmation, op string) (bool, error) {
	if len(items) == 0 {
		return true, nil
	}
	if err := c.prepare(ctx, rec); err != nil {
		return false, err
	}
	form, err := c.signed(ctx, rec, op)
	if err != nil {
		return false, err
	}
	form.Set("op", op)
	form.Set("tag", op)
	for _, it := range items {
		form.Add("cid[]", it.ID)
		form.Add("ck[]", it.Nonce)
	}

	resp, err := c.api.SendMultiConfirmation(ctx, form, cookies(rec))
	if err != nil {
		c.resyncOnAuth(ctx, err)
		return false, fmt.Errorf("%s %d confirmations: %w", op, len(items), err)
	}
	c.log.Infow("confirmations batch", "op", op, "count", len(items), "success", resp.Success)
	return resp.Success, nil
}

// prepare проверяет запись и при необходимости обновляет сессию.
func (c *Confirmations) prepare(ctx context.Context, rec *model.AccountRecord) error {
	if rec == nil || len(rec.IdentitySecret) == 0 {
		return fmt.Errorf("identity secret missing: %w", errs.ErrInvalidSecret)
	}
	if rec.Session == nil || rec.Session.SteamID == 0 {
		return fmt.Errorf("account %q has no session: %w", rec.AccountName, errs.ErrState)
	}
	if c.sessions != nil {
		if _, err := c.sessions.Ensure(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// signed формирует параметры p, a, k, t, m с подписью для тега tag по текущему синхронизированному времени.
func (c *Confirmations) signed(ctx context.Context, rec *model.AccountRecord, tag string) (url.Values, error) {
	ts := c.clock.Now(ctx)
	sig, err := crypto.ConfirmationHash(rec.IdentitySecret, ts, tag)
	if err != nil {
		return nil, err
	}
	return url.Values{
		"p": {rec.DeviceID},
		"a": {strconv.FormatUint(rec.SteamID(), 10)},
		"k": {sig},
		"t": {strconv.FormatInt(ts, 10)},
		"m": {confMode},
	}, nil
}

// resyncOnAuth: отказ в подписи почти всегда означает уплывшие часы.
func (c *Confirmations) resyncOnAuth(ctx context.Context, err error) {
	if !errors.Is(err, errs.ErrAuthorization) {
		return
	}
	if serr := c.clock.Sync(ctx); serr != nil {
		c.log.Warnw("time resync after rejected signature failed", "error", serr)
	}
}

// cookies — cookie сессии; sessionid генерируется, если его нет в записи.
func cookies(rec *model.AccountRecord) []*http.Cookie {
	s := *rec.Session
	if s.SessionID == "" {
		s.SessionID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return s.Cookies()
}
