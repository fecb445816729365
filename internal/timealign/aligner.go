// Package timealign выравнивает локальные часы по серверному времени.
// Коды и подписи подтверждений считаются от синхронизированного времени,
// поэтому расхождение часов напрямую ломает вход и подтверждения.
package timealign

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// TimeSource — авторитетный источник времени (unix-секунды сервера).
type TimeSource interface {
	QueryTime(ctx context.Context) (int64, error)
}

// Aligner хранит смещение серверного времени относительно локальных часов.
//
// Смещение пишется редко (первый запрос и явная ресинхронизация) и читается
// постоянно. Параллельные первые вызовы могут сделать несколько запросов —
// принимается последнее записанное значение.
type Aligner struct {
	source TimeSource
	clock  func() time.Time
	logger *zap.SugaredLogger

	offset    atomic.Int64
	attempted atomic.Bool
	degraded  atomic.Bool
}

// Option настраивает Aligner.
type Option func(*Aligner)

// WithClock подменяет локальные часы (для тестов).
func WithClock(clock func() time.Time) Option {
	return func(a *Aligner) { a.clock = clock }
}

// WithLogger задаёт логгер.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(a *Aligner) { a.logger = l }
}

// New создаёт Aligner поверх источника времени.
func New(source TimeSource, opts ...Option) *Aligner {
	a := &Aligner{
		source: source,
		clock:  time.Now,
		logger: zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Now возвращает синхронизированное время в unix-секундах.
// Первый вызов один раз опрашивает источник; при ошибке используется локальное
// время без смещения и выставляется признак Degraded.
func (a *Aligner) Now(ctx context.Context) int64 {
	if !a.attempted.Load() {
		_ = a.Sync(ctx)
	}
	return a.clock().Unix() + a.offset.Load()
}

// Sync запрашивает серверное время и обновляет смещение.
// При ошибке прежнее смещение сохраняется.
func (a *Aligner) Sync(ctx context.Context) error {
	// attempted выставляется последним: кто его увидел, увидит и смещение.
	defer a.attempted.Store(true)
	if a.source == nil {
		a.degraded.Store(true)
		return nil
	}
	serverTime, err := a.source.QueryTime(ctx)
	if err != nil {
		a.degraded.Store(true)
		a.logger.Warnw("time sync failed, using local clock", "error", err, "offset", a.offset.Load())
		return err
	}
	offset := serverTime - a.clock().Unix()
	a.offset.Store(offset)
	a.degraded.Store(false)
	a.logger.Debugw("time aligned", "offset", offset)
	return nil
}

// Offset возвращает текущее смещение в секундах.
func (a *Aligner) Offset() int64 { return a.offset.Load() }

// Degraded сообщает, что последняя синхронизация не удалась.
func (a *Aligner) Degraded() bool { return a.degraded.Load() }
