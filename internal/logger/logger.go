// Package logger собирает zap-логгер клиента. Логи пишутся в stderr,
// stdout остаётся за выводом команд (коды, списки подтверждений).
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New создаёт SugaredLogger с уровнем level (debug, info, warn, error).
// Возвращаемую функцию sync нужно вызвать перед выходом.
func New(level string) (*zap.SugaredLogger, func(), error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = lvl > zapcore.DebugLevel

	l, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}
	sugar := l.Sugar()
	return sugar, func() { _ = l.Sync() }, nil
}
