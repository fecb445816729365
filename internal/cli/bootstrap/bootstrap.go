package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"SteamGuard/internal/api"
	"SteamGuard/internal/config"
	"SteamGuard/internal/errs"
	"SteamGuard/internal/model"
	"SteamGuard/internal/repo"
	fsrepo "SteamGuard/internal/repo/fs"
	"SteamGuard/internal/repo/gormrepo"
	"SteamGuard/internal/service"
	"SteamGuard/internal/timealign"

	"go.uber.org/zap"
)

// Env — собранные зависимости для команд CLI.
type Env struct {
	Cfg     *config.Config
	Log     *zap.SugaredLogger
	Client  *api.Client
	Aligner *timealign.Aligner
	Store   repo.AccountStore
	Policy  service.RetryPolicy

	cleanup func() error
}

// Open собирает клиент, выравнивание времени и хранилище по конфигурации.
// Close необходимо вызвать после окончания работы, чтобы закрыть соединение с БД.
func Open(cfg *config.Config, log *zap.SugaredLogger) (*Env, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	store, cleanup, err := OpenAccountStore(cfg)
	if err != nil {
		return nil, err
	}
	client := api.NewClient(api.Options{
		APIURL:       cfg.APIBaseURL,
		CommunityURL: cfg.CommunityURL,
		Timeout:      cfg.HTTPTimeout,
		Logger:       log,
	})
	policy := service.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.MaxAttempts
	policy.Backoff = cfg.RetryBackoff

	return &Env{
		Cfg:     cfg,
		Log:     log,
		Client:  client,
		Aligner: timealign.New(client, timealign.WithLogger(log)),
		Store:   store,
		Policy:  policy,
		cleanup: cleanup,
	}, nil
}

// Close освобождает ресурсы хранилища. Повторный вызов безопасен.
func (e *Env) Close() error {
	if e == nil || e.cleanup == nil {
		return nil
	}
	c := e.cleanup
	e.cleanup = nil
	return c()
}

// OpenAccountStore открывает хранилище записей: БД при заданном DatabaseDSN, иначе каталог .maFile.
// Возвращает (store, cleanup, error).
func OpenAccountStore(cfg *config.Config) (repo.AccountStore, func() error, error) {
	if cfg.DatabaseDSN != "" {
		db, err := gormrepo.InitDB(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open account db: %w", err)
		}
		r := gormrepo.NewAccountRepository(db)
		return r, r.Close, nil
	}
	st, err := fsrepo.NewMaFileStore(cfg.AccountsDir, cfg.Passkey)
	if err != nil {
		return nil, nil, fmt.Errorf("open accounts dir: %w", err)
	}
	return st, func() error { return nil }, nil
}

// ResolveAccount находит запись по имени аккаунта или ключу хранилища.
// Пустое имя допустимо, если в хранилище ровно одна запись.
// Возвращает запись и её ключ.
func ResolveAccount(ctx context.Context, store repo.AccountStore, name string) (*model.AccountRecord, string, error) {
	if name == "" {
		keys, err := store.List(ctx)
		if err != nil {
			return nil, "", err
		}
		switch len(keys) {
		case 0:
			return nil, "", fmt.Errorf("no accounts: %w", errs.ErrNotFound)
		case 1:
			name = keys[0]
		default:
			return nil, "", fmt.Errorf("several accounts stored, specify one of: %s", strings.Join(keys, ", "))
		}
	}
	key := name
	if !strings.HasSuffix(key, repo.MaFileExt) {
		key += repo.MaFileExt
	}
	rec, err := store.Load(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return rec, key, nil
}
