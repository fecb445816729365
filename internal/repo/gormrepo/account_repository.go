package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"SteamGuard/internal/errs"
	"SteamGuard/internal/model"
	"SteamGuard/internal/repo"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// accountRow — строка таблицы accounts. Запись хранится целиком в Data (JSON формата .maFile),
// остальные колонки нужны для поиска.
type accountRow struct {
	Path          string `gorm:"primaryKey;size:255"`
	AccountName   string `gorm:"index;size:64"`
	SteamID       uint64 `gorm:"index"`
	FullyEnrolled bool
	Data          []byte
	UpdatedAt     time.Time
}

func (accountRow) TableName() string { return "accounts" }

// InitDB открывает БД по DSN: postgres:// или host=... — PostgreSQL, иначе SQLite (modernc).
func InitDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("empty database dsn")
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var dial gorm.Dialector
	if isPostgres(dsn) {
		dial = postgres.Open(dsn)
	} else {
		dial = gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&accountRow{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// AccountRepository — AccountStore поверх gorm.
type AccountRepository struct {
	db *gorm.DB
}

var _ repo.AccountStore = (*AccountRepository)(nil)

// NewAccountRepository создаёт репозиторий записей аккаунтов.
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Close закрывает соединение с БД.
func (r *AccountRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Load читает запись по ключу.
func (r *AccountRepository) Load(ctx context.Context, path string) (*model.AccountRecord, error) {
	var row accountRow
	err := r.db.WithContext(ctx).Where("path = ?", path).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", path, errs.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var rec model.AccountRecord
	if err := json.Unmarshal(row.Data, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &rec, nil
}

// Save вставляет или обновляет запись по ключу.
func (r *AccountRepository) Save(ctx context.Context, rec *model.AccountRecord, path string) error {
	if path == "" {
		return errors.New("empty account key")
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	row := accountRow{
		Path:          path,
		AccountName:   rec.AccountName,
		SteamID:       rec.SteamID(),
		FullyEnrolled: rec.FullyEnrolled,
		Data:          data,
		UpdatedAt:     time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// List возвращает ключи всех записей по алфавиту.
func (r *AccountRepository) List(ctx context.Context) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).Model(&accountRow{}).Order("path").Pluck("path", &paths).Error
	return paths, err
}
