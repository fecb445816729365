package repo

import (
	"context"
	"strconv"

	"SteamGuard/internal/model"
)

// MaFileExt — расширение файлов записей аккаунтов.
const MaFileExt = ".maFile"

// AccountStore описывает хранилище записей аккаунтов.
// path — ключ записи: путь к файлу (абсолютный или относительно каталога хранилища)
// либо ключ строки в БД.
type AccountStore interface {
	// Load читает запись; отсутствие записи — errs.ErrNotFound.
	Load(ctx context.Context, path string) (*model.AccountRecord, error)

	// Save сохраняет запись надёжно: после успешного возврата запись переживёт падение процесса.
	Save(ctx context.Context, rec *model.AccountRecord, path string) error

	// List возвращает ключи всех сохранённых записей.
	List(ctx context.Context) ([]string, error)
}

// DefaultPath возвращает ключ записи по умолчанию: <account_name>.maFile,
// а если имени ещё нет — <steamid>.maFile.
func DefaultPath(rec *model.AccountRecord) string {
	if rec == nil {
		return ""
	}
	if rec.AccountName != "" {
		return rec.AccountName + MaFileExt
	}
	return strconv.FormatUint(rec.SteamID(), 10) + MaFileExt
}
