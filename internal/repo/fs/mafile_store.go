package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"SteamGuard/internal/crypto"
	"SteamGuard/internal/errs"
	"SteamGuard/internal/model"
	"SteamGuard/internal/repo"
)

// MaFileStore — файловое хранилище записей аккаунтов (.maFile, JSON).
// При заданном Passkey файлы шифруются (PBKDF2 + AES-GCM).
type MaFileStore struct {
	Dir     string
	Passkey string
}

var _ repo.AccountStore = (*MaFileStore)(nil)

// NewMaFileStore создаёт хранилище и каталог с правами 0700.
func NewMaFileStore(dir, passkey string) (*MaFileStore, error) {
	if dir == "" {
		return nil, errors.New("empty accounts dir")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &MaFileStore{Dir: dir, Passkey: passkey}, nil
}

func (s *MaFileStore) resolve(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty maFile path")
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Join(s.Dir, path), nil
}

// Load читает и проверяет запись.
func (s *MaFileStore) Load(ctx context.Context, path string) (*model.AccountRecord, error) {
	p, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, errs.ErrNotFound)
		}
		return nil, err
	}
	if crypto.IsSealed(b) {
		if s.Passkey == "" {
			return nil, fmt.Errorf("%s is encrypted: passkey required", path)
		}
		if b, err = crypto.Open(b, s.Passkey); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	var rec model.AccountRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &rec, nil
}

// Save пишет запись атомарно: временный файл, fsync, rename.
func (s *MaFileStore) Save(ctx context.Context, rec *model.AccountRecord, path string) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	p, err := s.resolve(path)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	if s.Passkey != "" {
		if data, err = crypto.Seal(data, s.Passkey); err != nil {
			return fmt.Errorf("encrypt %s: %w", path, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return err
	}
	return writeFileSync(p, data)
}

// List возвращает имена .maFile в каталоге хранилища.
func (s *MaFileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), repo.MaFileExt) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func writeFileSync(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*"+repo.MaFileExt)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
