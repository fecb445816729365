package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"SteamGuard/internal/config"
	"SteamGuard/internal/model"
	fsrepo "SteamGuard/internal/repo/fs"
	"SteamGuard/internal/steamtest"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// withStdoutCapture перенаправляет Out в буфер на время f.
func withStdoutCapture(f func()) string {
	var buf bytes.Buffer
	old := Out
	Out = &buf
	defer func() { Out = old }()
	f()
	return buf.String()
}

// withStdin подставляет ввод пользователя.
func withStdin(t *testing.T, input string) {
	t.Helper()
	old := In
	In = strings.NewReader(input)
	t.Cleanup(func() { In = old })
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	s, err := tok.SignedString([]byte("test"))
	require.NoError(t, err)
	return s
}

// liveAccount — аккаунт двойника с действующими JWT, чтобы сессия не обновлялась.
func liveAccount(t *testing.T) steamtest.Account {
	acct := steamtest.DefaultAccount()
	acct.AccessToken = signedToken(t, time.Now().Add(time.Hour))
	acct.RefreshToken = signedToken(t, time.Now().Add(30*24*time.Hour))
	return acct
}

// cliEnv — двойник сервиса и конфигурация CLI, указывающая на него.
type cliEnv struct {
	srv *steamtest.Server
	cfg *config.Config
}

func newCLIEnv(t *testing.T, acct steamtest.Account) *cliEnv {
	t.Helper()
	srv := steamtest.NewServer(acct)
	t.Cleanup(srv.Close)
	return &cliEnv{
		srv: srv,
		cfg: &config.Config{
			AccountsDir:  t.TempDir(),
			APIBaseURL:   srv.URL,
			CommunityURL: srv.URL,
			HTTPTimeout:  5 * time.Second,
			MaxAttempts:  2,
			RetryBackoff: time.Millisecond,
		},
	}
}

func enrolledRecord(acct steamtest.Account) *model.AccountRecord {
	return &model.AccountRecord{
		AccountName:    acct.AccountName,
		SharedSecret:   acct.SharedSecret,
		IdentitySecret: acct.IdentitySecret,
		RevocationCode: acct.RevocationCode,
		DeviceID:       "android:00000000-0000-4000-8000-000000000001",
		FullyEnrolled:  true,
		Session: &model.Session{
			SteamID:      acct.SteamID,
			AccessToken:  acct.AccessToken,
			RefreshToken: acct.RefreshToken,
		},
	}
}

// seed сохраняет запись в каталог аккаунтов.
func (e *cliEnv) seed(t *testing.T, rec *model.AccountRecord) {
	t.Helper()
	st, err := fsrepo.NewMaFileStore(e.cfg.AccountsDir, e.cfg.Passkey)
	require.NoError(t, err)
	require.NoError(t, st.Save(context.Background(), rec, rec.AccountName+".maFile"))
}

func (e *cliEnv) load(t *testing.T, key string) *model.AccountRecord {
	t.Helper()
	st, err := fsrepo.NewMaFileStore(e.cfg.AccountsDir, e.cfg.Passkey)
	require.NoError(t, err)
	rec, err := st.Load(context.Background(), key)
	require.NoError(t, err)
	return rec
}

// run выполняет команду и возвращает вывод.
func run(t *testing.T, cmd Command, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var err error
	out := withStdoutCapture(func() {
		err = cmd.Run(context.Background(), cfg, args)
	})
	return out, err
}

