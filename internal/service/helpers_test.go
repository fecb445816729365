package service

import (
	"context"
	"testing"
	"time"

	"SteamGuard/internal/api"
	"SteamGuard/internal/model"
	fsrepo "SteamGuard/internal/repo/fs"
	"SteamGuard/internal/steamtest"
	"SteamGuard/internal/timealign"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testDevice = "android:00000000-0000-4000-8000-000000000001"

// testEnv — двойник сервиса, клиент, выровненные часы и файловое хранилище.
type testEnv struct {
	srv     *steamtest.Server
	client  *api.Client
	aligner *timealign.Aligner
	store   *fsrepo.MaFileStore
	sleeps  []time.Duration
}

func newTestEnv(t *testing.T, acct steamtest.Account) *testEnv {
	t.Helper()
	srv := steamtest.NewServer(acct)
	t.Cleanup(srv.Close)

	client := api.NewClient(api.Options{APIURL: srv.URL, CommunityURL: srv.URL, Timeout: 5 * time.Second})
	// локальные часы стоят и отстают от сервера на 500 секунд
	local := time.Unix(srv.Time()-500, 0)
	store, err := fsrepo.NewMaFileStore(t.TempDir(), "")
	require.NoError(t, err)

	return &testEnv{
		srv:     srv,
		client:  client,
		aligner: timealign.New(client, timealign.WithClock(func() time.Time { return local })),
		store:   store,
	}
}

// policy — 5 попыток без реального ожидания; паузы копятся в env.sleeps.
func (e *testEnv) policy() RetryPolicy {
	p := DefaultRetryPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		e.sleeps = append(e.sleeps, d)
		return ctx.Err()
	}
	return p
}

func (e *testEnv) session(acct steamtest.Account) *model.Session {
	return &model.Session{SteamID: acct.SteamID, AccessToken: acct.AccessToken, RefreshToken: acct.RefreshToken}
}

func (e *testEnv) linker(t *testing.T, acct steamtest.Account, mutate func(*LinkerOptions)) *Linker {
	t.Helper()
	opts := LinkerOptions{
		API:         e.client,
		Clock:       e.aligner,
		Store:       e.store,
		Session:     e.session(acct),
		Policy:      e.policy(),
		NewDeviceID: func() string { return testDevice },
	}
	if mutate != nil {
		mutate(&opts)
	}
	l, err := NewLinker(opts)
	require.NoError(t, err)
	return l
}

// enrolledRecord — запись, совпадающая с аккаунтом двойника.
func enrolledRecord(acct steamtest.Account) *model.AccountRecord {
	return &model.AccountRecord{
		AccountName:    acct.AccountName,
		SharedSecret:   acct.SharedSecret,
		IdentitySecret: acct.IdentitySecret,
		RevocationCode: acct.RevocationCode,
		DeviceID:       testDevice,
		FullyEnrolled:  true,
		Session: &model.Session{
			SteamID:      acct.SteamID,
			AccessToken:  acct.AccessToken,
			RefreshToken: acct.RefreshToken,
		},
	}
}

// signedToken выпускает JWT с заданным сроком жизни.
func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "76561198000000001",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return s
}

// fixedClock — часы без сети.
type fixedClock struct {
	t     int64
	syncs int
}

func (c *fixedClock) Now(context.Context) int64 { return c.t }

func (c *fixedClock) Sync(context.Context) error {
	c.syncs++
	return nil
}

// mockStore — AccountStore на testify/mock.
type mockStore struct{ mock.Mock }

func (m *mockStore) Load(ctx context.Context, path string) (*model.AccountRecord, error) {
	args := m.Called(ctx, path)
	if v, ok := args.Get(0).(*model.AccountRecord); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) Save(ctx context.Context, rec *model.AccountRecord, path string) error {
	args := m.Called(ctx, rec, path)
	return args.Error(0)
}

func (m *mockStore) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).([]string); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
