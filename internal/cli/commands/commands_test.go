package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"SteamGuard/internal/crypto"
	"SteamGuard/internal/errs"
	"SteamGuard/internal/model"
	"SteamGuard/internal/steamtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeCmd(t *testing.T) {
	acct := liveAccount(t)
	env := newCLIEnv(t, acct)
	env.seed(t, enrolledRecord(acct))

	out, err := run(t, codeCmd{}, env.cfg)
	require.NoError(t, err)

	want, err := crypto.GenerateCode(acct.SharedSecret, env.srv.Time())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, want+" (valid "), out)
	assert.NotContains(t, out, "warning")
}

func TestCodeCmd_DegradedClock(t *testing.T) {
	acct := liveAccount(t)
	env := newCLIEnv(t, acct)
	env.seed(t, enrolledRecord(acct))
	env.srv.FailNext(steamtest.PathQueryTime, 100)

	out, err := run(t, codeCmd{}, env.cfg, "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "local clock")
}

func TestCodeCmd_UnknownAccount(t *testing.T) {
	env := newCLIEnv(t, liveAccount(t))

	_, err := run(t, codeCmd{}, env.cfg, "bob")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = run(t, codeCmd{}, env.cfg, "a", "b")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestTimeCmd(t *testing.T) {
	env := newCLIEnv(t, liveAccount(t))

	out, err := run(t, timeCmd{}, env.cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "server time: 170000000")
	assert.Contains(t, out, "offset: ")

	env.srv.FailNext(steamtest.PathQueryTime, 100)
	_, err = run(t, timeCmd{}, env.cfg)
	assert.ErrorIs(t, err, errs.ErrNetwork)
}

func TestAccountsCmd(t *testing.T) {
	acct := liveAccount(t)
	env := newCLIEnv(t, acct)

	out, err := run(t, accountsCmd{}, env.cfg)
	require.NoError(t, err)
	assert.Equal(t, "no accounts\n", out)

	env.seed(t, enrolledRecord(acct))
	require.NoError(t, os.WriteFile(filepath.Join(env.cfg.AccountsDir, "broken.maFile"), []byte("{"), 0o600))

	out, err = run(t, accountsCmd{}, env.cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "alice.maFile\talice\t76561198000000001\tenrolled")
	assert.Contains(t, out, "broken.maFile\tunreadable")
}

func writeSession(t *testing.T, acct steamtest.Account) string {
	t.Helper()
	data, err := json.Marshal(model.Session{SteamID: acct.SteamID, AccessToken: acct.AccessToken, RefreshToken: acct.RefreshToken})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLinkCmd_FullFlow(t *testing.T) {
	acct := liveAccount(t)
	env := newCLIEnv(t, acct)
	withStdin(t, "00000\n12345\n")

	out, err := run(t, linkCmd{}, env.cfg, writeSession(t, acct))
	require.NoError(t, err, out)

	assert.Contains(t, out, "Revocation code: R12345")
	assert.Contains(t, out, "Wrong SMS code")
	assert.Contains(t, out, "Authenticator linked to alice")
	assert.True(t, env.srv.Enrolled())

	rec := env.load(t, "alice.maFile")
	assert.True(t, rec.FullyEnrolled)
	assert.Equal(t, "R12345", rec.RevocationCode)
	assert.Equal(t, acct.SharedSecret, rec.SharedSecret)
}

func TestLinkCmd_EmailConfirmation(t *testing.T) {
	acct := liveAccount(t)
	acct.HasPhone = false
	env := newCLIEnv(t, acct)
	withStdin(t, "\n12345\n")

	out, err := run(t, linkCmd{}, env.cfg, writeSession(t, acct), "+4915112345678")
	require.NoError(t, err, out)

	assert.Contains(t, out, "A confirmation email was sent to a***@example.com")
	assert.Equal(t, "+4915112345678", env.srv.Phone())
	assert.Equal(t, 1, env.srv.Calls(steamtest.PathUserCountry))
	assert.Equal(t, 1, env.srv.Calls(steamtest.PathSendSMS))
	assert.True(t, env.srv.Enrolled())
}

func TestLinkCmd_NoPhone(t *testing.T) {
	acct := liveAccount(t)
	acct.HasPhone = false
	env := newCLIEnv(t, acct)

	_, err := run(t, linkCmd{}, env.cfg, writeSession(t, acct))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no phone number")
}

func TestLinkCmd_AlreadyEnrolled(t *testing.T) {
	acct := liveAccount(t)
	env := newCLIEnv(t, acct)
	env.srv.SetEnrolled(true)

	_, err := run(t, linkCmd{}, env.cfg, writeSession(t, acct))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has an authenticator")
}

func TestLinkCmd_BadSessionFile(t *testing.T) {
	env := newCLIEnv(t, liveAccount(t))
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"SteamID":0}`), 0o600))

	_, err := run(t, linkCmd{}, env.cfg, path)
	assert.Error(t, err)

	_, err = run(t, linkCmd{}, env.cfg)
	assert.ErrorIs(t, err, ErrUsage)
}

func testQueue() []model.Confirmation {
	return []model.Confirmation{
		{ID: "30", Nonce: "n30", Type: model.ConfirmationTrade, Headline: "Trade with bob", CreationTime: 1700000000},
		{ID: "10", Nonce: "n10", Type: model.ConfirmationMarketListing, Headline: "Sell AK-47", CreationTime: 1700000000},
	}
}

func TestConfsCmd(t *testing.T) {
	acct := liveAccount(t)
	env := newCLIEnv(t, acct)
	env.seed(t, enrolledRecord(acct))

	out, err := run(t, confsCmd{}, env.cfg)
	require.NoError(t, err)
	assert.Equal(t, "no pending confirmations\n", out)

	env.srv.SetConfirmations(testQueue()...)
	out, err = run(t, confsCmd{}, env.cfg, "alice")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "30\t"))
	assert.Contains(t, lines[0], "Trade with bob")
	assert.True(t, strings.HasPrefix(lines[1], "10\t"))
}

func TestConfsCmd_RefreshesSession(t *testing.T) {
	acct := liveAccount(t)
	env := newCLIEnv(t, acct)
	rec := enrolledRecord(acct)
	rec.Session.AccessToken = "expired"
	env.seed(t, rec)

	_, err := run(t, confsCmd{}, env.cfg, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, env.srv.Calls(steamtest.PathAccessToken))
	assert.Equal(t, acct.AccessToken, env.load(t, "alice.maFile").Session.AccessToken)
}

func TestAcceptCmd_Single(t *testing.T) {
	acct := liveAccount(t)
	env := newCLIEnv(t, acct)
	env.seed(t, enrolledRecord(acct))
	env.srv.SetConfirmations(testQueue()...)

	out, err := run(t, respondCmd{name: "accept", allow: true}, env.cfg, "alice", "10")
	require.NoError(t, err)
	assert.Equal(t, "accepted: 1 confirmation(s)\n", out)
	assert.Equal(t, "allow", env.srv.LastForm(steamtest.PathConfOp).Get("op"))
	require.Len(t, env.srv.Confirmations(), 1)
	assert.Equal(t, "30", env.srv.Confirmations()[0].ID)
}

func TestDenyCmd_All(t *testing.T) {
	acct := liveAccount(t)
	env := newCLIEnv(t, acct)
	env.seed(t, enrolledRecord(acct))
	env.srv.SetConfirmations(testQueue()...)

	out, err := run(t, respondCmd{name: "deny"}, env.cfg, "alice", "all")
	require.NoError(t, err)
	assert.Equal(t, "denied: 2 confirmation(s)\n", out)
	assert.Equal(t, "cancel", env.srv.LastForm(steamtest.PathConfMultiOp).Get("op"))
	assert.Empty(t, env.srv.Confirmations())
}

func TestAcceptCmd_UnknownID(t *testing.T) {
	acct := liveAccount(t)
	env := newCLIEnv(t, acct)
	env.seed(t, enrolledRecord(acct))
	env.srv.SetConfirmations(testQueue()...)

	_, err := run(t, respondCmd{name: "accept", allow: true}, env.cfg, "alice", "99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "99")
	assert.Equal(t, 0, env.srv.Calls(steamtest.PathConfOp))

	_, err = run(t, respondCmd{name: "accept", allow: true}, env.cfg, "alice")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestRevokeCmd(t *testing.T) {
	acct := liveAccount(t)
	env := newCLIEnv(t, acct)
	env.seed(t, enrolledRecord(acct))
	env.srv.SetEnrolled(true)
	withStdin(t, "alice\n")

	out, err := run(t, revokeCmd{}, env.cfg, "alice", "none")
	require.NoError(t, err)
	assert.Contains(t, out, "Authenticator removed")
	assert.False(t, env.srv.Enrolled())
	assert.Equal(t, "2", env.srv.LastForm(steamtest.PathRemove).Get("steamguard_scheme"))
	// локальная запись остаётся
	assert.Equal(t, "R12345", env.load(t, "alice.maFile").RevocationCode)
}

func TestRevokeCmd_Aborted(t *testing.T) {
	acct := liveAccount(t)
	env := newCLIEnv(t, acct)
	env.seed(t, enrolledRecord(acct))
	withStdin(t, "no\n")

	out, err := run(t, revokeCmd{}, env.cfg, "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "aborted")
	assert.Equal(t, 0, env.srv.Calls(steamtest.PathRemove))
}

func TestRevokeCmd_WrongCode(t *testing.T) {
	acct := liveAccount(t)
	env := newCLIEnv(t, acct)
	rec := enrolledRecord(acct)
	rec.RevocationCode = "R00000"
	env.seed(t, rec)
	withStdin(t, "alice\n")

	_, err := run(t, revokeCmd{}, env.cfg, "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4 attempt(s) remaining")

	_, err = run(t, revokeCmd{}, env.cfg, "alice", "sms")
	assert.ErrorIs(t, err, ErrUsage)
}
