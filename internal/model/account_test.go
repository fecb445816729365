package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enrolledRecord() *AccountRecord {
	return &AccountRecord{
		AccountName:    "demo_user",
		SharedSecret:   []byte("shared-secret-bytes!"),
		IdentitySecret: []byte("identity-secret-bytes"),
		RevocationCode: "R12345",
		DeviceID:       "android:2f1c7e4a-0000-4000-8000-000000000001",
		SerialNumber:   "1234567890",
		FullyEnrolled:  true,
		Session:        &Session{SteamID: 76561197960287930, AccessToken: "a", RefreshToken: "r"},
	}
}

func TestAccountRecord_Validate(t *testing.T) {
	t.Run("fully enrolled with secrets", func(t *testing.T) {
		assert.NoError(t, enrolledRecord().Validate())
	})

	t.Run("fully enrolled without shared secret", func(t *testing.T) {
		rec := enrolledRecord()
		rec.SharedSecret = []byte{}
		err := rec.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SharedSecret")
	})

	t.Run("fully enrolled without revocation code", func(t *testing.T) {
		rec := enrolledRecord()
		rec.RevocationCode = ""
		err := rec.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RevocationCode")
	})

	t.Run("not enrolled may miss secrets", func(t *testing.T) {
		rec := &AccountRecord{SharedSecret: []byte("x")}
		assert.NoError(t, rec.Validate())
	})

	t.Run("device id must be android-prefixed", func(t *testing.T) {
		rec := enrolledRecord()
		rec.DeviceID = "ios:123"
		err := rec.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DeviceID")
	})

	t.Run("nil record", func(t *testing.T) {
		var rec *AccountRecord
		assert.Error(t, rec.Validate())
	})
}

// Формат .maFile: секреты в base64, сессия под ключом "Session".
func TestAccountRecord_MaFileShape(t *testing.T) {
	raw := `{
  "shared_secret": "cnOgv/KdpLoP6Nbh0GMkXkPXALQ=",
  "serial_number": "1234567890",
  "revocation_code": "R12345",
  "account_name": "demo_user",
  "identity_secret": "TkVJZ2h0U2VjcmV0S2V5Rm9yVGVzdHM=",
  "device_id": "android:demo-device-id",
  "fully_enrolled": true,
  "Session": {"SteamID": 76561197960287930, "AccessToken": "acc", "RefreshToken": "ref"}
}`
	var rec AccountRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.Equal(t, "demo_user", rec.AccountName)
	assert.Equal(t, []byte("NEIghtSecretKeyForTests"), rec.IdentitySecret)
	assert.Len(t, rec.SharedSecret, 20)
	assert.Equal(t, uint64(76561197960287930), rec.SteamID())
	assert.True(t, rec.FullyEnrolled)

	out, err := json.Marshal(&rec)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"shared_secret":"cnOgv/KdpLoP6Nbh0GMkXkPXALQ="`)
	assert.Contains(t, string(out), `"Session":{"SteamID":76561197960287930`)
}

func TestAccountRecord_CloneIsDeep(t *testing.T) {
	rec := enrolledRecord()
	c := rec.Clone()
	c.SharedSecret[0] = 'X'
	c.Session.AccessToken = "changed"
	assert.Equal(t, byte('s'), rec.SharedSecret[0])
	assert.Equal(t, "a", rec.Session.AccessToken)

	var nilRec *AccountRecord
	assert.Nil(t, nilRec.Clone())
	assert.Equal(t, uint64(0), nilRec.SteamID())
}
