package crypto

import (
	"encoding/base64"
	"testing"

	"SteamGuard/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// демо-секрет из документации библиотеки
const demoSharedSecret = "cnOgv/KdpLoP6Nbh0GMkXkPXALQ="

func demoSecret(t *testing.T) []byte {
	t.Helper()
	b, err := base64.StdEncoding.DecodeString(demoSharedSecret)
	require.NoError(t, err)
	return b
}

func TestGenerateCode_ReferenceVectors(t *testing.T) {
	secret := demoSecret(t)
	cases := []struct {
		ts   int64
		want string
	}{
		{1700000000, "X45RP"},
		{1700000010, "YWH3Q"},
		{1234567890, "VYNVB"},
		{0, "W3J46"},
	}
	for _, c := range cases {
		got, err := GenerateCode(secret, c.ts)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "ts=%d", c.ts)
	}
}

func TestGenerateCode_WindowIsEpochAligned(t *testing.T) {
	secret := demoSecret(t)
	start := int64(1699999980) // начало окна, кратно 30

	first, err := GenerateCode(secret, start)
	require.NoError(t, err)
	for off := int64(0); off < CodePeriod; off++ {
		got, err := GenerateCode(secret, start+off)
		require.NoError(t, err)
		assert.Equal(t, first, got, "offset %d", off)
	}

	next, err := GenerateCode(secret, start+CodePeriod)
	require.NoError(t, err)
	assert.NotEqual(t, first, next)
}

func TestGenerateCode_Alphabet(t *testing.T) {
	secret := demoSecret(t)
	for ts := int64(0); ts < 300*CodePeriod; ts += CodePeriod {
		code, err := GenerateCode(secret, ts)
		require.NoError(t, err)
		require.Len(t, code, 5)
		for _, ch := range code {
			assert.Contains(t, codeAlphabet, string(ch))
		}
	}
}

func TestGenerateCode_EmptySecret(t *testing.T) {
	_, err := GenerateCode(nil, 1700000000)
	assert.ErrorIs(t, err, errs.ErrInvalidSecret)
	_, err = GenerateCode([]byte{}, 1700000000)
	assert.ErrorIs(t, err, errs.ErrInvalidSecret)
}

func TestSecondsRemaining(t *testing.T) {
	assert.Equal(t, int64(30), SecondsRemaining(1699999980))
	assert.Equal(t, int64(10), SecondsRemaining(1700000000))
	assert.Equal(t, int64(1), SecondsRemaining(1700000009))
}

func TestDecodeSecret(t *testing.T) {
	b, err := DecodeSecret(demoSharedSecret)
	require.NoError(t, err)
	assert.Len(t, b, 20)

	// экранированный слэш из старых файлов
	b2, err := DecodeSecret(`cnOgv\/KdpLoP6Nbh0GMkXkPXALQ=`)
	require.NoError(t, err)
	assert.Equal(t, b, b2)

	_, err = DecodeSecret("")
	assert.ErrorIs(t, err, errs.ErrInvalidSecret)
	_, err = DecodeSecret("%%%not base64%%%")
	assert.ErrorIs(t, err, errs.ErrInvalidSecret)
}
