package crypto

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"SteamGuard/internal/errs"
)

// maxSignedTag — в подпись идёт не больше 32 байт тега после 8 байт времени.
const maxSignedTag = 32

// ConfirmationHash подписывает запрос к очереди подтверждений:
// base64(HMAC-SHA1(identitySecret, time(8 байт BE) || tag)).
// tag различает операции ("list", "allow", "cancel", ...).
func ConfirmationHash(identitySecret []byte, timestamp int64, tag string) (string, error) {
	if len(identitySecret) == 0 {
		return "", fmt.Errorf("identity secret is empty: %w", errs.ErrInvalidSecret)
	}
	tagBytes := []byte(tag)
	if len(tagBytes) > maxSignedTag {
		tagBytes = tagBytes[:maxSignedTag]
	}
	buf := make([]byte, 8, 8+len(tagBytes))
	binary.BigEndian.PutUint64(buf, uint64(timestamp))
	buf = append(buf, tagBytes...)

	mac := hmac.New(sha1.New, identitySecret)
	mac.Write(buf)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
