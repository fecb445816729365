// Package crypto содержит криптографические примитивы аутентификатора:
// генерацию одноразовых кодов, подпись запросов подтверждений и
// шифрование .maFile паролем.
package crypto

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"

	"SteamGuard/internal/errs"
)

// CodePeriod — длительность окна действия кода в секундах.
const CodePeriod = 30

// codeLength — длина кода.
const codeLength = 5

// codeAlphabet — 26 символов без визуально похожих глифов.
const codeAlphabet = "23456789BCDFGHJKMNPQRTVWXY"

// GenerateCode вычисляет одноразовый код для секрета и момента времени (unix-секунды).
// Код одинаков на всём 30-секундном окне, выровненном по эпохе.
func GenerateCode(sharedSecret []byte, timestamp int64) (string, error) {
	if len(sharedSecret) == 0 {
		return "", fmt.Errorf("shared secret is empty: %w", errs.ErrInvalidSecret)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(floorDiv(timestamp, CodePeriod)))

	mac := hmac.New(sha1.New, sharedSecret)
	mac.Write(buf[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	code := make([]byte, codeLength)
	for i := range code {
		code[i] = codeAlphabet[value%uint32(len(codeAlphabet))]
		value /= uint32(len(codeAlphabet))
	}
	return string(code), nil
}

// SecondsRemaining возвращает, сколько секунд ещё действует код для timestamp.
func SecondsRemaining(timestamp int64) int64 {
	return CodePeriod - (timestamp-floorDiv(timestamp, CodePeriod)*CodePeriod)
}

// DecodeSecret разбирает текстовый (base64) вид секрета.
// Допускает экранированные слэши "\/", которые встречаются в старых .maFile.
func DecodeSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, `\/`, "/"))
	if s == "" {
		return nil, fmt.Errorf("secret is empty: %w", errs.ErrInvalidSecret)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %v: %w", err, errs.ErrInvalidSecret)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("secret is empty: %w", errs.ErrInvalidSecret)
	}
	return b, nil
}

// floorDiv — деление с округлением вниз (время до эпохи тоже должно выравниваться).
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
