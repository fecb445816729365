package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// keyLen — длина ключа для AES‑256 (в байтах).
const keyLen = 32

const (
	saltLen          = 16
	pbkdf2Iterations = 50000
	envelopeVersion  = 1
)

// ErrBadPasskey — неверный пароль или повреждённые данные.
var ErrBadPasskey = errors.New("wrong passkey or corrupted data")

// envelope — формат зашифрованного .maFile на диске.
type envelope struct {
	Version int    `json:"gk_sealed"`
	Salt    []byte `json:"salt"`
	Nonce   []byte `json:"nonce"`
	Data    []byte `json:"data"`
}

// DeriveKey выводит ключ AES‑256 из пароля и соли (PBKDF2-SHA256).
func DeriveKey(passkey string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passkey), salt, pbkdf2Iterations, keyLen, sha256.New)
}

// Seal шифрует plain паролем и возвращает JSON-конверт с солью и nonce.
func Seal(plain []byte, passkey string) ([]byte, error) {
	if passkey == "" {
		return nil, errors.New("empty passkey")
	}
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	data, nonce, err := Encrypt(plain, DeriveKey(passkey, salt))
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(envelope{Version: envelopeVersion, Salt: salt, Nonce: nonce, Data: data}, "", "  ")
}

// Open расшифровывает конверт, созданный Seal.
func Open(sealed []byte, passkey string) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(sealed, &env); err != nil {
		return nil, err
	}
	if env.Version != envelopeVersion {
		return nil, errors.New("not a sealed maFile")
	}
	plain, err := Decrypt(env.Data, env.Nonce, DeriveKey(passkey, env.Salt))
	if err != nil {
		return nil, ErrBadPasskey
	}
	return plain, nil
}

// IsSealed сообщает, похож ли blob на зашифрованный конверт.
func IsSealed(blob []byte) bool {
	if !bytes.Contains(blob, []byte(`"gk_sealed"`)) {
		return false
	}
	var env envelope
	return json.Unmarshal(blob, &env) == nil && env.Version == envelopeVersion
}

// Encrypt шифрует данные plain с помощью AES‑GCM и заданного ключа.
// Возвращает шифртекст и nonce.
func Encrypt(plain []byte, key []byte) ([]byte, []byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}
	return gcm.Seal(nil, nonce, plain, nil), nonce, nil
}

// Decrypt расшифровывает шифртекст с использованием AES‑GCM, ключа и nonce.
func Decrypt(ciphertext, nonce, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, errors.New("invalid nonce size")
	}
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
