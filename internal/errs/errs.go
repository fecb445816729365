// Package errs содержит общие sentinel-ошибки клиента аутентификатора.
// Конкретные ошибки оборачиваются через fmt.Errorf("...: %w", errs.ErrX)
// и проверяются вызывающим кодом через errors.Is.
package errs

import "errors"

var (
	// ErrInvalidSecret — пустой или повреждённый секрет; повторять бессмысленно.
	ErrInvalidSecret = errors.New("invalid secret")

	// ErrNetwork — сбой транспорта или таймаут; операцию можно повторить.
	ErrNetwork = errors.New("network error")

	// ErrAuthorization — сервер отверг подпись или сессию.
	// Чаще всего это расхождение часов: перед повтором нужна ресинхронизация времени.
	ErrAuthorization = errors.New("authorization rejected")

	// ErrProtocol — неожиданный или нераспознанный ответ сервера.
	ErrProtocol = errors.New("unexpected server response")

	// ErrState — операция вызвана вне допустимой последовательности.
	ErrState = errors.New("invalid state")

	// ErrRecordNotPersisted — запись аккаунта получена, но не сохранена.
	// Потеря такой записи означает потерю доступа к аккаунту.
	ErrRecordNotPersisted = errors.New("account record not persisted")

	// ErrAttemptsExhausted — исчерпан лимит попыток.
	ErrAttemptsExhausted = errors.New("attempts exhausted")

	// ErrNotFound — запись аккаунта не найдена в хранилище.
	ErrNotFound = errors.New("account not found")
)
