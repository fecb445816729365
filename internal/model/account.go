package model

// AccountRecord — сохраняемая запись привязанного аутентификатора (формат .maFile).
//
// Секреты хранятся как сырые байты; в JSON они кодируются в base64,
// что совпадает с текстовым видом, который возвращает сервер.
type AccountRecord struct {
	AccountName    string `json:"account_name" validate:"required_if=FullyEnrolled true"`
	SharedSecret   []byte `json:"shared_secret"`
	IdentitySecret []byte `json:"identity_secret"`
	RevocationCode string `json:"revocation_code" validate:"required_if=FullyEnrolled true"`
	DeviceID       string `json:"device_id" validate:"omitempty,startswith=android:"`
	SerialNumber   string `json:"serial_number"`

	// Поля ниже возвращаются сервером при привязке и сохраняются как есть.
	URI        string `json:"uri,omitempty"`
	TokenGID   string `json:"token_gid,omitempty"`
	Secret1    []byte `json:"secret_1,omitempty"`
	ServerTime int64  `json:"server_time,omitempty"`
	Status     int    `json:"status,omitempty"`

	FullyEnrolled bool     `json:"fully_enrolled"`
	Session       *Session `json:"Session,omitempty"`
}

// SteamID возвращает идентификатор аккаунта из сессии (0, если сессии нет).
func (a *AccountRecord) SteamID() uint64 {
	if a == nil || a.Session == nil {
		return 0
	}
	return a.Session.SteamID
}

// Clone возвращает глубокую копию записи.
func (a *AccountRecord) Clone() *AccountRecord {
	if a == nil {
		return nil
	}
	c := *a
	c.SharedSecret = cloneBytes(a.SharedSecret)
	c.IdentitySecret = cloneBytes(a.IdentitySecret)
	c.Secret1 = cloneBytes(a.Secret1)
	if a.Session != nil {
		s := *a.Session
		c.Session = &s
	}
	return &c
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
