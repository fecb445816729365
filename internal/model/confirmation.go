package model

import (
	"strings"
	"time"
)

// ConfirmationType — тип ожидающего подтверждения.
type ConfirmationType int

const (
	ConfirmationOther             ConfirmationType = 0
	ConfirmationGeneric           ConfirmationType = 1
	ConfirmationTrade             ConfirmationType = 2
	ConfirmationMarketListing     ConfirmationType = 3
	ConfirmationFeatureOptOut     ConfirmationType = 4
	ConfirmationPhoneNumberChange ConfirmationType = 5
	ConfirmationAccountRecovery   ConfirmationType = 6
)

// String возвращает короткое имя типа для вывода в CLI и логах.
func (t ConfirmationType) String() string {
	switch t {
	case ConfirmationGeneric:
		return "generic"
	case ConfirmationTrade:
		return "trade"
	case ConfirmationMarketListing:
		return "market-listing"
	case ConfirmationFeatureOptOut:
		return "feature-opt-out"
	case ConfirmationPhoneNumberChange:
		return "phone-number-change"
	case ConfirmationAccountRecovery:
		return "account-recovery"
	default:
		return "other"
	}
}

// Confirmation — элемент очереди подтверждений в том виде, в каком его отдаёт сервер.
// Accept/Deny работают по ID и Nonce, локальная копия не изменяется.
type Confirmation struct {
	ID           string           `json:"id"`
	Nonce        string           `json:"nonce"`
	CreatorID    string           `json:"creator_id"`
	Type         ConfirmationType `json:"type"`
	TypeName     string           `json:"type_name"`
	Headline     string           `json:"headline"`
	Summary      []string         `json:"summary"`
	CreationTime int64            `json:"creation_time"`
	Icon         string           `json:"icon,omitempty"`
	Multi        bool             `json:"multi,omitempty"`
}

// Description собирает человекочитаемое описание из заголовка и строк summary.
func (c Confirmation) Description() string {
	parts := make([]string, 0, len(c.Summary)+1)
	if c.Headline != "" {
		parts = append(parts, c.Headline)
	}
	for _, s := range c.Summary {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " | ")
}

// Created возвращает время создания подтверждения.
func (c Confirmation) Created() time.Time {
	return time.Unix(c.CreationTime, 0).UTC()
}
