package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate кэширует разобранные теги структур и безопасен для конкурентного использования.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(accountRecordRules, AccountRecord{})
	return v
}

// accountRecordRules: fully_enrolled допустим только при непустых секретах.
// Для []byte тег required проверяет лишь nil, поэтому длину смотрим вручную.
func accountRecordRules(sl validator.StructLevel) {
	rec := sl.Current().Interface().(AccountRecord)
	if !rec.FullyEnrolled {
		return
	}
	if len(rec.SharedSecret) == 0 {
		sl.ReportError(rec.SharedSecret, "SharedSecret", "shared_secret", "required_if", "FullyEnrolled true")
	}
	if len(rec.IdentitySecret) == 0 {
		sl.ReportError(rec.IdentitySecret, "IdentitySecret", "identity_secret", "required_if", "FullyEnrolled true")
	}
}

// Validate проверяет инварианты записи перед сохранением и после загрузки.
func (a *AccountRecord) Validate() error {
	if a == nil {
		return errors.New("nil account record")
	}
	err := validate.Struct(a)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid account record: %s", strings.Join(fields, ", "))
}
