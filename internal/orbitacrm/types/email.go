// Типы данных для работы с email-адресами пользователей.
// EmailAddress - неизменяемая обёртка над валидированным адресом с двумя
// независимыми флагами: invalid (адрес признан недоставляемым) и optedOut
// (владелец отказался от рассылок).
//
// Основные возможности:
//   - Валидация и нормализация адреса при создании (ParseEmailAddress).
//   - Копирующие операции переключения флагов, исходное значение не меняется.
//   - Сериализация в JSON и jsonb-колонку БД.
package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

var ErrInvalidEmailAddress = errors.New("invalid email address")

type EmailAddress struct {
	address  string
	invalid  bool
	optedOut bool
}

// ParseEmailAddress нормализует и валидирует адрес. Возвращает
// ErrInvalidEmailAddress, если строка не является синтаксически корректным
// email-адресом.
func ParseEmailAddress(raw string) (EmailAddress, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return EmailAddress{}, ErrInvalidEmailAddress
	}

	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return EmailAddress{}, ErrInvalidEmailAddress
	}

	// mail.ParseAddress accepts display names ("Name <a@b>"), plain address only
	if addr.Address != raw {
		return EmailAddress{}, ErrInvalidEmailAddress
	}

	return EmailAddress{address: raw}, nil
}

func (e EmailAddress) Address() string {
	return e.address
}

func (e EmailAddress) String() string {
	return e.address
}

func (e EmailAddress) IsZero() bool {
	return e.address == ""
}

func (e EmailAddress) IsInvalid() bool {
	return e.invalid
}

func (e EmailAddress) IsOptedOut() bool {
	return e.optedOut
}

// Каждая операция возвращает новое значение; адрес и второй флаг сохраняются.

func (e EmailAddress) WithInvalid() EmailAddress {
	e.invalid = true
	return e
}

func (e EmailAddress) WithoutInvalid() EmailAddress {
	e.invalid = false
	return e
}

func (e EmailAddress) WithOptedOut() EmailAddress {
	e.optedOut = true
	return e
}

func (e EmailAddress) WithoutOptedOut() EmailAddress {
	e.optedOut = false
	return e
}

type emailAddressRaw struct {
	Address  string `json:"address"`
	Invalid  bool   `json:"invalid,omitempty"`
	OptedOut bool   `json:"opted_out,omitempty"`
}

func (e EmailAddress) MarshalJSON() ([]byte, error) {
	return json.Marshal(emailAddressRaw{
		Address:  e.address,
		Invalid:  e.invalid,
		OptedOut: e.optedOut,
	})
}

func (e *EmailAddress) UnmarshalJSON(data []byte) error {
	var raw emailAddressRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := ParseEmailAddress(raw.Address)
	if err != nil {
		return err
	}
	parsed.invalid = raw.Invalid
	parsed.optedOut = raw.OptedOut

	*e = parsed
	return nil
}

func (e EmailAddress) Value() (driver.Value, error) {
	if e.IsZero() {
		return nil, nil
	}
	b, err := e.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (e *EmailAddress) Scan(value interface{}) error {
	if value == nil {
		*e = EmailAddress{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal JSONB value:", value))
	}

	// Stored values are trusted, no re-validation on read
	var raw emailAddressRaw
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return err
	}
	*e = EmailAddress{
		address:  raw.Address,
		invalid:  raw.Invalid,
		optedOut: raw.OptedOut,
	}
	return nil
}

func (EmailAddress) GormDataType() string {
	return "jsonb"
}
