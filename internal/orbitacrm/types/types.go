// Общие типы данных приложения.
//
// Основные возможности:
//   - Тип учётной записи пользователя (UserType) и его персистентность.
//   - Константы времени жизни токенов входа.
package types

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// UserType - категория учётной записи
type UserType string

const (
	UserTypeRegular    UserType = "regular"
	UserTypeAdmin      UserType = "admin"
	UserTypeSuperAdmin UserType = "super-admin"
	UserTypePortal     UserType = "portal"
	UserTypeAPI        UserType = "api"
	UserTypeSystem     UserType = "system"
)

// ServiceTypes - типы, исключаемые из интерактивного входа
var ServiceTypes = []UserType{UserTypeAPI, UserTypeSystem}

// AdminTypes - типы, допустимые для локального админского фолбэка
var AdminTypes = []UserType{UserTypeAdmin, UserTypeSuperAdmin}

func (t UserType) Valid() bool {
	switch t {
	case UserTypeRegular, UserTypeAdmin, UserTypeSuperAdmin, UserTypePortal, UserTypeAPI, UserTypeSystem:
		return true
	}
	return false
}

func (t UserType) IsPortal() bool {
	return t == UserTypePortal
}

func (t UserType) Value() (driver.Value, error) {
	return string(t), nil
}

func (t *UserType) Scan(value interface{}) error {
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("failed to unmarshal user type value: %v", value)
	}
	if str == "" {
		str = string(UserTypeRegular)
	}
	*t = UserType(str)
	return nil
}

func (UserType) GormDataType() string {
	return "varchar(24)"
}

const (
	LoginTokenExpiresPeriod = time.Hour * 12
)
