// Package authprovider реализует вход пользователей через внешний каталог
// (LDAP, Active Directory) с фолбэком на локальную БД.
//
// Порядок проверки учётных данных:
//  1. bind сервисной учётной записью; при недоступности каталога -
//     фолбэк на локального администратора;
//  2. поиск пользователя по настроенному атрибуту имени; при отсутствии -
//     тот же фолбэк;
//  3. bind найденным DN с паролем пользователя; отказ каталога здесь
//     окончателен, фолбэк не применяется.
//
// При первом успешном входе пользователь автоматически создаётся в локальной
// БД из атрибутов каталога, если автосоздание не отключено конфигурацией.
//
// Реализации каталога:
//   - LdapProvider (ldap.go) — go-ldap/v3
package authprovider

import "strings"

// Directory - внешний каталог. Connect выполняет подключение и bind
// сервисной учётной записью.
type Directory interface {
	Connect() (Session, error)
}

// Session - установленное подключение к каталогу.
type Session interface {
	// FindUser ищет запись пользователя по имени входа. Возвращает
	// (nil, nil), если запись не найдена.
	FindUser(username string) (*DirectoryEntry, error)
	// BindUser проверяет пароль пользователя bind-ом найденного DN.
	BindUser(dn string, password string) error
	Close()
}

// DirectoryEntry - запись каталога: DN и атрибуты. Имена атрибутов
// регистронезависимы.
type DirectoryEntry struct {
	DN string

	attributes map[string][]string
}

func NewDirectoryEntry(dn string, attributes map[string][]string) *DirectoryEntry {
	normalized := make(map[string][]string, len(attributes))
	for name, values := range attributes {
		normalized[strings.ToLower(name)] = values
	}
	return &DirectoryEntry{DN: dn, attributes: normalized}
}

// Attribute возвращает первое значение атрибута.
func (e *DirectoryEntry) Attribute(name string) (string, bool) {
	values := e.attributes[strings.ToLower(name)]
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (e *DirectoryEntry) Values(name string) []string {
	return e.attributes[strings.ToLower(name)]
}
