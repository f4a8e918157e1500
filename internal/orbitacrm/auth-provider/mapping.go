// Статические таблицы соответствия полей учётной записи и конфигурации.
//
// Три таблицы:
//   - TableAttributes: поле профиля -> опция с именем атрибута каталога,
//     из которого поле заполняется при автосоздании;
//   - TableUser: поле обычного пользователя -> опция со статическим
//     значением по умолчанию (команда);
//   - TablePortalUser: поле портального пользователя -> опции со
//     статическими значениями (команды и роли портала).
//
// Отсутствующая опция просто пропускается, это не ошибка.
package authprovider

import "github.com/orbita-it/orbitacrm/internal/orbitacrm/config"

type Field int

const (
	FieldFirstName Field = iota + 1
	FieldLastName
	FieldTitle
	FieldEmail
	FieldPhone

	FieldDefaultTeam
	FieldPortalTeams
	FieldPortalRoles
)

func (f Field) String() string {
	switch f {
	case FieldFirstName:
		return "firstName"
	case FieldLastName:
		return "lastName"
	case FieldTitle:
		return "title"
	case FieldEmail:
		return "emailAddress"
	case FieldPhone:
		return "phoneNumber"
	case FieldDefaultTeam:
		return "defaultTeam"
	case FieldPortalTeams:
		return "portalTeams"
	case FieldPortalRoles:
		return "portalRoles"
	}
	return "unknown"
}

type Table int

const (
	TableAttributes Table = iota + 1
	TableUser
	TablePortalUser
)

type MappingEntry struct {
	Field  Field
	Option func(*config.Config) string
}

var mappingTables = map[Table][]MappingEntry{
	TableAttributes: {
		{FieldFirstName, func(c *config.Config) string { return c.LdapUserFirstNameAttribute }},
		{FieldLastName, func(c *config.Config) string { return c.LdapUserLastNameAttribute }},
		{FieldTitle, func(c *config.Config) string { return c.LdapUserTitleAttribute }},
		{FieldEmail, func(c *config.Config) string { return c.LdapUserEmailAttribute }},
		{FieldPhone, func(c *config.Config) string { return c.LdapUserPhoneAttribute }},
	},
	TableUser: {
		{FieldDefaultTeam, func(c *config.Config) string { return c.LdapUserDefaultTeamID }},
	},
	TablePortalUser: {
		{FieldPortalTeams, func(c *config.Config) string { return c.LdapPortalUserTeamIDs }},
		{FieldPortalRoles, func(c *config.Config) string { return c.LdapPortalUserRoleIDs }},
	},
}

// Lookup возвращает записи таблицы, опции которых заданы в конфигурации.
func Lookup(t Table, cfg *config.Config) []MappingEntry {
	var res []MappingEntry
	for _, entry := range mappingTables[t] {
		if entry.Option(cfg) == "" {
			continue
		}
		res = append(res, entry)
	}
	return res
}
