package authprovider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildUserFilter(t *testing.T) {
	assert.Equal(t,
		"(&(objectClass=inetOrgPerson)(uid=ivanov))",
		buildUserFilter("inetOrgPerson", "uid", "ivanov", ""),
	)

	// настроенный фрагмент фильтра добавляется в конъюнкцию
	assert.Equal(t,
		"(&(objectClass=inetOrgPerson)(uid=ivanov)(memberOf=cn=crm,ou=groups,dc=example,dc=org))",
		buildUserFilter("inetOrgPerson", "uid", "ivanov", "(memberOf=cn=crm,ou=groups,dc=example,dc=org)"),
	)

	// спецсимволы в имени пользователя экранируются
	assert.Equal(t,
		`(&(objectClass=inetOrgPerson)(uid=iva\2anov))`,
		buildUserFilter("inetOrgPerson", "uid", "iva*nov", ""),
	)
}

func TestNormalizeLoginFilter(t *testing.T) {
	assert.Equal(t, "", normalizeLoginFilter("  "))
	assert.Equal(t, "(st=active)", normalizeLoginFilter("st=active"))
	assert.Equal(t, "(st=active)", normalizeLoginFilter(" (st=active) "))
	assert.Equal(t, "(|(a=1)(b=2))", normalizeLoginFilter("(|(a=1)(b=2))"))
}

func TestDirectoryEntryAttributes(t *testing.T) {
	entry := NewDirectoryEntry("uid=ivanov,dc=example,dc=org", map[string][]string{
		"givenName": {"Ivan"},
		"mail":      {"ivanov@example.org", "ivan@example.org"},
	})

	// имена атрибутов регистронезависимы
	v, ok := entry.Attribute("GIVENNAME")
	assert.True(t, ok)
	assert.Equal(t, "Ivan", v)

	_, ok = entry.Attribute("sn")
	assert.False(t, ok)

	assert.Equal(t, []string{"ivanov@example.org", "ivan@example.org"}, entry.Values("Mail"))
}
