package authprovider

import (
	"testing"

	"github.com/orbita-it/orbitacrm/internal/orbitacrm/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupSkipsEmptyOptions(t *testing.T) {
	cfg := &config.Config{
		LdapUserFirstNameAttribute: "givenName",
		LdapUserEmailAttribute:     "mail",
	}

	entries := Lookup(TableAttributes, cfg)
	require.Len(t, entries, 2)
	assert.Equal(t, FieldFirstName, entries[0].Field)
	assert.Equal(t, FieldEmail, entries[1].Field)

	// фамилия не настроена и в выборку не попадает
	for _, e := range entries {
		assert.NotEqual(t, FieldLastName, e.Field)
	}

	assert.Empty(t, Lookup(TableUser, cfg))
	assert.Empty(t, Lookup(TablePortalUser, cfg))
}

func TestLookupStaticTables(t *testing.T) {
	cfg := &config.Config{
		LdapUserDefaultTeamID: "team-1",
		LdapPortalUserTeamIDs: "team-2,team-3",
		LdapPortalUserRoleIDs: "role-1",
	}

	user := Lookup(TableUser, cfg)
	require.Len(t, user, 1)
	assert.Equal(t, FieldDefaultTeam, user[0].Field)
	assert.Equal(t, "team-1", user[0].Option(cfg))

	portal := Lookup(TablePortalUser, cfg)
	require.Len(t, portal, 2)
	assert.Equal(t, FieldPortalTeams, portal[0].Field)
	assert.Equal(t, []string{"team-2", "team-3"}, config.CSVList(portal[0].Option(cfg)))
	assert.Equal(t, FieldPortalRoles, portal[1].Field)
}

func TestFieldString(t *testing.T) {
	assert.Equal(t, "emailAddress", FieldEmail.String())
	assert.Equal(t, "unknown", Field(0).String())
}
