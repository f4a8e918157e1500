package maintenance

import (
	"errors"
	"os"
	"testing"

	"github.com/glebarez/sqlite"
	authprovider "github.com/orbita-it/orbitacrm/internal/orbitacrm/auth-provider"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/config"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/dao"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	var err error
	testDB, err = gorm.Open(sqlite.Open("file:synctest?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		panic(err)
	}

	if err := testDB.AutoMigrate(&dao.User{}, &dao.Team{}, &dao.Role{}); err != nil {
		panic(err)
	}

	os.Exit(m.Run())
}

type stubDirectory struct {
	connectErr error
	entries    map[string]*authprovider.DirectoryEntry
}

func (d *stubDirectory) Connect() (authprovider.Session, error) {
	if d.connectErr != nil {
		return nil, d.connectErr
	}
	return &stubSession{entries: d.entries}, nil
}

type stubSession struct {
	entries map[string]*authprovider.DirectoryEntry
}

func (s *stubSession) FindUser(username string) (*authprovider.DirectoryEntry, error) {
	return s.entries[username], nil
}

func (s *stubSession) BindUser(string, string) error { return nil }
func (s *stubSession) Close()                        {}

func TestSyncJobUpdatesAttributes(t *testing.T) {
	user := dao.User{
		Username:     "smirnov",
		Type:         types.UserTypeRegular,
		FirstName:    "Stale",
		AuthProvider: "ldap",
		IsActive:     true,
	}
	require.NoError(t, testDB.Create(&user).Error)
	t.Cleanup(func() { testDB.Unscoped().Delete(&user) })

	local := dao.User{
		Username:     "local.only",
		Type:         types.UserTypeRegular,
		FirstName:    "Untouched",
		AuthProvider: "local",
		IsActive:     true,
	}
	require.NoError(t, testDB.Create(&local).Error)
	t.Cleanup(func() { testDB.Unscoped().Delete(&local) })

	dir := &stubDirectory{entries: map[string]*authprovider.DirectoryEntry{
		"smirnov": authprovider.NewDirectoryEntry(
			"uid=smirnov,ou=people,dc=example,dc=org",
			map[string][]string{
				"uid":       {"smirnov"},
				"givenName": {"Oleg"},
				"sn":        {"Smirnov"},
			},
		),
	}}

	cfg := &config.Config{
		LdapUserFirstNameAttribute: "givenName",
		LdapUserLastNameAttribute:  "sn",
	}

	NewLdapSynchronizer(testDB, dir, cfg).SyncJob()

	var got dao.User
	require.NoError(t, testDB.First(&got, "username = ?", "smirnov").Error)
	assert.Equal(t, "Oleg", got.FirstName)
	assert.Equal(t, "Smirnov", got.LastName)
	assert.True(t, got.IsActive)

	// локальные учётные записи синхронизация не трогает
	var untouched dao.User
	require.NoError(t, testDB.First(&untouched, "username = ?", "local.only").Error)
	assert.Equal(t, "Untouched", untouched.FirstName)
}

func TestSyncJobDeactivatesMissingUsers(t *testing.T) {
	user := dao.User{
		Username:     "vanished",
		Type:         types.UserTypeRegular,
		AuthProvider: "ldap",
		IsActive:     true,
	}
	require.NoError(t, testDB.Create(&user).Error)
	t.Cleanup(func() { testDB.Unscoped().Delete(&user) })

	dir := &stubDirectory{entries: map[string]*authprovider.DirectoryEntry{}}

	NewLdapSynchronizer(testDB, dir, &config.Config{}).SyncJob()

	var got dao.User
	require.NoError(t, testDB.First(&got, "username = ?", "vanished").Error)
	assert.False(t, got.IsActive)
}

func TestSyncJobDirectoryUnavailable(t *testing.T) {
	user := dao.User{
		Username:     "steady",
		Type:         types.UserTypeRegular,
		FirstName:    "Same",
		AuthProvider: "ldap",
		IsActive:     true,
	}
	require.NoError(t, testDB.Create(&user).Error)
	t.Cleanup(func() { testDB.Unscoped().Delete(&user) })

	dir := &stubDirectory{connectErr: errors.New("dial tcp: connection refused")}

	// недоступный каталог не меняет локальные данные
	NewLdapSynchronizer(testDB, dir, &config.Config{}).SyncJob()

	var got dao.User
	require.NoError(t, testDB.First(&got, "username = ?", "steady").Error)
	assert.Equal(t, "Same", got.FirstName)
	assert.True(t, got.IsActive)
}
