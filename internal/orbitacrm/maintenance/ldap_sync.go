// Фоновые задачи обслуживания данных.
//
// Основные возможности:
//   - Периодическая синхронизация профилей автосозданных пользователей
//     с каталогом: перенос атрибутов и деактивация удалённых из каталога.
package maintenance

import (
	"log/slog"

	authprovider "github.com/orbita-it/orbitacrm/internal/orbitacrm/auth-provider"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/config"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/dao"
	"gorm.io/gorm"
)

type LdapSynchronizer struct {
	db        *gorm.DB
	directory authprovider.Directory
	cfg       *config.Config
}

func NewLdapSynchronizer(db *gorm.DB, directory authprovider.Directory, cfg *config.Config) *LdapSynchronizer {
	return &LdapSynchronizer{db: db, directory: directory, cfg: cfg}
}

// SyncJob обновляет профили пользователей с auth_provider = 'ldap' из
// каталога. Пользователи, пропавшие из каталога, деактивируются; пароль и
// тип учётной записи синхронизация не трогает.
func (ls *LdapSynchronizer) SyncJob() {
	slog.Info("Sync directory users")

	session, err := ls.directory.Connect()
	if err != nil {
		slog.Error("Directory connect for sync", "err", err)
		return
	}
	defer session.Close()

	var users []dao.User
	if err := ls.db.Where("auth_provider = ?", "ldap").FindInBatches(&users, 20, func(tx *gorm.DB, batch int) error {
		for i := range users {
			if err := ls.syncUser(tx, session, &users[i]); err != nil {
				slog.Error("Sync directory user", "err", err, "username", users[i].Username)
			}
		}
		return nil
	}).Error; err != nil {
		slog.Error("Update users from directory", "err", err)
	}
}

func (ls *LdapSynchronizer) syncUser(tx *gorm.DB, session authprovider.Session, user *dao.User) error {
	entry, err := session.FindUser(user.Username)
	if err != nil {
		return err
	}

	if entry == nil {
		if !user.IsActive {
			return nil
		}
		slog.Info("Deactivate user missing from directory", "username", user.Username)
		return tx.Model(user).Update("is_active", false).Error
	}

	if err := authprovider.ApplyEntryAttributes(user, entry, ls.cfg); err != nil {
		return err
	}
	return tx.Model(user).
		Select("first_name", "last_name", "title", "email", "phone_number").
		Updates(user).Error
}
