package authprovider

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/apierrors"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/config"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/dao"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/identity"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/types"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Зарезервированное имя пользователя, которое клиенты присылают при
// выходе из сессии. Попыткой входа такой запрос не считается.
const logoutSentinel = "**logout**"

var validate = validator.New()

// Resolver выполняет аутентификацию по каталогу с локальными фолбэками
// и автосозданием учётных записей.
type Resolver struct {
	db        *gorm.DB
	directory Directory
	cfg       *config.Config
	log       *slog.Logger

	// Схлопывает параллельные автосоздания одного и того же пользователя
	provision singleflight.Group
}

func NewResolver(db *gorm.DB, directory Directory, cfg *config.Config, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{db: db, directory: directory, cfg: cfg, log: log}
}

// Request - учётные данные одной попытки входа.
type Request struct {
	Username string
	Password string
	// Токен входа; при его наличии пароль не проверяется
	Token string
	// Вход через портал
	Portal     bool
	RemoteAddr string
}

// Authenticate проверяет учётные данные и возвращает пользователя.
//
// Исход (nil, nil) означает, что попытка входа не предпринималась:
// пустой пароль или пароль-заглушка выхода. Любая ошибка, для которой
// apierrors.IsAuthFailure возвращает true, предъявляется клиенту как
// обычный отказ во входе.
func (r *Resolver) Authenticate(acting *identity.Slot, req Request) (*dao.User, error) {
	if req.Token != "" {
		return r.loginByToken(req)
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))

	if req.Password == "" || username == logoutSentinel {
		return nil, nil
	}
	if username == "" {
		observeLogin(methodOf(req), "failure")
		return nil, apierrors.ErrLoginCredentialsRequired
	}

	// Портальные пользователи по умолчанию не ходят в каталог
	if req.Portal && !r.cfg.LdapPortalUserAuth {
		return r.localLogin(username, req.Password, req.RemoteAddr)
	}

	session, err := r.directory.Connect()
	if err != nil {
		r.log.Error("Directory connect", "err", err, "username", username)
		if admin := r.adminFallback(username, req.Password); admin != nil {
			observeLogin(methodOf(req), "admin_fallback")
			r.touchLastLogin(admin, req.RemoteAddr)
			return admin, nil
		}
		observeLogin(methodOf(req), "failure")
		return nil, apierrors.ErrDirectoryUnavailable
	}
	defer session.Close()

	entry, err := session.FindUser(username)
	if err != nil {
		r.log.Error("Directory search", "err", err, "username", username)
		if admin := r.adminFallback(username, req.Password); admin != nil {
			observeLogin(methodOf(req), "admin_fallback")
			r.touchLastLogin(admin, req.RemoteAddr)
			return admin, nil
		}
		observeLogin(methodOf(req), "failure")
		return nil, apierrors.ErrDirectoryUnavailable
	}
	if entry == nil {
		if admin := r.adminFallback(username, req.Password); admin != nil {
			observeLogin(methodOf(req), "admin_fallback")
			r.touchLastLogin(admin, req.RemoteAddr)
			return admin, nil
		}
		observeLogin(methodOf(req), "failure")
		return nil, apierrors.ErrDirectoryUserNotFound
	}

	// Отказ каталога по паролю найденного пользователя окончателен,
	// фолбэк на администратора не применяется
	if err := session.BindUser(entry.DN, req.Password); err != nil {
		observeLogin(methodOf(req), "failure")
		return nil, apierrors.ErrInvalidCredentials
	}

	user, err := dao.GetLoginUser(r.db, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = r.provisionUser(acting, username, entry, req.Portal)
		if err != nil {
			observeLogin(methodOf(req), "failure")
			return nil, err
		}
		r.log.Info("User auto-created from directory", "username", username, "user_id", user.GetId())
	}

	if !user.IsActive {
		observeLogin(methodOf(req), "failure")
		return nil, apierrors.ErrFailedLogin
	}

	observeLogin(methodOf(req), "success")
	r.touchLastLogin(user, req.RemoteAddr)
	return user, nil
}

// localLogin проверяет учётные данные по локальной БД.
func (r *Resolver) localLogin(username string, password string, remoteAddr string) (*dao.User, error) {
	user, err := dao.GetLoginUser(r.db, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive || !dao.CheckPassword(password, user.Password) {
		observeLogin("local", "failure")
		return nil, apierrors.ErrFailedLogin
	}
	observeLogin("local", "success")
	r.touchLastLogin(user, remoteAddr)
	return user, nil
}

// adminFallback ищет локального администратора с совпадающими учётными
// данными. Возвращает nil, если такого нет, причина решения не нужна:
// снаружи этот исход неотличим от обычного отказа.
func (r *Resolver) adminFallback(username string, password string) *dao.User {
	admin, err := dao.GetAdminUser(r.db, username)
	if err != nil {
		r.log.Error("Admin fallback lookup", "err", err, "username", username)
		return nil
	}
	if admin == nil || !admin.IsActive {
		return nil
	}
	if !dao.CheckPassword(password, admin.Password) {
		return nil
	}
	return admin
}

// provisionUser создаёт локальную учётную запись из записи каталога.
// Действующая личность переключается на системного пользователя до
// проверки запрета автосоздания: побочные эффекты отказа тоже
// записываются от имени системы.
func (r *Resolver) provisionUser(acting *identity.Slot, username string, entry *DirectoryEntry, portal bool) (*dao.User, error) {
	system, err := dao.GetSystemUser(r.db)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apierrors.ErrSystemUserMissing, err)
	}
	if acting != nil {
		acting.Set(system)
	}

	if !r.cfg.LdapCreateUser {
		return nil, apierrors.ErrProvisioningDisabled
	}

	v, err, _ := r.provision.Do(username, func() (interface{}, error) {
		// Параллельный победитель мог уже создать запись
		if existing, err := dao.GetLoginUser(r.db, username); err != nil || existing != nil {
			return existing, err
		}

		user, err := r.buildUser(username, entry, portal, system)
		if err != nil {
			return nil, err
		}
		if err := r.db.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return dao.GetLoginUser(r.db, username)
			}
			return nil, err
		}
		return dao.GetUserByID(r.db, user.ID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*dao.User), nil
}

// buildUser собирает новую учётную запись по таблицам соответствия.
func (r *Resolver) buildUser(username string, entry *DirectoryEntry, portal bool, system *dao.User) (*dao.User, error) {
	systemID := system.GetId()
	user := &dao.User{
		ID:           dao.GenUUID(),
		Username:     username,
		Password:     dao.GenPasswordHash(dao.GenPassword()),
		IsActive:     true,
		AuthProvider: "ldap",
		CreatedByID:  &systemID,
	}

	if err := ApplyEntryAttributes(user, entry, r.cfg); err != nil {
		return nil, err
	}

	if portal {
		user.Type = types.UserTypePortal
		for _, m := range Lookup(TablePortalUser, r.cfg) {
			ids := config.CSVList(m.Option(r.cfg))
			switch m.Field {
			case FieldPortalTeams:
				for _, id := range ids {
					user.Teams = append(user.Teams, dao.Team{ID: id})
				}
			case FieldPortalRoles:
				for _, id := range ids {
					user.Roles = append(user.Roles, dao.Role{ID: id})
				}
			}
		}
	} else {
		user.Type = types.UserTypeRegular
		for _, m := range Lookup(TableUser, r.cfg) {
			if m.Field == FieldDefaultTeam {
				user.Teams = append(user.Teams, dao.Team{ID: m.Option(r.cfg)})
			}
		}
	}

	if err := validate.Struct(user); err != nil {
		return nil, err
	}
	return user, nil
}

// ApplyEntryAttributes переносит настроенные атрибуты записи каталога в
// поля профиля. Используется при автосоздании и фоновой синхронизации.
func ApplyEntryAttributes(user *dao.User, entry *DirectoryEntry, cfg *config.Config) error {
	for _, m := range Lookup(TableAttributes, cfg) {
		value, ok := entry.Attribute(m.Option(cfg))
		if !ok {
			continue
		}
		switch m.Field {
		case FieldFirstName:
			user.FirstName = value
		case FieldLastName:
			user.LastName = value
		case FieldTitle:
			user.Title = value
		case FieldPhone:
			user.PhoneNumber = value
		case FieldEmail:
			email, err := types.ParseEmailAddress(value)
			if err != nil {
				return apierrors.ErrInvalidEmail
			}
			user.Email = email
		}
	}
	return nil
}

func (r *Resolver) touchLastLogin(user *dao.User, remoteAddr string) {
	now := time.Now()
	user.LastLoginTime = &now
	user.LastLoginIp = remoteAddr
	if err := r.db.Model(user).
		Updates(map[string]interface{}{"last_login_time": now, "last_login_ip": remoteAddr}).Error; err != nil {
		r.log.Error("Update last login", "err", err, "user_id", user.GetId())
	}
}

func methodOf(req Request) string {
	if req.Portal {
		return "portal"
	}
	return "directory"
}
