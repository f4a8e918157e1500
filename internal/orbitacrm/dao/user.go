// DAO (Data Access Object) для работы с учётными записями пользователей.
//
// Основные возможности:
//   - Модель пользователя (Principal) с типом учётной записи и профилем.
//   - Команды и роли портала, членства пользователей в них.
//   - Поиск пользователей для интерактивного входа (без служебных типов).
//   - Получение выделенного системного пользователя.
package dao

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/types"
	"gorm.io/gorm"
)

// Пользователи
type User struct {
	ID uuid.UUID `gorm:"column:id;primaryKey;type:text" json:"id"`

	// Имя входа уникально среди интерактивных учётных записей,
	// api/system из ограничения исключены
	Username string         `json:"username" gorm:"uniqueIndex:,where:type <> 'api' AND type <> 'system'" validate:"required"`
	Type     types.UserType `json:"type" gorm:"default:'regular'"`

	Password string `json:"-"`

	FirstName   string             `json:"first_name"`
	LastName    string             `json:"last_name"`
	Title       string             `json:"title"`
	Email       types.EmailAddress `json:"email" gorm:"type:jsonb"`
	PhoneNumber string             `json:"phone_number"`

	IsActive bool `json:"is_active"`

	// local | ldap
	AuthProvider string `json:"-" gorm:"default:'local'"`

	CreatedAt   time.Time `json:"created_at"`
	CreatedByID *string   `json:"created_by_id,omitempty"`
	UpdatedAt   time.Time `json:"-"`

	LastLoginTime *time.Time `json:"-"`
	LastLoginIp   string     `json:"-"`

	Teams []Team `json:"-" gorm:"many2many:team_members"`
	Roles []Role `json:"-" gorm:"many2many:portal_user_roles"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = GenUUID()
	}
	if u.Type == "" {
		u.Type = types.UserTypeRegular
	}
	u.CreatedAt = time.Now()

	return
}

func (u User) GetId() string {
	return u.ID.String()
}

func (u *User) String() string {
	return fmt.Sprintf("%s (%s)", u.ID, u.Username)
}

func (u *User) GetName() string {
	if u.FirstName != "" && u.LastName != "" {
		return fmt.Sprintf("%s %s", u.FirstName, u.LastName)
	}
	return u.Username
}

// IsServiceAccount - учётная запись не предназначена для интерактивного входа
func (u *User) IsServiceAccount() bool {
	return u.Type == types.UserTypeAPI || u.Type == types.UserTypeSystem
}

func (u *User) IsAdmin() bool {
	return u.Type == types.UserTypeAdmin || u.Type == types.UserTypeSuperAdmin
}

func (User) TableName() string {
	return "users"
}

// Команды
type Team struct {
	ID        string    `gorm:"column:id;primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Name string `json:"name"`

	Members []User `json:"-" gorm:"many2many:team_members"`
}

func (t *Team) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = GenID()
	}
	return
}

func (Team) TableName() string { return "teams" }

// Роли портала
type Role struct {
	ID        string    `gorm:"column:id;primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Name string `json:"name"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = GenID()
	}
	return
}

func (Role) TableName() string { return "roles" }

// GetLoginUser ищет пользователя для интерактивного входа по имени.
// Служебные типы (api, system) из поиска исключаются. Возвращает nil без
// ошибки, если пользователь не найден.
func GetLoginUser(tx *gorm.DB, username string) (*User, error) {
	var user User
	if err := tx.Preload("Teams").Preload("Roles").
		Where("username = ?", username).
		Where("type not in ?", userTypeStrings(types.ServiceTypes)).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetAdminUser ищет администратора с указанным именем для локального фолбэка.
func GetAdminUser(tx *gorm.DB, username string) (*User, error) {
	var user User
	if err := tx.
		Where("username = ?", username).
		Where("type in ?", userTypeStrings(types.AdminTypes)).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID перечитывает пользователя по сгенерированному идентификатору.
func GetUserByID(tx *gorm.DB, id uuid.UUID) (*User, error) {
	var user User
	if err := tx.Preload("Teams").Preload("Roles").
		Where("id = ?", id).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

const systemUsername = "system"

// GetSystemUser возвращает выделенного системного пользователя. Его
// отсутствие - ошибка развёртывания, запись на лету не создаётся.
func GetSystemUser(tx *gorm.DB) (*User, error) {
	var user User
	if err := tx.Where("username = ? AND type = ?", systemUsername, types.UserTypeSystem).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureSystemUser создаёт системного пользователя, если его ещё нет.
// Вызывается при миграции.
func EnsureSystemUser(tx *gorm.DB) (*User, error) {
	user, err := GetSystemUser(tx)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := User{
		ID:       GenUUID(),
		Username: systemUsername,
		Type:     types.UserTypeSystem,
		IsActive: true,
	}
	if err := tx.Create(&created).Error; err != nil {
		return nil, err
	}
	return &created, nil
}

func userTypeStrings(tt []types.UserType) []string {
	res := make([]string, len(tt))
	for i, t := range tt {
		res[i] = string(t)
	}
	return res
}
