// Управление конфигурацией приложения из переменных окружения.
// Содержит структуру Config для хранения параметров и функцию ReadConfig для их загрузки.
//
// Основные возможности:
//   - Загрузка конфигурации из переменных окружения с использованием тегов struct.
//   - Валидация обязательных переменных.
//   - Маскировка секретных значений (passwords) в логах.
//   - Значения по умолчанию для параметров поиска в каталоге.
package config

import (
	"log/slog"
	"net/url"
	"os"
	"reflect"
	"strings"
)

type Config struct {
	SecretKey   string `env:"SECRET_KEY"`
	DatabaseDSN string `env:"DATABASE_URL"`

	// Подключение к каталогу (LDAP)
	LdapURLRaw       string `env:"LDAP_URL"`
	LdapURL          *url.URL
	LdapBindDN       string `env:"LDAP_BIND_DN"`
	LdapBindPassword string `env:"LDAP_BIND_PASSWORD"`
	LdapBaseDN       string `env:"LDAP_BASE_DN"`

	// Параметры поиска пользователя
	LdapUserLoginFilter   string `env:"LDAP_USER_LOGIN_FILTER"`
	LdapUserObjectClass   string `env:"LDAP_USER_OBJECT_CLASS"`
	LdapUserNameAttribute string `env:"LDAP_USERNAME_ATTRIBUTE"`

	LdapPortalUserAuth bool `env:"LDAP_PORTAL_USER_AUTH"`
	LdapCreateUser     bool `env:"LDAP_CREATE_USER"`

	// Атрибуты каталога, переносимые в локальную учётную запись при
	// автосоздании. Пустое значение выключает перенос поля.
	LdapUserFirstNameAttribute string `env:"LDAP_USER_FIRST_NAME_ATTRIBUTE"`
	LdapUserLastNameAttribute  string `env:"LDAP_USER_LAST_NAME_ATTRIBUTE"`
	LdapUserTitleAttribute     string `env:"LDAP_USER_TITLE_ATTRIBUTE"`
	LdapUserEmailAttribute     string `env:"LDAP_USER_EMAIL_ATTRIBUTE"`
	LdapUserPhoneAttribute     string `env:"LDAP_USER_PHONE_ATTRIBUTE"`

	// Статические значения для автосозданных учётных записей
	LdapUserDefaultTeamID   string `env:"LDAP_USER_DEFAULT_TEAM_ID"`
	LdapPortalUserTeamIDs   string `env:"LDAP_PORTAL_USER_TEAM_IDS"`
	LdapPortalUserRoleIDs   string `env:"LDAP_PORTAL_USER_ROLE_IDS"`

	// Cron-расписание фоновой синхронизации атрибутов, пустое - выключено
	LdapSyncSchedule string `env:"LDAP_SYNC_SCHEDULE"`
}

// ReadConfig загружает конфигурацию приложения из переменных окружения и
// выполняет валидацию. Если LDAP_URL задан, но не парсится, приложение
// завершает работу с ошибкой. Секретные значения маскируются в логах.
func ReadConfig() *Config {
	config := &Config{}

	envConfig("env", config)

	if config.LdapURLRaw != "" {
		var err error
		config.LdapURL, err = url.Parse(config.LdapURLRaw)
		if err != nil {
			slog.Error("LDAP_URL incorrect", "err", err)
			os.Exit(1)
		}
	}

	if config.LdapUserObjectClass == "" {
		config.LdapUserObjectClass = "inetOrgPerson"
	}

	if config.LdapUserNameAttribute == "" {
		config.LdapUserNameAttribute = "uid"
	}

	return config
}

// CSVList разбирает значение-перечисление вида "id1,id2" из конфигурации.
func CSVList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}

// Присваивает полям в переданной структуре значения переменных. Название переменной для каждого поля лежит в теге этого поля.
func envConfig(key string, s interface{}) {
	v := reflect.ValueOf(s).Elem()
	typeParam := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fName := typeParam.Field(i).Name
		fEnvTag := typeParam.Field(i).Tag.Get(key)

		if !Exist(fEnvTag) {
			continue
		}

		logValue := GetEnv(fEnvTag)
		if logValue == "" {
			continue
		}

		// Secure passwords in log
		if strings.Contains(strings.ToLower(fName), "pass") || strings.Contains(strings.ToLower(fName), "secret") || strings.Contains(strings.ToLower(fName), "token") {
			pass := strings.Split(GetEnv(fEnvTag), "")
			logValue = pass[0]
			for i := 1; i < len(pass)-1; i++ {
				logValue += "*"
			}
			logValue += pass[len(pass)-1]
		}
		slog.Info("Set config value",
			slog.String("key", typeParam.Name()+"."+fName),
			slog.String("value", logValue),
			slog.String("source", "ENVIRONMENT"),
		)

		switch v.Field(i).Interface().(type) {
		case string:
			v.Field(i).SetString(GetEnv(fEnvTag))
		case int:
			v.Field(i).SetInt(int64(GetIntEnv(fEnvTag)))
		case bool:
			v.Field(i).SetBool(GetBoolEnv(fEnvTag))
		}
	}
}
