// Пакет содержит определения ошибок аутентификации OrbitaCRM. Каждая ошибка
// имеет код, HTTP-статус и описание. Коды различают исходы для логирования и
// диагностики; пользователю любой исход кроме конфигурационной ошибки
// предъявляется одинаково (см. IsAuthFailure), чтобы не раскрывать, какие
// учётные записи существуют в каталоге.
//
// Основные возможности:
//   - Типизированные ошибки входа (недоступность каталога, неизвестный
//     пользователь, неверные учётные данные, запрет автосоздания, подмена токена).
//   - Коды ошибок, соответствующие кодам HTTP статусов.
//   - Функция для форматирования сообщений об ошибках с использованием аргументов.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type DefinedError struct {
	Code       int    `json:"code"`
	StatusCode int    `json:"-"`
	Err        string `json:"error"`
	RuErr      string `json:"ru_error,omitempty"`
}

func (e DefinedError) Error() string {
	return e.Err
}

func (e DefinedError) WithFormattedMessage(args ...interface{}) DefinedError {
	n := strings.Count(e.Err, "%s")
	if n > len(args) {
		n = len(args)
	}
	e.Err = fmt.Sprintf(e.Err, args[:n]...)
	if strings.Contains(e.RuErr, "%s") {
		e.RuErr = fmt.Sprintf(e.RuErr, args[:n]...)
	}
	return e
}

var (
	// 1*** - auth errors
	ErrFailedLogin              = DefinedError{Code: 1001, StatusCode: http.StatusUnauthorized, Err: "invalid credentials", RuErr: "Неправильное имя пользователя или пароль"}
	ErrLoginCredentialsRequired = DefinedError{Code: 1002, StatusCode: http.StatusUnauthorized, Err: "both username and password are required", RuErr: "Поля имя пользователя и пароль не могут быть пустыми"}
	ErrDirectoryUnavailable     = DefinedError{Code: 1003, StatusCode: http.StatusUnauthorized, Err: "directory service unavailable", RuErr: "Служба каталога недоступна"}
	ErrDirectoryUserNotFound    = DefinedError{Code: 1004, StatusCode: http.StatusUnauthorized, Err: "user not found in directory", RuErr: "Пользователь не найден в каталоге"}
	ErrInvalidCredentials       = DefinedError{Code: 1005, StatusCode: http.StatusUnauthorized, Err: "directory rejected user credentials", RuErr: "Каталог отклонил учётные данные пользователя"}
	ErrProvisioningDisabled     = DefinedError{Code: 1006, StatusCode: http.StatusUnauthorized, Err: "account auto-creation is disabled", RuErr: "Автоматическое создание учётных записей отключено"}
	ErrTokenMismatch            = DefinedError{Code: 1007, StatusCode: http.StatusUnauthorized, Err: "token does not belong to the claimed user", RuErr: "Токен не принадлежит указанному пользователю"}
	ErrTokenInvalid             = DefinedError{Code: 1008, StatusCode: http.StatusUnauthorized, Err: "invalid token", RuErr: "Неверный токен"}
	ErrInvalidEmail             = DefinedError{Code: 1009, StatusCode: http.StatusBadRequest, Err: "invalid email address", RuErr: "Указан некорректный email"}

	// 19** - deployment errors, never masked as a failed login
	ErrSystemUserMissing = DefinedError{Code: 1901, StatusCode: http.StatusInternalServerError, Err: "system user is missing", RuErr: "Системный пользователь отсутствует в базе"}
)

// IsAuthFailure сообщает, нужно ли предъявить ошибку как обычный отказ во
// входе. Конфигурационные ошибки (19**) не маскируются.
func IsAuthFailure(err error) bool {
	var de DefinedError
	if !errors.As(err, &de) {
		return false
	}
	return de.Code >= 1001 && de.Code < 1900
}
