package authprovider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/apierrors"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/dao"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/types"
)

// LevelAlert - уровень для событий безопасности, требующих внимания
// дежурного (например, предъявление чужого токена).
const LevelAlert = slog.LevelError + 4

// GenLoginToken выпускает токен входа для пользователя.
func GenLoginToken(user *dao.User, secret string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.GetId(),
		"iat":     now.Unix(),
		"exp":     now.Add(types.LoginTokenExpiresPeriod).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// loginByToken проверяет токен входа. Несовпадение заявленного имени с
// владельцем токена фиксируется событием уровня LevelAlert: это признак
// попытки использовать чужой токен.
func (r *Resolver) loginByToken(req Request) (*dao.User, error) {
	token, err := jwt.Parse(req.Token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(r.cfg.SecretKey), nil
	})
	if err != nil || !token.Valid {
		observeLogin("token", "failure")
		return nil, apierrors.ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		observeLogin("token", "failure")
		return nil, apierrors.ErrTokenInvalid
	}
	rawID, _ := claims["user_id"].(string)
	id, err := uuid.FromString(rawID)
	if err != nil {
		observeLogin("token", "failure")
		return nil, apierrors.ErrTokenInvalid
	}

	user, err := dao.GetUserByID(r.db, id)
	if err != nil {
		observeLogin("token", "failure")
		return nil, apierrors.ErrTokenInvalid
	}

	if !strings.EqualFold(strings.TrimSpace(req.Username), user.Username) {
		r.log.Log(context.Background(), LevelAlert, "Login token presented for another username",
			"token_user", user.Username,
			"claimed_user", req.Username,
			"remote_addr", req.RemoteAddr,
		)
		observeLogin("token", "mismatch")
		return nil, apierrors.ErrTokenMismatch
	}

	if user.IsServiceAccount() || !user.IsActive {
		observeLogin("token", "failure")
		return nil, apierrors.ErrFailedLogin
	}

	observeLogin("token", "success")
	r.touchLastLogin(user, req.RemoteAddr)
	return user, nil
}
