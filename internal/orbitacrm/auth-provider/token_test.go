package authprovider

import (
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/apierrors"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/dao"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/identity"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginByToken(t *testing.T) {
	owner := createUser(t, dao.User{
		Username: "token.owner",
		Type:     types.UserTypeRegular,
		Password: dao.GenPasswordHash("pwd"),
		IsActive: true,
	})

	cfg := testConfig()
	r, sink := newTestResolver(t, directoryWith(), cfg)

	token, err := GenLoginToken(&owner, cfg.SecretKey)
	require.NoError(t, err)

	user, err := r.Authenticate(identity.NewSlot(), Request{
		Username: "Token.Owner", // имя сравнивается без учёта регистра
		Token:    token,
	})
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, owner.ID, user.ID)
	assert.Equal(t, 0, sink.count(LevelAlert))
}

func TestLoginByTokenMismatch(t *testing.T) {
	owner := createUser(t, dao.User{
		Username: "honest.user",
		Type:     types.UserTypeRegular,
		Password: dao.GenPasswordHash("pwd"),
		IsActive: true,
	})

	cfg := testConfig()
	r, sink := newTestResolver(t, directoryWith(), cfg)

	token, err := GenLoginToken(&owner, cfg.SecretKey)
	require.NoError(t, err)

	_, err = r.Authenticate(identity.NewSlot(), Request{
		Username:   "someone.else",
		Token:      token,
		RemoteAddr: "203.0.113.7",
	})
	assert.Equal(t, apierrors.ErrTokenMismatch, err)
	assert.True(t, apierrors.IsAuthFailure(err))

	// ровно одно событие тревоги на попытку
	assert.Equal(t, 1, sink.count(LevelAlert))
}

func TestLoginByTokenInvalid(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestResolver(t, directoryWith(), cfg)

	for name, token := range map[string]string{
		"garbage":      "not-a-jwt",
		"wrong secret": mustSign(t, jwt.MapClaims{"user_id": systemUser.GetId()}, "other-secret"),
		"bad user id":  mustSign(t, jwt.MapClaims{"user_id": "not-a-uuid"}, cfg.SecretKey),
		"expired": mustSign(t, jwt.MapClaims{
			"user_id": systemUser.GetId(),
			"exp":     time.Now().Add(-time.Minute).Unix(),
		}, cfg.SecretKey),
	} {
		_, err := r.Authenticate(identity.NewSlot(), Request{Username: "system", Token: token})
		assert.Equal(t, apierrors.ErrTokenInvalid, err, name)
	}
}

func TestLoginByTokenServiceAccountRejected(t *testing.T) {
	cfg := testConfig()
	r, sink := newTestResolver(t, directoryWith(), cfg)

	token, err := GenLoginToken(systemUser, cfg.SecretKey)
	require.NoError(t, err)

	_, err = r.Authenticate(identity.NewSlot(), Request{Username: "system", Token: token})
	assert.Equal(t, apierrors.ErrFailedLogin, err)
	assert.Equal(t, 0, sink.count(LevelAlert))
	assert.Equal(t, 0, sink.count(slog.LevelError))
}

func TestGenLoginTokenClaims(t *testing.T) {
	owner := createUser(t, dao.User{
		Username: "claims.user",
		Type:     types.UserTypeRegular,
		IsActive: true,
	})

	signed, err := GenLoginToken(&owner, "test-secret")
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, owner.GetId(), claims["user_id"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(types.LoginTokenExpiresPeriod), exp.Time, time.Minute)
}

func mustSign(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}
