package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasirku/backend-pos/internal/common"
)

type fakeStore struct {
	users map[string]User
	err   error
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (User, error) {
	if f.err != nil {
		return User{}, f.err
	}
	u, ok := f.users[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (User, error) {
	if f.err != nil {
		return User{}, f.err
	}
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func newTestService(t *testing.T, store Store) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Store:          store,
		Secret:         "test-secret-please-rotate",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestLoginIssuesParsableToken(t *testing.T) {
	store := &fakeStore{users: map[string]User{
		"kasir1": {ID: "u-1", Username: "kasir1", PIN: "1111", Role: "cashier"},
	}}
	svc := newTestService(t, store)

	result, err := svc.Login(context.Background(), "kasir1", "1111")
	require.NoError(t, err)
	assert.Equal(t, "u-1", result.User.ID)
	assert.Equal(t, "cashier", result.User.Role)
	assert.NotEmpty(t, result.AccessToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), result.AccessExpiry, time.Minute)

	identity, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", identity.UserID)
	assert.Equal(t, "kasir1", identity.Username)
	assert.Equal(t, "cashier", identity.Role)
}

func TestLoginWrongPIN(t *testing.T) {
	store := &fakeStore{users: map[string]User{
		"kasir1": {ID: "u-1", Username: "kasir1", PIN: "1111", Role: "cashier"},
	}}
	svc := newTestService(t, store)

	_, err := svc.Login(context.Background(), "kasir1", "9999")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
	assert.Equal(t, "username or pin incorrect", appErr.Message)
}

func TestLoginUnknownUserSameMessage(t *testing.T) {
	svc := newTestService(t, &fakeStore{users: map[string]User{}})

	_, err := svc.Login(context.Background(), "ghost", "1111")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
	assert.Equal(t, "username or pin incorrect", appErr.Message)
}

func TestLoginRequiresCredentials(t *testing.T) {
	svc := newTestService(t, &fakeStore{})

	_, err := svc.Login(context.Background(), " ", "")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestLoginStoreFailurePropagates(t *testing.T) {
	boom := errors.New("connection reset")
	svc := newTestService(t, &fakeStore{err: boom})

	_, err := svc.Login(context.Background(), "kasir1", "1111")
	require.ErrorIs(t, err, boom)
	assert.False(t, common.IsAppError(err))
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	store := &fakeStore{users: map[string]User{
		"kasir1": {ID: "u-1", Username: "kasir1", PIN: "1111", Role: "cashier"},
	}}
	svc := newTestService(t, store)

	past := time.Now().Add(-3 * time.Hour)
	svc.now = func() time.Time { return past }
	result, err := svc.Login(context.Background(), "kasir1", "1111")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ParseAccessToken(result.AccessToken)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(t, &fakeStore{})

	for _, token := range []string{"", "not-a-token", "aaa.bbb.ccc"} {
		_, err := svc.ParseAccessToken(token)
		assert.Error(t, err, "token %q", token)
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	store := &fakeStore{users: map[string]User{
		"admin": {ID: "u-9", Username: "admin", PIN: "1234", Role: "admin"},
	}}
	issuer := newTestService(t, store)
	result, err := issuer.Login(context.Background(), "admin", "1234")
	require.NoError(t, err)

	other, err := NewService(Config{Store: store, Secret: "a-different-secret"})
	require.NoError(t, err)
	_, err = other.ParseAccessToken(result.AccessToken)
	assert.Error(t, err)
}
