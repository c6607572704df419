package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasirku/backend-pos/internal/auth"
	"github.com/kasirku/backend-pos/internal/common"
)

type fakeStore struct {
	accounts map[string]Account
	pins     map[string]string
	nextID   string
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: map[string]Account{}, pins: map[string]string{}, nextID: "u-1"}
}

func (f *fakeStore) List(context.Context) ([]Account, error) {
	out := make([]Account, 0, len(f.accounts))
	for _, a := range f.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) Create(_ context.Context, username, storedPIN, role string) (Account, error) {
	for _, a := range f.accounts {
		if a.Username == username {
			return Account{}, ErrDuplicateUsername
		}
	}
	a := Account{ID: f.nextID, Username: username, Role: role}
	f.accounts[a.ID] = a
	f.pins[a.ID] = storedPIN
	return a, nil
}

func (f *fakeStore) Update(_ context.Context, id, username, role string) (Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	a.Username = username
	a.Role = role
	f.accounts[id] = a
	return a, nil
}

func (f *fakeStore) UpdatePIN(_ context.Context, id, storedPIN string) error {
	if _, ok := f.accounts[id]; !ok {
		return ErrNotFound
	}
	f.pins[id] = storedPIN
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	if _, ok := f.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(f.accounts, id)
	delete(f.pins, id)
	return nil
}

func TestCreateStoresHashedPIN(t *testing.T) {
	store := newFakeStore()
	svc, err := NewService(store, auth.Argon2PIN{})
	require.NoError(t, err)

	account, err := svc.Create(context.Background(), Input{Username: "kasir1", PIN: "1111", Role: RoleCashier})
	require.NoError(t, err)

	stored := store.pins[account.ID]
	assert.NotEqual(t, "1111", stored)
	ok, err := auth.Argon2PIN{}.Verify("1111", stored)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreatePlainSchemeKeepsPIN(t *testing.T) {
	store := newFakeStore()
	svc, err := NewService(store, auth.PlainPIN{})
	require.NoError(t, err)

	account, err := svc.Create(context.Background(), Input{Username: "kasir1", PIN: "1111", Role: RoleCashier})
	require.NoError(t, err)
	assert.Equal(t, "1111", store.pins[account.ID])
}

func TestCreateDuplicateUsername(t *testing.T) {
	store := newFakeStore()
	svc, err := NewService(store, nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), Input{Username: "admin", PIN: "1234", Role: RoleAdmin})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), Input{Username: "admin", PIN: "5678", Role: RoleCashier})

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)
}

func TestCreateValidation(t *testing.T) {
	svc, err := NewService(newFakeStore(), nil)
	require.NoError(t, err)

	cases := []Input{
		{Username: "", PIN: "1234", Role: RoleAdmin},
		{Username: "admin", PIN: "", Role: RoleAdmin},
		{Username: "admin", PIN: "1234", Role: "manager"},
	}
	for _, input := range cases {
		_, err := svc.Create(context.Background(), input)
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	}
}

func TestUpdateWithoutPINKeepsCredential(t *testing.T) {
	store := newFakeStore()
	svc, err := NewService(store, auth.PlainPIN{})
	require.NoError(t, err)

	account, err := svc.Create(context.Background(), Input{Username: "kasir1", PIN: "1111", Role: RoleCashier})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), account.ID, Input{Username: "kasir1b", Role: RoleCashier})
	require.NoError(t, err)
	assert.Equal(t, "kasir1b", updated.Username)
	assert.Equal(t, "1111", store.pins[account.ID])

	_, err = svc.Update(context.Background(), account.ID, Input{Username: "kasir1b", PIN: "2222", Role: RoleCashier})
	require.NoError(t, err)
	assert.Equal(t, "2222", store.pins[account.ID])
}

func TestDeleteMissing(t *testing.T) {
	svc, err := NewService(newFakeStore(), nil)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "ghost")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}
