package session

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/cmd/internal/durable"
)

var errWriteRefused = errors.New("write refused")

// refusingStorage accepts reads but fails every write for one key.
type refusingStorage struct {
	*durable.Memory
	refuse string
}

func (r refusingStorage) Set(key, value string) error {
	if key == r.refuse {
		return errWriteRefused
	}
	return r.Memory.Set(key, value)
}

func TestStore_RehydratesFromStorage(t *testing.T) {
	keys := DefaultKeys()
	enc, err := EncodeUser(&UserProfile{ID: "u1", Role: "admin"})
	require.NoError(t, err)

	st := durable.NewMemory(map[string]string{
		keys.User:         enc,
		keys.AccessToken:  "a",
		keys.RefreshToken: "r",
	})

	s := NewStore(st, keys).State()
	require.NotNil(t, s.User)
	assert.Equal(t, "admin", s.Role())
	assert.True(t, s.HasTokens())
}

func TestStore_DispatchPersistsAndNotifies(t *testing.T) {
	keys := DefaultKeys()
	st := durable.NewMemory(nil)

	var seen []ActionType
	store := NewStore(st, keys, WithObserver(func(a Action, _ Session) {
		seen = append(seen, a.Type)
	}))

	_, err := store.Dispatch(SetTokens("a", "r"))
	require.NoError(t, err)
	_, err = store.Dispatch(SetUserData(&UserProfile{ID: "u1"}))
	require.NoError(t, err)
	_, err = store.Dispatch(Action{Type: "NOOP"})
	require.NoError(t, err)

	got, err := store.Dispatch(RemoveTokens())
	require.NoError(t, err)

	assert.Equal(t, []ActionType{ActionSetTokens, ActionSetUserData, ActionRemoveTokens}, seen)
	assert.False(t, got.HasTokens())
	require.NotNil(t, got.User)
	assert.Equal(t, got, InitialState(st, keys))
}

func TestStore_DispatchReportsStorageFailure(t *testing.T) {
	keys := DefaultKeys()
	st := refusingStorage{
		Memory: durable.NewMemory(map[string]string{keys.AccessToken: "old-a", keys.RefreshToken: "old-r"}),
		refuse: keys.RefreshToken,
	}
	store := NewStore(st, keys)

	got, err := store.Dispatch(SetTokens("a", "r"))
	require.ErrorIs(t, err, errWriteRefused)
	assert.Equal(t, "r", got.RefreshToken)

	// The access entry is rolled back so storage never holds half a pair.
	rehydrated := InitialState(st, keys)
	assert.Equal(t, "old-a", rehydrated.AccessToken)
	assert.Equal(t, "old-r", rehydrated.RefreshToken)
}

func TestStore_StateIsACopy(t *testing.T) {
	store := NewStore(durable.NewMemory(nil), DefaultKeys())
	_, err := store.Dispatch(SetUserData(&UserProfile{ID: "u1", Name: "x"}))
	require.NoError(t, err)

	s := store.State()
	s.User.Name = "mutated"
	assert.Equal(t, "x", store.State().User.Name)
}

func TestAction_JSONShape(t *testing.T) {
	b, err := json.Marshal(SetTokens("a", "r"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"SET_TOKENS","payload":{"accessToken":"a","refreshToken":"r"}}`, string(b))

	b, err = json.Marshal(RemoveTokens())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"REMOVE_TOKENS"}`, string(b))

	var a Action
	require.NoError(t, json.Unmarshal([]byte(`{"type":"SET_USER_DATA","payload":{"id":"u1","role":"editor"}}`), &a))
	assert.Equal(t, ActionSetUserData, a.Type)
	require.NotNil(t, a.User)
	assert.Equal(t, "editor", a.User.Role)
}

func TestAction_RedactedDropsTokens(t *testing.T) {
	a := SetTokens("secret-a", "secret-r").Redacted()
	assert.Equal(t, ActionSetTokens, a.Type)
	assert.Equal(t, TokenPair{}, a.Tokens)

	u := &UserProfile{ID: "u1"}
	assert.Equal(t, SetUserData(u), SetUserData(u).Redacted())
}
