package session

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/cmd/internal/durable"
)

func sampleSessions() []Session {
	return []Session{
		{},
		{User: &UserProfile{ID: "u1", Name: "Ada", Role: "admin"}},
		{AccessToken: "a0", RefreshToken: "r0"},
		{User: &UserProfile{ID: "u2", Email: "e@example.com"}, AccessToken: "a1", RefreshToken: "r1"},
	}
}

func TestReduce_RemoveTokensKeepsUser(t *testing.T) {
	for _, s := range sampleSessions() {
		got := Reduce(s, RemoveTokens())
		assert.Empty(t, got.AccessToken)
		assert.Empty(t, got.RefreshToken)
		assert.Equal(t, s.User, got.User)
	}
}

func TestReduce_RemoveTokensIdempotent(t *testing.T) {
	for _, s := range sampleSessions() {
		once := Reduce(s, RemoveTokens())
		twice := Reduce(once, RemoveTokens())
		assert.Equal(t, once, twice)
	}
}

func TestReduce_SetUserDataKeepsTokens(t *testing.T) {
	payloads := []*UserProfile{
		nil,
		{ID: "u9", Username: "root", Role: "admin"},
	}
	for _, s := range sampleSessions() {
		for _, p := range payloads {
			got := Reduce(s, SetUserData(p))
			assert.Equal(t, p, got.User)
			assert.Equal(t, s.AccessToken, got.AccessToken)
			assert.Equal(t, s.RefreshToken, got.RefreshToken)
		}
	}
}

func TestReduce_SetUserDataCopiesPayload(t *testing.T) {
	p := &UserProfile{ID: "u1", Name: "before"}
	got := Reduce(Session{}, SetUserData(p))
	p.Name = "after"
	assert.Equal(t, "before", got.User.Name)
}

func TestReduce_SetTokensKeepsUser(t *testing.T) {
	for _, s := range sampleSessions() {
		got := Reduce(s, SetTokens("a", "r"))
		assert.Equal(t, "a", got.AccessToken)
		assert.Equal(t, "r", got.RefreshToken)
		assert.Equal(t, s.User, got.User)
	}
}

func TestReduce_UnknownActionIsNoop(t *testing.T) {
	for _, s := range sampleSessions() {
		got := Reduce(s, Action{Type: "NOOP"})
		assert.Equal(t, s, got)
	}
}

func TestSetTokens_RoundTripsThroughStorage(t *testing.T) {
	keys := DefaultKeys()
	pairs := []TokenPair{
		{AccessToken: "a", RefreshToken: "r"},
		{AccessToken: "v4.public.abc", RefreshToken: "v4.public.def"},
	}

	for _, p := range pairs {
		st := durable.NewMemory(nil)
		a := SetTokens(p.AccessToken, p.RefreshToken)

		next := Reduce(Session{}, a)
		require.NoError(t, Persist(st, keys, a))

		again := InitialState(st, keys)
		assert.Equal(t, next.AccessToken, again.AccessToken)
		assert.Equal(t, next.RefreshToken, again.RefreshToken)
	}
}

func TestInitialState_CorruptUserIsAbsent(t *testing.T) {
	keys := DefaultKeys()
	st := durable.NewMemory(map[string]string{
		keys.User:         "%%%not-base64",
		keys.AccessToken:  "a",
		keys.RefreshToken: "r",
	})

	s := InitialState(st, keys)
	assert.Nil(t, s.User)
	assert.Equal(t, "a", s.AccessToken)
	assert.Equal(t, "r", s.RefreshToken)
}

func TestDecodeUser_EmptyProfilesAreAbsent(t *testing.T) {
	for _, raw := range []string{"null", "{}", `{"name":"Ada","role":"admin"}`, `{"id":"  "}`} {
		assert.Nil(t, DecodeUser(base64.RawURLEncoding.EncodeToString([]byte(raw))), raw)
	}

	u := DecodeUser(base64.RawURLEncoding.EncodeToString([]byte(`{"id":"u1","role":"editor"}`)))
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.ID)
}

func TestInitialState_EmptyStorage(t *testing.T) {
	assert.Equal(t, Session{}, InitialState(durable.NewMemory(nil), DefaultKeys()))
	assert.Equal(t, Session{}, InitialState(nil, DefaultKeys()))
}

func TestPersist_UserRoundTrip(t *testing.T) {
	keys := DefaultKeys()
	st := durable.NewMemory(nil)
	u := &UserProfile{ID: "01J0", Username: "ada", Name: "Ada Lovelace", Email: "ada@example.com", Role: "admin"}

	require.NoError(t, Persist(st, keys, SetUserData(u)))
	assert.Equal(t, u, InitialState(st, keys).User)

	require.NoError(t, Persist(st, keys, SetUserData(nil)))
	assert.Nil(t, InitialState(st, keys).User)
}

func TestPersist_RemoveTokensKeepsUserEntry(t *testing.T) {
	keys := DefaultKeys()
	st := durable.NewMemory(nil)

	require.NoError(t, Persist(st, keys, SetUserData(&UserProfile{ID: "u"})))
	require.NoError(t, Persist(st, keys, SetTokens("a", "r")))
	require.NoError(t, Persist(st, keys, RemoveTokens()))

	s := InitialState(st, keys)
	require.NotNil(t, s.User)
	assert.False(t, s.HasTokens())
	assert.Equal(t, 1, st.Len())
}

func TestPersist_UnknownActionWritesNothing(t *testing.T) {
	st := durable.NewMemory(nil)
	require.NoError(t, Persist(st, DefaultKeys(), Action{Type: "NOOP"}))
	assert.Equal(t, 0, st.Len())
}

func TestPersist_NoStorage(t *testing.T) {
	assert.ErrorIs(t, Persist(nil, DefaultKeys(), RemoveTokens()), ErrNoStorage)
}

func TestPersist_SetTokensRejectedLeavesStoredPair(t *testing.T) {
	keys := DefaultKeys()
	st := durable.NewMemory(map[string]string{keys.AccessToken: "old-a", keys.RefreshToken: "old-r"})
	store := NewStore(st, keys)

	_, err := store.Dispatch(SetTokens("new-a", "new r"))
	require.ErrorIs(t, err, durable.ErrInvalidValue)

	got := InitialState(st, keys)
	assert.Equal(t, "old-a", got.AccessToken)
	assert.Equal(t, "old-r", got.RefreshToken)
}
