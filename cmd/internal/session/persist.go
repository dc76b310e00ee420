package session

import (
	"errors"
	"fmt"

	"backoffice/cmd/internal/durable"
)

// InitialState rehydrates a session from storage. Missing entries are absent; an unparsable user
// entry is absent. It never fails.
func InitialState(st durable.Storage, keys Keys) Session {
	var s Session
	if st == nil {
		return s
	}

	if raw, ok := st.Get(keys.User); ok {
		s.User = DecodeUser(raw)
	}

	access, okA := st.Get(keys.AccessToken)
	refresh, okR := st.Get(keys.RefreshToken)
	if okA {
		s.AccessToken = access
	}
	if okR {
		s.RefreshToken = refresh
	}
	return s
}

// Persist writes the storage entries owned by a. It runs for every handled action type and is
// a no-op for unknown ones.
//
// SET_TOKENS writes both entries or neither: both values are validated before any write, and a
// failed refresh write restores the previous access entry.
func Persist(st durable.Storage, keys Keys, a Action) error {
	if st == nil {
		return ErrNoStorage
	}

	switch a.Type {
	case ActionSetUserData:
		enc, err := EncodeUser(a.User)
		if err != nil {
			return fmt.Errorf("session: encode user: %w", err)
		}
		if err := st.Set(keys.User, enc); err != nil {
			return fmt.Errorf("session: persist %s: %w", keys.User, err)
		}

	case ActionSetTokens:
		return persistTokens(st, keys, a.Tokens)

	case ActionRemoveTokens:
		return errors.Join(
			wrapKey(keys.AccessToken, st.Remove(keys.AccessToken)),
			wrapKey(keys.RefreshToken, st.Remove(keys.RefreshToken)),
		)
	}
	return nil
}

func persistTokens(st durable.Storage, keys Keys, p TokenPair) error {
	if err := errors.Join(
		wrapKey(keys.AccessToken, durable.ValidateEntry(keys.AccessToken, p.AccessToken)),
		wrapKey(keys.RefreshToken, durable.ValidateEntry(keys.RefreshToken, p.RefreshToken)),
	); err != nil {
		return err
	}

	prevAccess, _ := st.Get(keys.AccessToken)
	if err := st.Set(keys.AccessToken, p.AccessToken); err != nil {
		return wrapKey(keys.AccessToken, err)
	}
	if err := st.Set(keys.RefreshToken, p.RefreshToken); err != nil {
		return errors.Join(
			wrapKey(keys.RefreshToken, err),
			wrapKey(keys.AccessToken, st.Set(keys.AccessToken, prevAccess)),
		)
	}
	return nil
}

func wrapKey(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("session: persist %s: %w", key, err)
}
