package session

import (
	"encoding/json"
	"fmt"
)

// ActionType names a session mutation.
type ActionType string

const (
	ActionSetUserData  ActionType = "SET_USER_DATA"
	ActionSetTokens    ActionType = "SET_TOKENS"
	ActionRemoveTokens ActionType = "REMOVE_TOKENS"
)

// Known reports whether t is one of the three handled action types.
func (t ActionType) Known() bool {
	switch t {
	case ActionSetUserData, ActionSetTokens, ActionRemoveTokens:
		return true
	default:
		return false
	}
}

// TokenPair is the payload of SET_TOKENS.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Action is a plain-data mutation request. Only the payload field matching Type is read.
type Action struct {
	Type   ActionType
	User   *UserProfile
	Tokens TokenPair
}

// SetUserData replaces the stored user profile.
func SetUserData(u *UserProfile) Action {
	return Action{Type: ActionSetUserData, User: u}
}

// SetTokens replaces both tokens at once. There is no single-token variant.
func SetTokens(accessToken, refreshToken string) Action {
	return Action{
		Type:   ActionSetTokens,
		Tokens: TokenPair{AccessToken: accessToken, RefreshToken: refreshToken},
	}
}

// RemoveTokens clears both tokens and leaves the user untouched.
func RemoveTokens() Action {
	return Action{Type: ActionRemoveTokens}
}

// Redacted returns a copy safe to publish outside the owning request: token values are blanked.
func (a Action) Redacted() Action {
	out := a
	if out.Type == ActionSetTokens {
		out.Tokens = TokenPair{}
	}
	return out
}

type actionWire struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MarshalJSON encodes the action as {"type": ..., "payload": ...}.
func (a Action) MarshalJSON() ([]byte, error) {
	w := actionWire{Type: a.Type}

	var (
		payload []byte
		err     error
	)
	switch a.Type {
	case ActionSetUserData:
		payload, err = json.Marshal(a.User)
	case ActionSetTokens:
		payload, err = json.Marshal(a.Tokens)
	}
	if err != nil {
		return nil, err
	}
	w.Payload = payload
	return json.Marshal(w)
}

// UnmarshalJSON decodes {"type": ..., "payload": ...}. Unknown types decode without a payload.
func (a *Action) UnmarshalJSON(b []byte) error {
	var w actionWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	*a = Action{Type: w.Type}
	if len(w.Payload) == 0 {
		return nil
	}

	switch w.Type {
	case ActionSetUserData:
		var u *UserProfile
		if err := json.Unmarshal(w.Payload, &u); err != nil {
			return fmt.Errorf("session: %s payload: %w", w.Type, err)
		}
		a.User = u
	case ActionSetTokens:
		if err := json.Unmarshal(w.Payload, &a.Tokens); err != nil {
			return fmt.Errorf("session: %s payload: %w", w.Type, err)
		}
	}
	return nil
}
