package session

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// UserProfile is the signed-in user as seen by the dashboard.
type UserProfile struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Session is the in-memory client session.
//
// A nil User and empty token strings mean "absent". AccessToken and RefreshToken are only ever
// set or cleared together.
type Session struct {
	User         *UserProfile
	AccessToken  string
	RefreshToken string
}

// HasTokens reports whether both tokens are present.
func (s Session) HasTokens() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}

// Role returns the user's role, or "" when no user is set.
func (s Session) Role() string {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// EncodeUser serializes a profile into a cookie-safe text value (base64url of JSON).
func EncodeUser(u *UserProfile) (string, error) {
	if u == nil {
		return "", nil
	}
	b, err := json.Marshal(u)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeUser parses a value written by EncodeUser. Anything unparsable, a JSON null and a
// profile without an ID all yield nil.
func DecodeUser(raw string) *UserProfile {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var u *UserProfile
	if err := json.Unmarshal(b, &u); err != nil || u == nil {
		return nil
	}
	if strings.TrimSpace(u.ID) == "" {
		return nil
	}
	return u
}
