package session

import (
	"os"
	"strings"
)

// Keys names the durable storage entries owned by the session.
// They must stay stable across restarts or rehydration silently yields an empty session.
type Keys struct {
	// Credential is the entry the guard checks for presence.
	Credential   string
	User         string
	AccessToken  string
	RefreshToken string
}

// DefaultKeys returns the canonical entry names.
func DefaultKeys() Keys {
	return Keys{
		Credential:   "accessToken",
		User:         "user",
		AccessToken:  "accessToken",
		RefreshToken: "refreshToken",
	}
}

// LoadKeysFromEnv overrides DefaultKeys with BACKOFFICE_KEY_{CREDENTIAL,USER,ACCESS_TOKEN,REFRESH_TOKEN}.
func LoadKeysFromEnv() Keys {
	k := DefaultKeys()
	k.User = envKey("BACKOFFICE_KEY_USER", k.User)
	k.AccessToken = envKey("BACKOFFICE_KEY_ACCESS_TOKEN", k.AccessToken)
	k.RefreshToken = envKey("BACKOFFICE_KEY_REFRESH_TOKEN", k.RefreshToken)
	// The credential follows the access token unless named explicitly.
	k.Credential = envKey("BACKOFFICE_KEY_CREDENTIAL", k.AccessToken)
	return k
}

func envKey(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}
