package identity

import "strings"

// NormalizeUsername performs case-insensitive canonicalization.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// isEmailLogin reports whether a login string should be matched against emails.
func isEmailLogin(login string) bool {
	return strings.Contains(login, "@")
}
