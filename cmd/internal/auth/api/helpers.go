package authapi

import (
	"net"
	"net/http"
	"strings"

	"backoffice/cmd/identity"
	"backoffice/cmd/internal/session"
)

func toProfile(u identity.User) *session.UserProfile {
	return &session.UserProfile{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.DisplayName,
		Email:    u.Email,
		Role:     string(u.Role),
	}
}

// isLocalPath accepts only same-origin absolute paths, rejecting "//host" and "/\host".
func isLocalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	if len(p) > 1 && (p[1] == '/' || p[1] == '\\') {
		return false
	}
	return !strings.ContainsAny(p, "\r\n")
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
