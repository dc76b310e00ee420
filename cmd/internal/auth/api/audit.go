package authapi

import (
	"net"
	"time"
)

func (h *Handler) auditLoginFailed(ip net.IP, ua, login, reason string) {
	h.log.Warn("auth.login.failed", "ip", ipString(ip), "ua", ua, "login", login, "reason", reason)
	h.outcome("failed")
}

func (h *Handler) auditLoginSuccess(ip net.IP, ua, userID string) {
	h.log.Info("auth.login.success", "ip", ipString(ip), "ua", ua, "user_id", userID)
	h.outcome("success")
}

func (h *Handler) auditLoginRateLimited(ip net.IP, ua string, retryAfter time.Duration) {
	h.log.Warn("auth.login.rate_limited", "ip", ipString(ip), "ua", ua, "retry_after_s", int64(retryAfter.Seconds()))
	h.outcome("rate_limited")
}

func (h *Handler) auditRefresh(userID string) {
	h.log.Info("auth.refresh.success", "user_id", userID)
}

func (h *Handler) auditLogout(userID string, ip net.IP) {
	h.log.Info("auth.logout", "user_id", userID, "ip", ipString(ip))
}

func (h *Handler) outcome(o string) {
	if h.loginHook != nil {
		h.loginHook(o)
	}
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}
