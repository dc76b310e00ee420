// Package routepath names every URL the dashboard serves.
package routepath

import (
	"net/url"
	"strings"
)

const (
	Root         = "/"
	StaticPrefix = "/static/"
	Login        = "/login"
)

const (
	AboutUs     = "/about-us"
	ContactUs   = "/contact-us"
	Departments = "/departments"
	HomePage    = "/home-page"
	JoinUs      = "/join-us"
	Partner     = "/partner"
)

const (
	AuthLogin   = "/auth/login"
	AuthRefresh = "/auth/refresh"
	AuthLogout  = "/auth/logout"
	AuthSession = "/auth/session"
)

const (
	WSSession = "/ws/session"
	Healthz   = "/healthz"
	Readyz    = "/readyz"
	Metrics   = "/metrics"
)

// Sections lists the protected page shells in sidebar order.
func Sections() []string {
	return []string{HomePage, AboutUs, ContactUs, Departments, JoinUs, Partner}
}

// WithTab returns path selecting tab.
func WithTab(path, tab string) string {
	tab = strings.TrimSpace(tab)
	if tab == "" {
		return path
	}
	return path + "?tab=" + url.QueryEscape(tab)
}

// LoginNext returns the login path that sends the user back to next afterwards.
func LoginNext(next string) string {
	if next == "" || next == Root {
		return Login
	}
	return Login + "?next=" + url.QueryEscape(next)
}
