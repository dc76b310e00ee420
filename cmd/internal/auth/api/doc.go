// Package authapi serves the login, refresh, logout and session endpoints.
//
// Every endpoint works on a per-request session.Store backed by cookies, so the browser's
// cookie jar is the only session state. Form posts answer with redirects; JSON posts answer
// with JSON.
package authapi
