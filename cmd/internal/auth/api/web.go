package authapi

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CSRFToken returns the request's double-submit token, minting and setting the cookie when
// the browser has none yet. Login and logout forms embed it as a hidden field.
func (h *Handler) CSRFToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(h.cfg.CSRFCookieName); err == nil {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v
		}
	}

	tok, err := newOpaqueWebToken(32)
	if err != nil {
		h.log.Error("auth.csrf.mint.fail", "err", err)
		return ""
	}
	h.setCSRFCookie(w, tok)
	return tok
}

// csrfValid checks the cookie against the form field (form posts) or header (JSON posts).
func (h *Handler) csrfValid(r *http.Request, jsonBody bool) bool {
	c, err := r.Cookie(h.cfg.CSRFCookieName)
	if err != nil {
		return false
	}
	cv := strings.TrimSpace(c.Value)

	var sent string
	if jsonBody {
		sent = r.Header.Get(h.cfg.CSRFHeaderName)
	} else {
		sent = r.PostFormValue(h.cfg.CSRFFieldName)
	}
	return secureStringEqual(cv, strings.TrimSpace(sent))
}

func (h *Handler) setCSRFCookie(w http.ResponseWriter, value string) {
	opts := h.cfg.Cookies
	c := &http.Cookie{
		Name:     h.cfg.CSRFCookieName,
		Value:    value,
		Path:     opts.Path,
		Domain:   opts.Domain,
		HttpOnly: false,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	}
	if opts.MaxAge > 0 {
		c.MaxAge = int(opts.MaxAge / time.Second)
		c.Expires = time.Now().Add(opts.MaxAge).UTC()
	}
	http.SetCookie(w, c)
}

// redirect answers a form post with 303 so the browser follows with GET.
func redirect(w http.ResponseWriter, target string) {
	w.Header().Set("Location", target)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusSeeOther)
}

func (h *Handler) loginRedirect(w http.ResponseWriter, code, next string) {
	q := url.Values{}
	if code != "" {
		q.Set("error", code)
	}
	if isLocalPath(next) {
		q.Set("next", next)
	}
	target := h.cfg.LoginPath
	if enc := q.Encode(); enc != "" {
		target += "?" + enc
	}
	redirect(w, target)
}

func (h *Handler) nextOrDefault(next string) string {
	if isLocalPath(next) {
		return next
	}
	return h.cfg.DefaultRedirect
}

func newOpaqueWebToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 32
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func secureStringEqual(a, b string) bool {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
