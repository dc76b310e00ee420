package durable

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// Cookies is a Storage bound to a single HTTP exchange.
//
// Reads consult writes made earlier in the same exchange before falling back to the
// request's cookies, so a read-after-write observes the write even though the browser
// has not yet round-tripped the Set-Cookie header.
type Cookies struct {
	w    http.ResponseWriter
	r    *http.Request
	opts CookieOptions
	now  func() time.Time

	mu sync.Mutex
	// overlay holds in-exchange writes; a nil value is a tombstone.
	overlay map[string]*string
}

// NewCookies binds a cookie-backed Storage to w and r. w may be nil for read-only use.
func NewCookies(w http.ResponseWriter, r *http.Request, opts CookieOptions) *Cookies {
	return &Cookies{
		w:       w,
		r:       r,
		opts:    opts,
		now:     time.Now,
		overlay: make(map[string]*string),
	}
}

// Get implements Storage.
func (c *Cookies) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}

	c.mu.Lock()
	v, written := c.overlay[key]
	c.mu.Unlock()

	if written {
		if v == nil {
			return "", false
		}
		return *v, true
	}

	if c.r == nil || !validKey(key) {
		return "", false
	}
	ck, err := c.r.Cookie(key)
	if err != nil {
		return "", false
	}
	val := strings.TrimSpace(ck.Value)
	if val == "" {
		return "", false
	}
	return val, true
}

// Set implements Storage.
func (c *Cookies) Set(key, value string) error {
	if value == "" {
		return c.Remove(key)
	}
	if err := checkEntry(key, value); err != nil {
		return err
	}

	ck := c.cookie(key, value)
	if c.opts.MaxAge > 0 {
		ck.MaxAge = int(c.opts.MaxAge / time.Second)
		ck.Expires = c.now().Add(c.opts.MaxAge).UTC()
	}
	if c.w != nil {
		http.SetCookie(c.w, ck)
	}

	c.mu.Lock()
	c.overlay[key] = &value
	c.mu.Unlock()
	return nil
}

// Remove implements Storage by emitting an already-expired cookie.
func (c *Cookies) Remove(key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}

	ck := c.cookie(key, "")
	ck.MaxAge = -1
	ck.Expires = time.Unix(0, 0).UTC()
	if c.w != nil {
		http.SetCookie(c.w, ck)
	}

	c.mu.Lock()
	c.overlay[key] = nil
	c.mu.Unlock()
	return nil
}

func (c *Cookies) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.opts.Path,
		Domain:   c.opts.Domain,
		HttpOnly: c.opts.HTTPOnly,
		Secure:   c.opts.Secure,
		SameSite: c.opts.SameSite,
	}
}
