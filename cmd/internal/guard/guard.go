package guard

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"backoffice/cmd/internal/durable"
)

// Verifier optionally checks a present credential. A non-nil error treats the credential as
// unreadable, which denies the mount exactly like a missing one.
type Verifier func(ctx context.Context, credential string) error

// StorageFunc yields the durable storage visible to one request.
type StorageFunc func(r *http.Request) durable.Storage

// Option configures a Guard.
type Option func(*Guard)

// WithNavigator replaces the default redirect navigator.
func WithNavigator(n Navigator) Option {
	return func(g *Guard) {
		if n != nil {
			g.nav = n
		}
	}
}

// WithVerifier enables credential verification in addition to the presence check.
func WithVerifier(v Verifier) Option {
	return func(g *Guard) { g.verify = v }
}

// WithLogger sets the logger used for denials.
func WithLogger(log *slog.Logger) Option {
	return func(g *Guard) {
		if log != nil {
			g.log = log
		}
	}
}

// WithDecisionHook registers a callback invoked once per settled mount.
func WithDecisionHook(fn func(State)) Option {
	return func(g *Guard) { g.onDecision = fn }
}

// WithStorage overrides where credentials are read from (cookies by default).
func WithStorage(fn StorageFunc) Option {
	return func(g *Guard) {
		if fn != nil {
			g.storage = fn
		}
	}
}

// Guard produces guarded views sharing one configuration.
type Guard struct {
	cfg        Config
	nav        Navigator
	log        *slog.Logger
	verify     Verifier
	onDecision func(State)
	storage    StorageFunc
}

// New constructs a Guard.
func New(cfg Config, opts ...Option) *Guard {
	if strings.TrimSpace(cfg.LoginPath) == "" {
		cfg.LoginPath = "/login"
	}
	g := &Guard{
		cfg: cfg,
		nav: RedirectNavigator{},
		log: slog.Default(),
	}
	g.storage = func(r *http.Request) durable.Storage {
		return durable.NewCookies(nil, r, g.cfg.Cookies)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Wrap returns view gated behind the credential check.
func (g *Guard) Wrap(view http.Handler) http.Handler {
	return &guardedView{g: g, view: view}
}

// WrapFunc is Wrap for handler functions.
func (g *Guard) WrapFunc(view http.HandlerFunc) http.Handler {
	return g.Wrap(view)
}

// Check runs the credential check for r without serving anything.
func (g *Guard) Check(r *http.Request) State {
	m := &mount{}
	return m.settle(g.credentialOK(r))
}

func (g *Guard) credentialOK(r *http.Request) bool {
	st := g.storage(r)
	if st == nil {
		return false
	}
	cred, ok := st.Get(g.cfg.CredentialKey)
	if !ok || strings.TrimSpace(cred) == "" {
		return false
	}
	if g.verify != nil {
		if err := g.verify(r.Context(), cred); err != nil {
			g.log.Info("guard.credential.rejected", "path", r.URL.Path, "err", err)
			return false
		}
	}
	return true
}

func (g *Guard) exempt(path string) bool {
	for _, p := range g.cfg.ExemptPrefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

type guardedView struct {
	g    *Guard
	view http.Handler
}

func (v *guardedView) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if v.g.exempt(r.URL.Path) {
		v.view.ServeHTTP(w, r)
		return
	}

	state := v.g.Check(r)
	if v.g.onDecision != nil {
		v.g.onDecision(state)
	}

	switch state {
	case StateAllowed:
		v.view.ServeHTTP(w, r)
	default:
		v.g.log.Info("guard.denied", "path", r.URL.Path, "login_path", v.g.cfg.LoginPath)
		v.g.nav.Navigate(w, r, v.g.cfg.LoginPath)
	}
}
