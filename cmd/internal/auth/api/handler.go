package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"backoffice/cmd/identity"
	"backoffice/cmd/internal/auth/token"
	"backoffice/cmd/internal/durable"
	"backoffice/cmd/internal/session"
)

// Authenticator checks a login/password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, login, password string) (identity.User, error)
}

// UserLookup reloads a user on refresh so role changes reach the session.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (identity.User, error)
}

// Handler wires HTTP auth endpoints to the session store.
type Handler struct {
	log *slog.Logger
	cfg Config

	auth   Authenticator
	users  UserLookup
	tokens token.Manager
	keys   session.Keys

	observers []Observer
	loginHook func(outcome string)
	limiter   *ipLimiter
	now       func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// Observer sees every dispatch made by the auth endpoints. subject is the user ID taken from a
// verified token for this request, empty when no token verified. The user cookie is client
// controlled and must not be used to address other sessions.
type Observer func(a session.Action, next session.Session, subject string)

// WithObserver registers an observer on every per-request store.
func WithObserver(o Observer) HandlerOption {
	return func(h *Handler) {
		if o != nil {
			h.observers = append(h.observers, o)
		}
	}
}

// WithLoginHook receives "success", "failed" or "rate_limited" for every login attempt.
func WithLoginHook(fn func(outcome string)) HandlerOption {
	return func(h *Handler) { h.loginHook = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, auth Authenticator, users UserLookup, tokens token.Manager, keys session.Keys, opts ...HandlerOption) (*Handler, error) {
	if auth == nil || users == nil || tokens == nil {
		return nil, errors.New("auth: missing dependency")
	}
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		log:     log,
		cfg:     cfg,
		auth:    auth,
		users:   users,
		tokens:  tokens,
		keys:    keys,
		limiter: newIPLimiter(cfg.LoginIPEvery, cfg.LoginIPBurst),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/refresh", h.handleRefresh)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.HandleFunc("GET /auth/session", h.handleSession)
}

// Store returns the session store for this request, reading and writing its cookies.
// Observers attached to it receive subject.
func (h *Handler) Store(w http.ResponseWriter, r *http.Request, subject string) *session.Store {
	opts := make([]session.Option, 0, len(h.observers))
	for _, o := range h.observers {
		opts = append(opts, session.WithObserver(func(a session.Action, next session.Session) {
			o(a, next, subject)
		}))
	}
	return session.NewStore(durable.NewCookies(w, r, h.cfg.Cookies), h.keys, opts...)
}

// subject returns the user ID carried by the first of cur's tokens that verifies.
func (h *Handler) subject(cur session.Session, now time.Time) string {
	if cur.AccessToken != "" {
		if c, err := h.tokens.VerifyAccess(cur.AccessToken, now); err == nil {
			return c.UserID
		}
	}
	if cur.RefreshToken != "" {
		if c, err := h.tokens.VerifyRefresh(cur.RefreshToken, now); err == nil {
			return c.UserID
		}
	}
	return ""
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	jsonBody := wantsJSON(r)

	var req loginRequest
	if jsonBody {
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		if !h.csrfValid(r, false) {
			h.loginRedirect(w, "csrf", r.PostFormValue("next"))
			return
		}
		req = loginRequest{
			Login:    r.PostFormValue("login"),
			Password: r.PostFormValue("password"),
			Next:     r.PostFormValue("next"),
		}
	}

	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		h.fail(w, jsonBody, http.StatusBadRequest, "invalid_request", "login and password are required", req.Next)
		return
	}

	now := h.now()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	if ok, retryAfter := h.limiter.allow(ipString(ip), now); !ok {
		h.auditLoginRateLimited(ip, ua, retryAfter)
		if jsonBody {
			writeRateLimited(w, retryAfter)
		} else {
			h.loginRedirect(w, "rate_limited", req.Next)
		}
		return
	}

	user, err := h.auth.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		if identity.IsInvalidCredentials(err) {
			h.auditLoginFailed(ip, ua, req.Login, "invalid_credentials")
			h.fail(w, jsonBody, http.StatusUnauthorized, "invalid_credentials", "invalid login or password", req.Next)
			return
		}
		h.log.Error("auth.login.lookup.fail", "err", err)
		h.fail(w, jsonBody, http.StatusServiceUnavailable, "server_busy", "please retry later", req.Next)
		return
	}

	pair, err := h.tokens.IssuePair(user.ID, string(user.Role), now)
	if err != nil {
		h.log.Error("auth.login.issue.fail", "err", err, "user_id", user.ID)
		h.fail(w, jsonBody, http.StatusInternalServerError, "server_error", "could not start session", req.Next)
		return
	}

	profile := toProfile(user)
	if err := h.establish(h.Store(w, r, user.ID), profile, pair); err != nil {
		h.log.Error("auth.login.persist.fail", "err", err, "user_id", user.ID)
		h.fail(w, jsonBody, http.StatusInternalServerError, "server_error", "could not start session", req.Next)
		return
	}
	h.auditLoginSuccess(ip, ua, user.ID)

	if !jsonBody {
		redirect(w, h.nextOrDefault(req.Next))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		User:    *toUserResponse(profile),
		Session: tokenExpiry{AccessExpiresAt: pair.AccessExp, RefreshExpiresAt: pair.RefreshExp},
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	jsonBody := wantsJSON(r)
	if !jsonBody {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
		_ = r.ParseForm()
	}
	if !h.csrfValid(r, jsonBody) {
		writeError(w, http.StatusForbidden, "csrf_invalid", "csrf validation failed")
		return
	}

	now := h.now()
	cur := h.Store(w, r, "").State()
	if cur.RefreshToken == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no session")
		return
	}

	claims, err := h.tokens.VerifyRefresh(cur.RefreshToken, now)
	if err != nil {
		h.endSession(h.Store(w, r, ""))
		writeError(w, http.StatusUnauthorized, "unauthorized", "session expired")
		return
	}
	st := h.Store(w, r, claims.UserID)

	user, err := h.users.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			h.endSession(st)
			writeError(w, http.StatusUnauthorized, "unauthorized", "session expired")
			return
		}
		h.log.Error("auth.refresh.lookup.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	}

	pair, err := h.tokens.IssuePair(user.ID, string(user.Role), now)
	if err != nil {
		h.log.Error("auth.refresh.issue.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "could not refresh session")
		return
	}

	profile := toProfile(user)
	if err := h.establish(st, profile, pair); err != nil {
		h.log.Error("auth.refresh.persist.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "could not refresh session")
		return
	}
	h.auditRefresh(user.ID)

	if !jsonBody {
		redirect(w, h.nextOrDefault(r.PostFormValue("next")))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		User:    *toUserResponse(profile),
		Session: tokenExpiry{AccessExpiresAt: pair.AccessExp, RefreshExpiresAt: pair.RefreshExp},
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	jsonBody := wantsJSON(r)
	if !jsonBody {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
		_ = r.ParseForm()
	}
	if !h.csrfValid(r, jsonBody) {
		writeError(w, http.StatusForbidden, "csrf_invalid", "csrf validation failed")
		return
	}

	userID := h.subject(h.Store(w, r, "").State(), h.now())
	if err := h.endSession(h.Store(w, r, userID)); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "could not end session")
		return
	}
	h.auditLogout(userID, clientIP(r, h.cfg.TrustProxy))

	if !jsonBody {
		redirect(w, h.cfg.LoginPath)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	cur := h.Store(w, r, "").State()
	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: cur.HasTokens(),
		User:          toUserResponse(cur.User),
	})
}

// ---- helpers ----

// establish writes the token pair first so the credential exists before the profile.
func (h *Handler) establish(st *session.Store, profile *session.UserProfile, pair token.Pair) error {
	if _, err := st.Dispatch(session.SetTokens(pair.AccessToken, pair.RefreshToken)); err != nil {
		return err
	}
	_, err := st.Dispatch(session.SetUserData(profile))
	return err
}

func (h *Handler) endSession(st *session.Store) error {
	_, err := st.Dispatch(session.RemoveTokens())
	if err != nil {
		h.log.Error("auth.logout.persist.fail", "err", err)
	}
	return err
}

func (h *Handler) fail(w http.ResponseWriter, jsonBody bool, status int, code, msg, next string) {
	if jsonBody {
		writeError(w, status, code, msg)
		return
	}
	h.loginRedirect(w, code, next)
}
