// Package app wires the backoffice server runtime: config, logging, metrics, identity storage,
// the auth API, guarded pages and the session sync gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"backoffice/cmd/identity"
	authapi "backoffice/cmd/internal/auth/api"
	"backoffice/cmd/internal/auth/token"
	"backoffice/cmd/internal/durable"
	"backoffice/cmd/internal/guard"
	"backoffice/cmd/internal/menu"
	"backoffice/cmd/internal/pages"
	"backoffice/cmd/internal/session"
	"backoffice/cmd/internal/sessionsync"
	"backoffice/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a small app-level lifecycle abstraction for resources closed on shutdown.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

type poolStore struct{ pool *pgxpool.Pool }

func (s poolStore) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}

// App is the backoffice server runtime.
type App struct {
	cfg Config
	log Logger

	store     Store
	dbPool    *pgxpool.Pool
	dbEnabled bool

	users   identity.Store
	tokens  token.Manager
	metrics *Metrics
	hub     *sessionsync.Hub

	handler http.Handler
}

// New constructs a fully wired App from cfg. Component settings are read from the environment
// by their own packages.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg)
	}

	cookies := durable.LoadCookieOptionsFromEnv()
	keys := session.LoadKeysFromEnv()

	pw, err := password.FromEnv()
	if err != nil {
		return nil, err
	}

	tokCfg, err := token.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	tokens, err := token.NewPasetoManager(tokCfg)
	if err != nil {
		return nil, err
	}
	if token.IsEphemeral(tokens) {
		log.Warn("token.key.ephemeral", "hint", "set BACKOFFICE_PASETO_V4_SECRET_KEY_HEX to keep sessions across restarts")
	}

	if err := ValidateSecurityConfig(cfg, tokens, cookies); err != nil {
		return nil, err
	}

	m, err := loadMenu()
	if err != nil {
		return nil, err
	}

	users, st, pool, dbEnabled, err := newUserStore(ctx, cfg, pw, log)
	if err != nil {
		return nil, err
	}
	if err := seedAdmin(ctx, cfg, users, log); err != nil {
		_ = st.Close(ctx)
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbPool:    pool,
		dbEnabled: dbEnabled,
		users:     users,
		tokens:    tokens,
		metrics:   NewMetrics(),
		hub:       sessionsync.NewHub(log),
	}

	auth, err := authapi.NewHandler(
		log,
		authapi.LoadConfigFromEnv(cookies),
		identity.Authenticator{Store: users, Password: pw},
		users,
		tokens,
		keys,
		authapi.WithObserver(a.metrics.ObserveDispatch),
		authapi.WithObserver(a.publishToOtherTabs),
		authapi.WithLoginHook(a.metrics.ObserveLogin),
	)
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}

	guardOpts := []guard.Option{
		guard.WithLogger(log),
		guard.WithDecisionHook(a.metrics.ObserveGuard),
	}
	if cfg.GuardVerifyTokens {
		guardOpts = append(guardOpts, guard.WithVerifier(a.verifyAccess))
	}
	g := guard.New(guard.LoadConfigFromEnv(keys.Credential, cookies), guardOpts...)

	views, err := pages.New(pages.Config{
		Menu:    m,
		Keys:    keys,
		Cookies: cookies,
		CSRF:    auth.CSRFToken,
		Role:    a.credentialRole,
		Log:     log,
	})
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}

	identify := func(r *http.Request) (string, error) {
		access, ok := durable.NewCookies(nil, r, cookies).Get(keys.AccessToken)
		if !ok {
			return "", sessionsync.ErrUnidentified
		}
		claims, err := tokens.VerifyAccess(access, time.Now())
		if err != nil {
			return "", err
		}
		return claims.UserID, nil
	}
	gateway := sessionsync.NewGateway(log, a.hub, sessionsync.LoadConfigFromEnv(), identify)

	mux := http.NewServeMux()
	registerHTTP(mux, routes{
		log:       log,
		cfg:       cfg,
		dbPool:    pool,
		dbEnabled: dbEnabled,
		metrics:   a.metrics,
		auth:      auth,
		pages:     views,
		guard:     g,
		sync:      gateway,
	})

	a.handler = WithRecover(WithRequestLogging(WithSecurityHeaders(a.metrics.Instrument(mux)), log), log)
	return a, nil
}

// Handler returns the fully wrapped root handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}
	// Hijacked websocket connections are not tracked by Shutdown.
	srv.RegisterOnShutdown(a.hub.CloseAll)

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		_ = a.store.Close(context.Background())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

// Close releases storage without serving. Used by tests and one-shot commands.
func (a *App) Close(ctx context.Context) error {
	a.hub.CloseAll()
	return a.store.Close(ctx)
}

func (a *App) verifyAccess(_ context.Context, credential string) error {
	_, err := a.tokens.VerifyAccess(credential, time.Now())
	return err
}

// credentialRole returns the role claim of the first session token that verifies. A refresh
// token still proves the role after the access token expires.
func (a *App) credentialRole(_ *http.Request, s session.Session) string {
	now := time.Now()
	if s.AccessToken != "" {
		if c, err := a.tokens.VerifyAccess(s.AccessToken, now); err == nil {
			return c.Role
		}
	}
	if s.RefreshToken != "" {
		if c, err := a.tokens.VerifyRefresh(s.RefreshToken, now); err == nil {
			return c.Role
		}
	}
	return ""
}

// publishToOtherTabs forwards a handled dispatch to the open websockets of the user whose token
// the request carried. Requests without a verified token reach no one.
func (a *App) publishToOtherTabs(act session.Action, _ session.Session, subject string) {
	if subject == "" {
		return
	}
	delivered, dropped := a.hub.Publish(subject, act)
	a.metrics.ObservePublish(delivered, dropped)
}

func loadMenu() (*menu.Menu, error) {
	path := EnvString("BACKOFFICE_MENU_FILE", "")
	if path == "" {
		return menu.Default(), nil
	}
	m, err := menu.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("menu %s: %w", path, err)
	}
	return m, nil
}

// newUserStore decides between the Postgres-backed identity store and the in-memory dev store.
func newUserStore(ctx context.Context, cfg Config, pw password.Config, log Logger) (identity.Store, Store, *pgxpool.Pool, bool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return identity.NewMemoryStore(pw), nopStore{}, nil, false, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, nil, false, err
	}

	users, err := identity.NewPostgresStore(pool,
		identity.WithSchema(cfg.DBSchema),
		identity.WithPasswordConfig(pw),
	)
	if err != nil {
		pool.Close()
		return nil, nil, nil, false, err
	}
	if err := users.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, false, fmt.Errorf("ensure identity schema: %w", err)
	}

	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)
	return users, poolStore{pool: pool}, pool, true, nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
