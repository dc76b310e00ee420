package app

import (
	"net/http"
	"time"

	authapi "backoffice/cmd/internal/auth/api"
	"backoffice/cmd/internal/guard"
	"backoffice/cmd/internal/pages"
	"backoffice/cmd/internal/pages/routepath"
	"backoffice/cmd/internal/sessionsync"

	"github.com/jackc/pgx/v5/pgxpool"
)

type routes struct {
	log       Logger
	cfg       Config
	dbPool    *pgxpool.Pool
	dbEnabled bool

	metrics *Metrics
	auth    *authapi.Handler
	pages   *pages.Pages
	guard   *guard.Guard
	sync    *sessionsync.Gateway
}

func registerHTTP(mux *http.ServeMux, rt routes) {
	mux.HandleFunc("GET "+routepath.Healthz, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET "+routepath.Readyz, func(w http.ResponseWriter, r *http.Request) {
		if rt.cfg.ReadinessRequireDB && !rt.dbEnabled {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if rt.dbEnabled && rt.dbPool != nil {
			if err := PingDB(r.Context(), rt.dbPool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				rt.log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	if rt.cfg.MetricsEnabled && rt.metrics != nil {
		mux.Handle("GET "+routepath.Metrics, rt.metrics.Handler())
	}

	rt.auth.Register(mux)
	rt.pages.Register(mux, rt.guard)
	mux.Handle("GET "+routepath.WSSession, rt.guard.Wrap(rt.sync))
}
