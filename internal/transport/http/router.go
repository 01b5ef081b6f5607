package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	mwauth "custos/pkg/platform/middleware/auth"
	"custos/pkg/platform/middleware/requestid"
)

// RouterConfig carries the handlers and cross-cutting middleware for the
// public surface.
type RouterConfig struct {
	Logger    *slog.Logger
	Validator mwauth.TokenValidator

	Consent     *ConsentHandler
	Ledger      *LedgerHandler
	Aggregate   *AggregateHandler
	TenantGate  *TenantGateHandler
	Retention   *RetentionHandler
	Separation  *SeparationHandler
	Enforcement *EnforcementHandler
}

// NewRouter assembles the HTTP surface. Everything except the health probe
// sits behind authentication: this core never sees unauthenticated callers.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if cfg.Validator != nil {
			r.Use(mwauth.RequireAuth(cfg.Validator, cfg.Logger))
		}
		for _, h := range []interface{ Register(chi.Router) }{
			cfg.Consent,
			cfg.Ledger,
			cfg.Aggregate,
			cfg.TenantGate,
			cfg.Retention,
			cfg.Separation,
			cfg.Enforcement,
		} {
			h.Register(r)
		}
	})
	return r
}
