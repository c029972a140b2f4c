package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/daftar-erp/daftar/internal/coa"
	"github.com/daftar-erp/daftar/internal/ledger"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	CoaHandler    *coa.Handler
	LedgerHandler *ledger.Handler
}

// NewRouter constructs the chi.Router with the default stack.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(params.Logger, params.Config) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.CoaHandler != nil {
		r.Route("/accounts", func(r chi.Router) {
			params.CoaHandler.MountRoutes(r)
		})
	}
	if params.LedgerHandler != nil {
		r.Route("/documents", func(r chi.Router) {
			params.LedgerHandler.MountRoutes(r)
		})
	}

	return r
}
