package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opencliniq/frontdesk/internal/appointments"
	"github.com/opencliniq/frontdesk/internal/http/handlers"
	httpmiddleware "github.com/opencliniq/frontdesk/internal/http/middleware"
	"github.com/opencliniq/frontdesk/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger       *logging.Logger
	Appointments *appointments.Handler
	Team         *handlers.TeamHandler
	Wallet       *handlers.WalletHandler
	Login        *handlers.LoginHandler

	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Token-bucket limit applied to mutation methods under /api.
	MutationRate  float64
	MutationBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			handlers.WriteData(w, http.StatusOK, map[string]any{"status": "ok"})
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Login != nil {
			public.Post("/api/crm/login", cfg.Login.Login)
		}
	})

	// Admin UI endpoints behind bearer auth
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		if cfg.MutationRate > 0 {
			api.Use(httpmiddleware.MutationRateLimit(cfg.MutationRate, cfg.MutationBurst))
		}
		if cfg.Appointments != nil {
			api.Mount("/appointments", cfg.Appointments.Routes())
		}
		if cfg.Team != nil {
			api.Mount("/team", cfg.Team.Routes())
		}
		if cfg.Wallet != nil {
			api.Get("/wallet/balance", cfg.Wallet.Balance)
		}
	})

	return r
}
