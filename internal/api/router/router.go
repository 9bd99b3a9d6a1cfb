package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-reservation/internal/admin"
	"github.com/wolfman30/clinic-reservation/internal/auth"
	"github.com/wolfman30/clinic-reservation/internal/departments"
	"github.com/wolfman30/clinic-reservation/internal/doctors"
	"github.com/wolfman30/clinic-reservation/internal/export"
	httpmiddleware "github.com/wolfman30/clinic-reservation/internal/http/middleware"
	"github.com/wolfman30/clinic-reservation/internal/http/respond"
	"github.com/wolfman30/clinic-reservation/internal/observability/metrics"
	"github.com/wolfman30/clinic-reservation/internal/reservations"
	"github.com/wolfman30/clinic-reservation/internal/timeslots"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Tokens             httpmiddleware.TokenVerifier
	CookieName         string
	LoginLimiter       *httpmiddleware.RateLimiter
	TrustProxyHeaders  bool
	CORSAllowedOrigins []string
	HTTPMetrics        *metrics.HTTPMetrics
	MetricsHandler     http.Handler

	AuthHandler         *auth.Handler
	DepartmentsHandler  *departments.Handler
	DoctorsHandler      *doctors.Handler
	TimeSlotsHandler    *timeslots.Handler
	ReservationsHandler *reservations.Handler

	// Optional admin surfaces.
	StatsHandler  *admin.Handler
	ExportHandler *export.Handler
	LiveHandler   http.Handler
}

// New creates a new Chi router with all routes configured. Every /v1 route
// is also served under /api/v1.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(httpmiddleware.HTTPMetrics(cfg.HTTPMetrics))

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1", cfg.routes)
	r.Route("/api/v1", cfg.routes)
	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (cfg *Config) routes(r chi.Router) {
	authn := httpmiddleware.Authenticate(cfg.Tokens, cfg.CookieName)
	adminOnly := httpmiddleware.RequireRole(auth.RoleAdmin)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		if cfg.LoginLimiter != nil {
			r.With(httpmiddleware.RateLimit(cfg.LoginLimiter)).Post("/login", cfg.AuthHandler.Login)
		} else {
			r.Post("/login", cfg.AuthHandler.Login)
		}
		r.Post("/logout", cfg.AuthHandler.Logout)
		r.With(authn).Get("/me", cfg.AuthHandler.Me)
	})

	// Catalog reads are public; writes need an admin.
	r.Route("/departments", func(r chi.Router) {
		r.Get("/", cfg.DepartmentsHandler.List)
		r.Get("/{id}", cfg.DepartmentsHandler.Get)
		r.Group(func(r chi.Router) {
			r.Use(authn, adminOnly)
			r.Post("/", cfg.DepartmentsHandler.Create)
			r.Put("/{id}", cfg.DepartmentsHandler.Update)
			r.Delete("/{id}", cfg.DepartmentsHandler.Delete)
		})
	})
	r.Route("/doctors", func(r chi.Router) {
		r.Get("/", cfg.DoctorsHandler.List)
		r.Get("/id/{id}", cfg.DoctorsHandler.Get)
		r.Get("/{departmentId}", cfg.DoctorsHandler.ListByDepartment)
		r.With(authn, adminOnly).Post("/", cfg.DoctorsHandler.Create)
	})
	r.Get("/timeslots", cfg.TimeSlotsHandler.Available)

	r.Route("/reservations", func(r chi.Router) {
		r.Use(authn)
		r.Post("/", cfg.ReservationsHandler.Create)
		r.Get("/", cfg.ReservationsHandler.ListMine)
		r.Get("/{id}", cfg.ReservationsHandler.Get)
		r.Patch("/{id}/cancel", cfg.ReservationsHandler.Cancel)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(authn, adminOnly)
		r.Get("/timeslots", cfg.TimeSlotsHandler.List)
		r.Post("/timeslots/generate", cfg.TimeSlotsHandler.Generate)
		r.Put("/timeslots/{id}/close", cfg.TimeSlotsHandler.Close)
		r.Put("/timeslots/{id}/open", cfg.TimeSlotsHandler.Open)

		r.Get("/reservations", cfg.ReservationsHandler.Search)
		r.Patch("/reservations/{id}/status", cfg.ReservationsHandler.UpdateStatus)
		r.Get("/reservations/{id}/history", cfg.ReservationsHandler.History)
		if cfg.ExportHandler != nil {
			r.Post("/reservations/export", cfg.ExportHandler.Export)
		}
		if cfg.StatsHandler != nil {
			r.Get("/stats", cfg.StatsHandler.Stats)
		}
		if cfg.LiveHandler != nil {
			r.Handle("/live", cfg.LiveHandler)
		}
	})
}
