package bootstrap

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-reservation/internal/admin"
	"github.com/wolfman30/clinic-reservation/internal/api/router"
	"github.com/wolfman30/clinic-reservation/internal/auth"
	appconfig "github.com/wolfman30/clinic-reservation/internal/config"
	"github.com/wolfman30/clinic-reservation/internal/departments"
	"github.com/wolfman30/clinic-reservation/internal/doctors"
	"github.com/wolfman30/clinic-reservation/internal/export"
	httpmiddleware "github.com/wolfman30/clinic-reservation/internal/http/middleware"
	"github.com/wolfman30/clinic-reservation/internal/live"
	"github.com/wolfman30/clinic-reservation/internal/observability/metrics"
	"github.com/wolfman30/clinic-reservation/internal/reservations"
	"github.com/wolfman30/clinic-reservation/internal/timeslots"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// APIOptions carries what BuildAPI wires together. Only Config and Stores
// are required.
type APIOptions struct {
	Config   *appconfig.Config
	Stores   *Stores
	Registry *prometheus.Registry
	Redis    redis.Cmdable
	History  reservations.HistoryReader
	S3       export.S3API
	StatsDB  *sql.DB
	Logger   *logging.Logger
}

// API is the assembled HTTP surface plus the services cmd/api needs at
// start-up.
type API struct {
	Handler      http.Handler
	Auth         *auth.Service
	Departments  *departments.Service
	Doctors      *doctors.Service
	TimeSlots    *timeslots.Service
	Reservations *reservations.Service
	Hub          *live.Hub
}

// BuildAPI wires services, handlers and the router.
func BuildAPI(opts APIOptions) (*API, error) {
	cfg, stores := opts.Config, opts.Stores
	if cfg == nil || stores == nil {
		return nil, fmt.Errorf("bootstrap: config and stores are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	secret := cfg.JWTSecret
	if strings.TrimSpace(secret) == "" {
		// Validate rejects this outside development.
		secret = uuid.NewString()
		logger.Warn("JWT_SECRET not set; using an ephemeral secret")
	}
	tokens, err := auth.NewTokenIssuer(secret, cfg.JWTTTL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: token issuer: %w", err)
	}

	reservationMetrics := metrics.NewReservationMetrics(reg)
	hub := live.NewHub(0, logger)

	authSvc := auth.NewService(stores.Users, tokens, logger)
	deptSvc := departments.NewService(stores.Departments, stores.Doctors, logger)
	doctorSvc := doctors.NewService(stores.Doctors, stores.Departments, logger)

	slotOpts := []timeslots.Option{
		timeslots.WithDoctorLookup(stores.Doctors),
		timeslots.WithMetrics(reservationMetrics),
	}
	if cache := BuildAvailabilityCache(opts.Redis, cfg); cache != nil {
		slotOpts = append(slotOpts, timeslots.WithCache(cache))
	}
	slotSvc := timeslots.NewService(stores.TimeSlots, logger, slotOpts...)

	resOpts := []reservations.Option{
		reservations.WithSlotCache(slotSvc),
		reservations.WithPublisher(hub),
		reservations.WithMetrics(reservationMetrics),
	}
	if opts.History != nil {
		resOpts = append(resOpts, reservations.WithHistory(opts.History))
	}
	resSvc := reservations.NewService(stores.Reservations, logger, resOpts...)

	var statsHandler *admin.Handler
	if opts.StatsDB != nil {
		statsHandler = admin.NewHandler(admin.NewStatsService(opts.StatsDB, reg, cfg.Location(), logger), logger)
	} else {
		statsHandler = admin.NewHandler(nil, logger)
	}
	exporter := export.NewExporter(stores.Reservations, opts.S3, cfg.ExportBucket, logger)

	handler := router.New(&router.Config{
		Logger:             logger,
		Tokens:             tokens,
		CookieName:         cfg.AuthCookieName,
		LoginLimiter:       httpmiddleware.NewRateLimiter(cfg.LoginRatePerSec, cfg.LoginRateBurst),
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		HTTPMetrics:        metrics.NewHTTPMetrics(reg),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),

		AuthHandler:         auth.NewHandler(authSvc, auth.CookieOptions{Name: cfg.AuthCookieName, Secure: cfg.AuthCookieSecure}, logger),
		DepartmentsHandler:  departments.NewHandler(deptSvc, logger),
		DoctorsHandler:      doctors.NewHandler(doctorSvc, logger),
		TimeSlotsHandler:    timeslots.NewHandler(slotSvc, logger),
		ReservationsHandler: reservations.NewHandler(resSvc, logger),

		StatsHandler:  statsHandler,
		ExportHandler: export.NewHandler(exporter, logger),
		LiveHandler:   live.NewHandler(hub, logger),
	})

	return &API{
		Handler:      handler,
		Auth:         authSvc,
		Departments:  deptSvc,
		Doctors:      doctorSvc,
		TimeSlots:    slotSvc,
		Reservations: resSvc,
		Hub:          hub,
	}, nil
}
