package main

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/consultamed/consultamed/internal/config"
	"github.com/consultamed/consultamed/internal/domain/encounter"
	"github.com/consultamed/consultamed/internal/domain/patient"
	"github.com/consultamed/consultamed/internal/domain/practitioner"
	"github.com/consultamed/consultamed/internal/domain/prescription"
	"github.com/consultamed/consultamed/internal/domain/template"
	"github.com/consultamed/consultamed/internal/platform/auth"
	"github.com/consultamed/consultamed/internal/platform/db"
	"github.com/consultamed/consultamed/internal/platform/middleware"
	"github.com/consultamed/consultamed/internal/platform/phi"
)

const (
	appName        = "ConsultaMed API"
	version        = "1.0.0"
	requestTimeout = 30 * time.Second
)

// services bundles the domain services built over one pool.
type services struct {
	patients      *patient.Service
	practitioners *practitioner.Service
	encounters    *encounter.Service
	templates     *template.Service
	prescriptions *prescription.Service
}

func newServices(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*services, error) {
	key, err := cfg.EncryptionKey()
	if err != nil {
		return nil, err
	}
	phiSvc, err := phi.NewService(key, logger)
	if err != nil {
		return nil, err
	}

	patients := patient.NewService(patient.NewRepo(pool, phiSvc), logger)
	practitioners := practitioner.NewService(practitioner.NewRepo(pool), []byte(cfg.JWTSecretKey), cfg.AccessTokenTTL(), logger)
	encounters := encounter.NewService(encounter.NewRepo(pool), patients, logger)
	return &services{
		patients:      patients,
		practitioners: practitioners,
		encounters:    encounters,
		templates:     template.NewService(template.NewRepo(pool), logger),
		prescriptions: prescription.NewService(encounters, patients, practitioners, logger),
	}, nil
}

// newServer wires middleware and routes. pool is only used when a request
// reaches the database.
func newServer(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*echo.Echo, error) {
	svcs, err := newServices(cfg, pool, logger)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
		ExposeHeaders:    []string{echo.HeaderContentDisposition},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit(cfg.BodyLimit))

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"app":     appName,
			"version": version,
		})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{RequestsPerSecond: cfg.RateLimitRPS}))
	apiV1.Use(middleware.RequestTimeout(requestTimeout))
	apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
		SigningKey: []byte(cfg.JWTSecretKey),
		Skipper:    auth.AuthSkipper,
	}))
	apiV1.Use(middleware.Audit(logger))

	practitioner.NewHandler(svcs.practitioners).RegisterRoutes(apiV1,
		middleware.RateLimit(middleware.LoginRateLimitConfig()))
	patient.NewHandler(svcs.patients).RegisterRoutes(apiV1)
	encounter.NewHandler(svcs.encounters).RegisterRoutes(apiV1)
	template.NewHandler(svcs.templates).RegisterRoutes(apiV1)
	prescription.NewHandler(svcs.prescriptions).RegisterRoutes(apiV1)

	return e, nil
}
