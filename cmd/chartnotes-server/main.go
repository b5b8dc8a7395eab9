package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/chartnotes/internal/config"
	"github.com/ehr/chartnotes/internal/domain/assessment"
	"github.com/ehr/chartnotes/internal/domain/auditlog"
	"github.com/ehr/chartnotes/internal/domain/condition"
	"github.com/ehr/chartnotes/internal/domain/document"
	"github.com/ehr/chartnotes/internal/domain/patient"
	"github.com/ehr/chartnotes/internal/domain/search"
	"github.com/ehr/chartnotes/internal/domain/terminology"
	"github.com/ehr/chartnotes/internal/domain/user"
	"github.com/ehr/chartnotes/internal/platform/auth"
	"github.com/ehr/chartnotes/internal/platform/db"
	"github.com/ehr/chartnotes/internal/platform/metrics"
	"github.com/ehr/chartnotes/internal/platform/middleware"
	"github.com/ehr/chartnotes/internal/platform/observability"
)

const (
	version   = "0.1.0"
	jwtIssuer = "chartnotes"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "chartnotes-server",
		Short:        "Clinical documentation API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// newLogger writes JSON to stdout, or colored console output in development.
// An unknown LOG_LEVEL falls back to info.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

// loadConfig loads and validates configuration and builds the process
// logger from it.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, newLogger(cfg), nil
}

// errorHandler reports server errors to Sentry before delegating to echo's
// default rendering.
func errorHandler(e *echo.Echo, logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
		}
		if code >= http.StatusInternalServerError {
			logger.Error().Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", code).
				Msg("request failed")
			observability.CaptureErr(err, "path", c.Path(), "method", c.Request().Method)
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
}

func runServer() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		logger.Warn().Err(err).Msg("sentry disabled")
	}
	defer flush()

	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	app, err := newApp(ctx, cfg, pool, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(e, logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.UploadLimit))
	e.Use(middleware.Sanitize(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))

	e.GET("/health", db.HealthHandler(pool, func() *db.PoolStats { return db.GetPoolStats(pool) }))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
	rateLimitCfg.BurstSize = cfg.RateLimitBurst

	// Register and login are reachable without a token.
	public := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))
	apiV1 := e.Group("/api/v1",
		auth.JWTMiddleware(auth.JWTConfig{Issuer: jwtIssuer, SigningKey: cfg.SigningKey()}),
		middleware.RateLimit(rateLimitCfg),
		middleware.Audit(logger, app.audit),
	)

	user.NewHandler(app.users).RegisterRoutes(public, apiV1)
	auditlog.NewHandler(app.audit).RegisterRoutes(apiV1)
	patient.NewHandler(app.patients).RegisterRoutes(apiV1)
	terminology.NewHandler(app.terminology).RegisterRoutes(apiV1)
	condition.NewHandler(app.conditions).RegisterRoutes(apiV1)
	document.NewHandler(app.documents).RegisterRoutes(apiV1)
	search.NewHandler(app.search).RegisterRoutes(apiV1)
	assessment.NewHandler(app.assessments).RegisterRoutes(apiV1)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
