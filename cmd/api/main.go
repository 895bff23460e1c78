// Package main is the entrypoint for the user API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/apiproject/userapi/internal/config"
	"github.com/apiproject/userapi/internal/handler"
	"github.com/apiproject/userapi/internal/logging"
	"github.com/apiproject/userapi/internal/metrics"
	"github.com/apiproject/userapi/internal/middleware"
	"github.com/apiproject/userapi/internal/repository"
	"github.com/apiproject/userapi/internal/server"
)

var errStartup = errors.New("startup failed")

// startupTimeout bounds connecting to the database and creating the schema.
const startupTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, logFile := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	slog.SetDefault(logger)

	err = run(cfg, logger)
	logRunError(logger, err)
	_ = logFile.Close()
	if err != nil {
		os.Exit(1)
	}
}

// logRunError reports a failure from run. Startup failures were already
// logged with their cause.
func logRunError(logger *slog.Logger, err error) {
	if err == nil || errors.Is(err, errStartup) {
		return
	}
	logger.Error("server error", "error", err)
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	logger.Info("connecting to database",
		"driver", cfg.DBDriver,
		"dsn", cfg.RedactedDSN(),
	)

	store, err := repository.Open(ctx, repository.Options{
		Driver:          repository.Driver(cfg.DBDriver),
		DSN:             cfg.DSN(),
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		OpTimeout:       cfg.StoreOpTimeout,
	})
	if err != nil {
		logger.Error("failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.MySQLPassword, cfg.DatabaseURL)),
			slog.String("dsn", cfg.RedactedDSN()),
		)
		return errStartup
	}

	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		logger.Error("failed to create schema", slog.String("error", sanitizeError(err, cfg.MySQLPassword, cfg.DatabaseURL)))
		return errStartup
	}
	logger.Info("connected to database",
		"database", cfg.DatabaseName(),
		"host", cfg.DatabaseHost(),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewPrometheus(reg)

	instrumented := repository.Instrument(store, recorder)
	r := setupRouter(cfg, instrumented, reg, recorder, logger)

	srv := server.New(r, server.Options{
		Port:            cfg.Port,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
	srv.OnShutdown("store", func(ctx context.Context) error { return instrumented.Close() })

	logger.Info("starting server",
		"port", cfg.Port,
		"env", cfg.AppEnv,
		"driver", cfg.DBDriver,
	)

	return srv.Run()
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	cfg *config.Config,
	store repository.Store,
	gatherer prometheus.Gatherer,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *chi.Mux {
	h := handler.New(cfg.DatabaseName(), cfg.DatabaseHost())
	healthHandler := handler.NewHealthHandler(store, logger)
	userHandler := handler.NewUserHandler(store, logger)
	metricsHandler := handler.NewMetricsHandler(gatherer)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(recorder))
	r.Use(middleware.Recoverer(logger, cfg.IsDevelopment()))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	r.Get("/", h.Root)
	r.Get("/health", healthHandler.Health)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/metrics", metricsHandler.Metrics)

	r.Route("/users", func(r chi.Router) {
		r.Post("/", userHandler.Create)
		r.Get("/", userHandler.List)
		r.Get("/{id}", userHandler.Get)
		r.Delete("/{id}", userHandler.Delete)
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

// sanitizeError strips secrets that drivers may echo back in error text.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		// Very short secrets would mangle unrelated text.
		if len(secret) < 4 {
			continue
		}
		msg = strings.ReplaceAll(msg, secret, "[redacted]")
	}
	return msg
}
