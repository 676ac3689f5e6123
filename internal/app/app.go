// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/satsignal/satsignal/internal/auth"
	"github.com/satsignal/satsignal/internal/config"
	"github.com/satsignal/satsignal/internal/invoices"
	"github.com/satsignal/satsignal/internal/pkg/ctxlog"
	"github.com/satsignal/satsignal/internal/pkg/httputil"
	"github.com/satsignal/satsignal/internal/pubsub"
	"github.com/satsignal/satsignal/internal/subscriptions"
	"github.com/satsignal/satsignal/internal/version"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	node          invoices.NodeClient
	broker        *pubsub.Broker
	server        *http.Server
	metricsServer *http.Server
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	var node invoices.NodeClient
	if cfg.LND.Mock {
		logger.Warn("using in-memory mock lightning node: payment requests must be registered through the mock")
		node = invoices.NewMockNodeClient()
	} else {
		var err error
		node, err = invoices.NewLNDHTTPClient(invoices.LNDConfig{
			Address:       cfg.LND.Address,
			MacaroonHex:   cfg.LND.MacaroonHex,
			TLSSkipVerify: cfg.LND.TLSSkipVerify,
			Timeout:       cfg.LND.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to lnd: %w", err)
		}
	}

	app := &App{
		config: cfg,
		logger: logger,
		node:   node,
		broker: pubsub.NewBrokerWithFlushDelay(cfg.Subscriptions.DeferredFlush),
	}

	router, err := app.setupRouter()
	if err != nil {
		_ = node.Close()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application. Armed expiry timers are
// abandoned: their publishes after shutdown go to a broker with no streams
// and are dropped.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	if err := a.node.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close node client: %w", err))
	}

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) setupRouter() (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// No global request timeout: status streams stay open until the
	// invoice reaches a terminal state.

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	checker := invoices.NewChecker(a.node)
	expiry := subscriptions.NewExpiryScheduler(a.broker, a.config.Subscriptions.ExpiryGrace)
	subscriptionService := subscriptions.NewService(checker, a.broker, expiry)
	subscriptionHandler := subscriptions.NewHandler(subscriptionService)

	var verifier *auth.Verifier
	if a.config.Auth.Enabled {
		var err error
		verifier, err = auth.NewVerifier(auth.Config{
			Secret:   a.config.Auth.Secret,
			TokenTTL: a.config.Auth.TokenTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("create token verifier: %w", err)
		}
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(httputil.RateLimitMiddleware(
				a.config.Subscriptions.RatePerSecond,
				a.config.Subscriptions.RateBurst,
			))
			if verifier != nil {
				r.Use(httputil.BearerAuthMiddleware(verifier))
			}
			subscriptionHandler.RegisterRoutes(r)
		})
	})

	return r, nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.node.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Lightning node unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
