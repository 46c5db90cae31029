package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/storefront/internal"
	"github.com/dukerupert/storefront/internal/billing"
	"github.com/dukerupert/storefront/internal/email"
	"github.com/dukerupert/storefront/internal/events"
	"github.com/dukerupert/storefront/internal/handler"
	"github.com/dukerupert/storefront/internal/handler/api"
	"github.com/dukerupert/storefront/internal/handler/webhook"
	"github.com/dukerupert/storefront/internal/jobs"
	"github.com/dukerupert/storefront/internal/middleware"
	"github.com/dukerupert/storefront/internal/postgres"
	"github.com/dukerupert/storefront/internal/router"
	"github.com/dukerupert/storefront/internal/routes"
	"github.com/dukerupert/storefront/internal/service"
	"github.com/dukerupert/storefront/internal/telemetry"
	"github.com/dukerupert/storefront/internal/worker"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	// Run migrations over database/sql, then hand the app a pgx pool
	logger.Info("Running database migrations...")
	if err := migrate(cfg.Database.URL); err != nil {
		return err
	}
	logger.Info("Database migrations completed successfully")

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MaxConnLifetime: time.Hour,
	})
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()
	store := postgres.NewStore(pool)

	// ==========================================================================
	// Metrics
	// ==========================================================================

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewMetrics("storefront", registry)
	business := telemetry.NewBusinessMetrics("storefront", registry)

	// ==========================================================================
	// Payment gateway
	// ==========================================================================

	stripeProvider, err := billing.NewStripeProvider(billing.StripeConfig{
		APIKey:         cfg.Stripe.SecretKey,
		WebhookSecret:  cfg.Stripe.WebhookSecret,
		MaxRetries:     cfg.Stripe.MaxRetries,
		TimeoutSeconds: cfg.Stripe.TimeoutSeconds,
		Transport:      &telemetry.HTTPTransport{},
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Stripe provider: %w", err)
	}
	gateway := billing.NewGuardedProvider(stripeProvider, billing.GuardConfig{
		Timeout:             cfg.Checkout.GatewayTimeout,
		ConsecutiveFailures: cfg.Checkout.BreakerFailures,
		OpenTimeout:         cfg.Checkout.BreakerOpenDuration,
	}, logger, business.GatewayCall)

	// ==========================================================================
	// Services
	// ==========================================================================

	catalogService := postgres.NewCatalogService(store, logger)
	cartService := service.NewCartService(store, business, logger)
	checkoutService := service.NewCheckoutService(store, gateway, service.CheckoutConfig{
		BaseURL:     cfg.Server.BaseURL,
		SuccessPath: cfg.Checkout.SuccessPath,
		CancelPath:  cfg.Checkout.CancelPath,
		Currency:    cfg.Stripe.Currency,
	}, business, logger)

	// ==========================================================================
	// Background worker
	// ==========================================================================

	var receipts jobs.ReceiptSender
	if cfg.SMTP.Host != "" {
		sender := email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		}, logger)
		emailService, err := email.NewService(sender, cfg.SMTP.From, cfg.SMTP.FromName)
		if err != nil {
			return fmt.Errorf("failed to initialize email service: %w", err)
		}
		receipts = emailService
	} else {
		logger.Warn("SMTP_HOST not set, order receipts disabled")
	}

	var publisher events.Publisher = events.NopPublisher{Logger: logger}
	if cfg.NATS.URL != "" {
		nc, err := events.Connect(events.Config{URL: cfg.NATS.URL, SubjectPrefix: cfg.NATS.SubjectPrefix}, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		publisher = nc
	} else {
		logger.Warn("NATS_URL not set, order events disabled")
	}
	defer publisher.Close()

	processor := jobs.NewProcessor(receipts, publisher, logger)
	jobWorker := worker.NewWorker(store, processor.Process, worker.Config{
		PollInterval:   cfg.Worker.PollInterval,
		MaxConcurrency: cfg.Worker.Concurrency,
	}, business, logger.With("component", "worker"))

	// ==========================================================================
	// Router
	// ==========================================================================

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.Burst,
	})
	defer rateLimiter.Stop()

	r := router.New(
		telemetry.SentryMiddleware(),
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		middleware.AccessLog,
		httpMetrics.Middleware,
		middleware.Recover,
		middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsProduction())),
		middleware.CORS(cfg.CORS.AllowedOrigins),
		rateLimiter.Middleware,
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		middleware.Timeout(middleware.DefaultTimeout),
	)

	validate := api.NewValidator()
	routes.RegisterOpsRoutes(r, routes.OpsDeps{
		HealthHandler:  api.NewHealthHandler(store),
		MetricsHandler: httpMetrics.Handler(),
	})
	routes.RegisterAPIRoutes(r, routes.APIDeps{
		Auth: middleware.NewAuthenticator(middleware.AuthConfig{
			Secret: []byte(cfg.Auth.JWTSecret),
			Issuer: cfg.Auth.Issuer,
		}),
		ProductHandler:  api.NewProductHandler(catalogService),
		CartHandler:     api.NewCartHandler(cartService, validate),
		CheckoutHandler: api.NewCheckoutHandler(checkoutService, validate),
	})
	routes.RegisterWebhookRoutes(r, routes.WebhookDeps{
		StripeHandler: webhook.NewStripeHandler(gateway, checkoutService, business, logger).HandleWebhook,
	})
	r.NotFound(handler.NotFoundResponse)

	for _, route := range r.Routes() {
		logger.Debug("route registered", "route", route)
	}

	// ==========================================================================
	// Start
	// ==========================================================================

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := jobWorker.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("worker failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", "timeout", cfg.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func migrate(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
