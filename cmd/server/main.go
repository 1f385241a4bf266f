package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/tally/internal"
	"github.com/dukerupert/tally/internal/billing"
	"github.com/dukerupert/tally/internal/domain"
	"github.com/dukerupert/tally/internal/email"
	"github.com/dukerupert/tally/internal/events"
	"github.com/dukerupert/tally/internal/handler"
	"github.com/dukerupert/tally/internal/handler/api"
	"github.com/dukerupert/tally/internal/handler/webhook"
	"github.com/dukerupert/tally/internal/middleware"
	"github.com/dukerupert/tally/internal/postgres"
	"github.com/dukerupert/tally/internal/router"
	"github.com/dukerupert/tally/internal/routes"
	"github.com/dukerupert/tally/internal/service"
	"github.com/dukerupert/tally/internal/telemetry"
	"github.com/google/uuid"
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

	// Error tracking
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

	telemetry.InitBusinessMetrics("tally")

	// Database
	logger.Info("Connecting to database...")
	pool, err := postgres.NewPool(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()
	logger.Info("Database connection established")

	logger.Info("Running database migrations...")
	if err := internal.MigratePool(pool, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	store := postgres.NewStore(pool, logger)

	// Email
	var sender email.Sender
	if cfg.Email.Host != "" {
		smtpSender := email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     int(cfg.Email.Port),
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
		}, logger)
		if err := smtpSender.TestConnection(ctx); err != nil {
			logger.Warn("SMTP connection check failed, invoice emails may not be delivered", "error", err)
		}
		sender = smtpSender
		logger.Info("SMTP sender configured", "host", cfg.Email.Host, "port", cfg.Email.Port)
	} else {
		sender = email.NewLogSender(logger)
		logger.Warn("SMTP_HOST not set, invoice emails will only be logged")
	}
	mailer, err := email.NewService(sender, cfg.Email.From, cfg.Email.FromName)
	if err != nil {
		return fmt.Errorf("failed to initialize email service: %w", err)
	}

	// Domain events
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATS.URL != "" {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
		logger.Info("Publishing invoice events to NATS", "prefix", cfg.NATS.SubjectPrefix)
	}

	// Stripe
	var stripeProvider billing.Provider
	if cfg.Stripe.Enabled() {
		stripeConfig := billing.StripeConfig{
			APIKey:         cfg.Stripe.SecretKey,
			WebhookSecret:  cfg.Stripe.WebhookSecret,
			Currency:       cfg.Currency,
			MaxRetries:     3,
			TimeoutSeconds: 30,
		}
		provider, err := billing.NewStripeProvider(stripeConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize Stripe provider: %w", err)
		}
		stripeProvider = provider
		logger.Info("Stripe billing provider initialized", "test_mode", stripeConfig.IsTestMode())
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, Stripe checkout and webhooks disabled")
	}

	// Services
	invoiceService := service.NewInvoiceService(store, mailer, publisher, logger, service.InvoiceConfig{
		Currency: cfg.Currency,
	})
	paymentService := service.NewPaymentService(store, publisher, logger, service.PaymentConfig{
		Currency: cfg.Currency,
	})
	checkoutService := service.NewCheckoutService(store, stripeProvider, logger, service.CheckoutConfig{
		BaseURL:  cfg.BaseURL,
		Currency: cfg.Currency,
		PayPal: billing.PayPalConfig{
			BaseURL:  cfg.PayPal.BaseURL,
			Currency: cfg.Currency,
		},
	})
	reminderService := service.NewReminderService(store, logger)
	unpaidAmountService := service.NewUnpaidAmountService(store, logger)

	// ==========================================================================
	// Routes
	// ==========================================================================

	metrics := middleware.NewMetrics("tally", nil)

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		telemetry.SentryMiddleware(),
		router.Logger(logger),
	)

	routes.RegisterOpsRoutes(r, routes.OpsDeps{
		Health:  healthHandler(store),
		Metrics: metrics.Handler(),
	})

	routes.RegisterAPIRoutes(r, routes.APIDeps{
		InvoiceHandler:      api.NewInvoiceHandler(invoiceService, checkoutService, logger),
		UnpaidAmountHandler: api.NewUnpaidAmountHandler(unpaidAmountService, logger),
		ReminderHandler:     api.NewReminderHandler(reminderService, logger),
		Middleware: []router.Middleware{
			middleware.WithUser(middleware.HeaderAuthenticator{}),
			middleware.RequireUser,
			telemetry.SentryContextMiddleware(userIDString),
			middleware.WithRequestLogger(logger),
			middleware.RateLimit(middleware.RateLimiterConfig{
				Requests: cfg.RateLimit.APIPerMinute,
				Window:   time.Minute,
			}),
		},
	})

	webhookDeps := routes.WebhookDeps{
		PayPalHandler: webhook.NewPayPalHandler(paymentService, logger),
		Middleware: []router.Middleware{
			middleware.WithRequestLogger(logger),
			middleware.RateLimitByIP(middleware.RateLimiterConfig{
				Requests: cfg.RateLimit.WebhookPerMinute,
				Window:   time.Minute,
			}),
		},
	}
	if stripeProvider != nil {
		webhookDeps.StripeHandler = webhook.NewStripeHandler(stripeProvider, paymentService, logger, webhook.StripeWebhookConfig{
			WebhookSecret: cfg.Stripe.WebhookSecret,
		})
	}
	routes.RegisterWebhookRoutes(r, webhookDeps)

	for _, rt := range r.Routes() {
		logger.Debug("route registered", "method", cmp.Or(rt.Method, "*"), "pattern", rt.Pattern)
	}

	// ==========================================================================
	// Serve
	// ==========================================================================

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// healthHandler reports 503 when the database is unreachable.
func healthHandler(store *postgres.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			handler.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		handler.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func userIDString(ctx context.Context) string {
	if id := domain.UserIDFromContext(ctx); id != uuid.Nil {
		return id.String()
	}
	return ""
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
