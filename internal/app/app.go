// Package app wires the application together and runs the HTTP server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/ovenlight/bakeshop-api/internal/domain/audit"
	"github.com/ovenlight/bakeshop-api/internal/domain/coupon"
	"github.com/ovenlight/bakeshop-api/internal/domain/notify"
	"github.com/ovenlight/bakeshop-api/internal/domain/order"
	"github.com/ovenlight/bakeshop-api/internal/handler"
	"github.com/ovenlight/bakeshop-api/internal/mail"
	"github.com/ovenlight/bakeshop-api/internal/newsletter"
	"github.com/ovenlight/bakeshop-api/internal/storage/postgres"
	"github.com/ovenlight/bakeshop-api/pkg/health"
	"github.com/ovenlight/bakeshop-api/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	auditStore := postgres.NewAuditStore(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)
	newsletterRepo := postgres.NewNewsletterRepository(pool)

	// Outbound email. Without an SMTP relay, notifications are logged.
	var mailer notify.Mailer
	if cfg.SMTP.Addr != "" {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Addr:     cfg.SMTP.Addr,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		mailer = mail.NewLogMailer(lg.Named("mail"))
	}
	dispatcher := notify.NewDispatcher(mailer, lg.Named("notify"), cfg.Notify.SendTimeout)

	// Domain services.
	auditor := audit.NewLogger(auditStore, lg.Named("audit"))
	couponSvc := coupon.NewService(couponRepo)
	orderSvc := order.NewService(orderRepo, productRepo, couponSvc, couponRepo, auditor, dispatcher)

	counterStore := newsletter.NewMemoryCounterStore(cfg.Newsletter.Window)
	counterStore.StartSweep(ctx, 10*time.Minute)
	newsSvc := newsletter.NewService(newsletterRepo, counterStore, cfg.Newsletter.MaxAttempts, cfg.Newsletter.Window)

	// HTTP handlers.
	security := handler.NewSecurity(apikeyRepo, cfg.APIKeyPepper)
	h := handler.New(
		handler.Config{ImageBaseURL: cfg.ImageBaseURL},
		productRepo,
		orderSvc,
		couponSvc,
		auditStore,
		newsSvc,
		security,
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.APIKeyHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("bakeshop-api",
				otelhttp.WithTracerProvider(m.TracerProvider()),
				otelhttp.WithMeterProvider(m.MeterProvider()),
			),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		dispatcher.Wait()
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
