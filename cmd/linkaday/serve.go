package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmerrifield20/linkaday/internal/auth"
	"github.com/jmerrifield20/linkaday/internal/billing"
	"github.com/jmerrifield20/linkaday/internal/config"
	"github.com/jmerrifield20/linkaday/internal/database"
	"github.com/jmerrifield20/linkaday/internal/export"
	"github.com/jmerrifield20/linkaday/internal/health"
	"github.com/jmerrifield20/linkaday/internal/identity"
	"github.com/jmerrifield20/linkaday/internal/logging"
	"github.com/jmerrifield20/linkaday/internal/profiles"
	"github.com/jmerrifield20/linkaday/internal/web"
	"github.com/jmerrifield20/linkaday/internal/web/handler"
)

var (
	serveInMemory bool
	serveMigrate  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := logging.New(logging.Options{
			Level:       cfg.Log.Level,
			Development: cfg.App.Development(),
			File:        cfg.Log.File,
		})
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		return runServe(cmd.Context(), cfg, logger)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveInMemory, "in-memory", false, "keep profiles in memory instead of PostgreSQL (local development only)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply pending migrations before serving")
}

func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	checker := health.New(health.Config{}, logger)
	checker.SetMetricsRecord(handler.RecordHealthProbe)

	// ── Storage ───────────────────────────────────────────────────────────────
	var (
		store     profiles.Store
		activator profiles.PlanActivator
	)
	if serveInMemory {
		logger.Warn("using in-memory profile store; data is lost on restart")
		mem := profiles.NewMemoryStore()
		store, activator = mem, mem
	} else {
		if serveMigrate {
			if err := database.Migrate(cfg.Database.PrivilegedURL, database.Up, logger); err != nil {
				return err
			}
		}
		db, err := database.Open(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()

		privileged := db
		if cfg.Database.PrivilegedURL == cfg.Database.URL {
			logger.Warn("database.privileged_url not set; webhook plan activation shares the application role")
		} else {
			if privileged, err = database.Open(ctx, cfg.Database.PrivilegedURL); err != nil {
				return err
			}
			defer privileged.Close()
		}
		logger.Info("connected to postgres")
		checker.Register("postgres", db.Ping)
		store = profiles.NewRepository(db)
		activator = profiles.NewPrivilegedRepository(privileged)
	}

	var dedupe billing.Deduper = billing.NewMemoryDeduper()
	if cfg.Redis.URL != "" {
		rdb, err := billing.ConnectRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		dedupe = billing.NewRedisDeduper(rdb, 0)
		checker.Register("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		logger.Info("stripe event dedupe backed by redis")
	}

	// ── Identity ─────────────────────────────────────────────────────────────
	sessions := identity.NewSessionIssuer(cfg.Session.Secret, cfg.App.PublicURL, cfg.Session.TTL)
	cookie := identity.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: strings.HasPrefix(cfg.App.PublicURL, "https://"),
	}

	var (
		provider identity.Provider
		callback *auth.Callback
	)
	google, err := identity.NewGoogleProvider(identity.OAuthClientConfig{
		ClientID:     cfg.OAuth.Google.ClientID,
		ClientSecret: cfg.OAuth.Google.ClientSecret,
		RedirectURL:  cfg.OAuth.Google.RedirectURL,
	})
	switch {
	case errors.Is(err, identity.ErrProviderNotConfigured):
		logger.Warn("google oauth not configured; sign-in disabled")
	case err != nil:
		return fmt.Errorf("configure google oauth: %w", err)
	default:
		provider = google
		callback = auth.NewCallback(provider, sessions, store, auth.DefaultPaths, cfg.App.Development(), logger)
	}

	// ── Billing & export ─────────────────────────────────────────────────────
	checkout := billing.NewCheckout(billing.CheckoutConfig{
		SecretKey: cfg.Stripe.SecretKey,
		PriceID:   cfg.Stripe.PriceID,
		AppURL:    cfg.App.PublicURL,
	})
	verifier := billing.NewVerifier(cfg.Stripe.WebhookSecret)
	if !verifier.Configured() {
		logger.Warn("stripe webhook secret not set; subscription activation disabled")
	}
	processor := billing.NewProcessor(activator, dedupe, logger)

	exporter := export.NewExporter(cfg.Export.WebhookURL, cfg.Export.Secret, logger)
	exporter.SetMetricsRecorder(handler.RecordExport)

	// ── HTTP Router ───────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := web.NewRouter(web.Options{
		CORSOrigins:  cfg.Server.CORSOrigins,
		RateLimitRPS: cfg.Server.RateLimitRPS,
		LoginPath:    auth.DefaultPaths.Login,
		Sessions:     sessions,
		Cookie:       cookie,
		Auth:         handler.NewAuthHandler(provider, sessions, callback, cookie, logger),
		Profile:      handler.NewProfileHandler(store, exporter, logger),
		Pages:        handler.NewPageHandler(store, cfg.Telegram.BotUsername, logger),
		Billing:      handler.NewBillingHandler(store, checkout, verifier, processor, logger),
		Health:       checker,
		Logger:       logger,
	})

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// ── Background: dependency health probes ─────────────────────────────────
	probeCtx, stopProbes := context.WithCancel(ctx)
	defer stopProbes()
	checker.CheckAll(probeCtx)
	go checker.Start(probeCtx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("linkaday HTTP listening", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.App.Env))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────────────
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("http listen: %w", err)
	}
	logger.Info("shutting down linkaday...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}
	logger.Info("linkaday stopped")
	return nil
}
