package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/lazone/lazone-api/internal/config"
	"github.com/lazone/lazone-api/internal/domain/catalog"
	"github.com/lazone/lazone-api/internal/domain/entitlement"
	"github.com/lazone/lazone-api/internal/domain/ledger"
	"github.com/lazone/lazone-api/internal/domain/listing"
	"github.com/lazone/lazone-api/internal/domain/manualpayment"
	"github.com/lazone/lazone-api/internal/domain/notification"
	"github.com/lazone/lazone-api/internal/domain/purchase"
	"github.com/lazone/lazone-api/internal/domain/subscription"
	"github.com/lazone/lazone-api/internal/domain/user"
	"github.com/lazone/lazone-api/internal/middleware"
	"github.com/lazone/lazone-api/internal/pkg/appstore"
	"github.com/lazone/lazone-api/internal/pkg/database"
	"github.com/lazone/lazone-api/internal/pkg/jwt"
	"github.com/lazone/lazone-api/internal/pkg/logger"
	"github.com/lazone/lazone-api/internal/pkg/metrics"
	pkgresponse "github.com/lazone/lazone-api/internal/pkg/response"
	"github.com/lazone/lazone-api/internal/pkg/stripepay"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting LaZone API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if cfg.MigrateOnBoot {
		if err := database.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	var summaryCache entitlement.Cache
	redisClient, err := database.NewRedis(context.Background(), cfg.RedisURL)
	switch {
	case errors.Is(err, database.ErrRedisNotConfigured):
		log.Warn().Msg("REDIS_URL empty, entitlement summaries are not cached")
	case err != nil:
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	default:
		defer database.CloseRedis(redisClient)
		summaryCache = entitlement.NewRedisCache(redisClient, cfg.EntitlementCacheTTL)
	}

	if cfg.MetricsEnabled {
		metrics.Register(prometheus.DefaultRegisterer)
	}

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// ---------- Repositories ----------
	ledgerRepo := ledger.NewRepository(db)
	userRepo := user.NewRepository(db)
	listingRepo := listing.NewRepository(db)
	subscriptionRepo := subscription.NewRepository(db)
	notificationRepo := notification.NewRepository(db)
	manualPaymentRepo := manualpayment.NewRepository(db)

	// ---------- Services ----------
	productCatalog := catalog.Default()
	notificationService := notification.NewService(notificationRepo)
	subscriptionService := subscription.NewService(subscriptionRepo)
	entitlementService := entitlement.NewService(
		ledgerRepo,
		listingRepo,
		userRepo,
		subscriptionService,
		summaryCache,
	)
	listingService := listing.NewService(listingRepo, entitlementService)
	purchaseService := purchase.NewService(ledgerRepo, productCatalog, subscriptionService, notificationService, entitlementService)
	manualPaymentService := manualpayment.NewService(manualPaymentRepo, listingRepo, purchaseService, notificationService, entitlementService)

	// ---------- Payment gateways ----------
	stripeClient := stripepay.NewClient(stripepay.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		SuccessURL:    cfg.FrontendURL + "/credits/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     cfg.FrontendURL + "/credits/cancel",
	})
	appStoreClient := appstore.NewClient(appstore.Config{
		SharedSecret: cfg.AppleSharedSecret,
		BundleID:     cfg.AppleBundleID,
		Sandbox:      cfg.AppleSandbox,
	})

	bootCtx := context.Background()
	if cfg.StripeEnabled() {
		if _, err := purchaseService.RegisterGateway(bootCtx, purchase.NewStripeGateway(stripeClient)); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Stripe gateway")
		}
	} else {
		log.Warn().Msg("STRIPE_SECRET_KEY not set, card payments disabled")
	}
	if _, err := purchaseService.RegisterGateway(bootCtx, purchase.NewAppStoreGateway(appStoreClient)); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize App Store gateway")
	}

	// ---------- Handlers ----------
	h := handlers{
		catalog:       catalog.NewHandler(productCatalog),
		purchase:      purchase.NewHandler(purchaseService),
		stripeWebhook: purchase.NewWebhookHandler(stripeClient, purchaseService),
		entitlement:   entitlement.NewHandler(entitlementService),
		listing:       listing.NewHandler(listingService),
		manualPayment: manualpayment.NewHandler(manualPaymentService, cfg.MobileMoneyReceiverPhone),
		notification:  notification.NewHandler(notificationService),
		metrics:       cfg.MetricsEnabled,
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	mountRoutes(r, h, middleware.Auth(jwtService))

	// ---------- Background jobs ----------
	jobsCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	go notification.NewCleanupJob(notificationRepo, cfg.NotificationRetentionDays).Start(jobsCtx, 24*time.Hour)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stopJobs()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

type handlers struct {
	catalog       *catalog.Handler
	purchase      *purchase.Handler
	stripeWebhook http.Handler
	entitlement   *entitlement.Handler
	listing       *listing.Handler
	manualPayment *manualpayment.Handler
	notification  *notification.Handler
	metrics       bool
}

func mountRoutes(r chi.Router, h handlers, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{"status": "ok"})
	})
	if h.metrics {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Method(http.MethodPost, "/webhooks/stripe", h.stripeWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/catalog", h.catalog.Routes())
		r.Mount("/purchases", h.purchase.Routes(authMiddleware))
		r.Mount("/entitlements", h.entitlement.Routes(authMiddleware))
		r.Mount("/listings", h.listing.Routes(authMiddleware))
		r.Mount("/manual-payments", h.manualPayment.Routes(authMiddleware))
		r.Mount("/notifications", h.notification.Routes(authMiddleware))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Mount("/manual-payments", h.manualPayment.AdminRoutes(authMiddleware))
		r.Mount("/ledger", h.purchase.AdminRoutes(authMiddleware))
	})
}
