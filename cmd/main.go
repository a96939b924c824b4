package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/peterneubauer/savethesquare/internal/application"
	"github.com/peterneubauer/savethesquare/internal/config"
	"github.com/peterneubauer/savethesquare/internal/database"
	"github.com/peterneubauer/savethesquare/internal/domain/geometry"
	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/domain/raster"
	domainrepo "github.com/peterneubauer/savethesquare/internal/domain/repository"
	"github.com/peterneubauer/savethesquare/internal/handler"
	"github.com/peterneubauer/savethesquare/internal/infrastructure/cache"
	pgdatabase "github.com/peterneubauer/savethesquare/internal/infrastructure/database"
	"github.com/peterneubauer/savethesquare/internal/infrastructure/firestore"
	"github.com/peterneubauer/savethesquare/internal/infrastructure/live"
	"github.com/peterneubauer/savethesquare/internal/infrastructure/mail"
	"github.com/peterneubauer/savethesquare/internal/infrastructure/payment"
	"github.com/peterneubauer/savethesquare/internal/middleware"
	"github.com/peterneubauer/savethesquare/internal/repository"
	"github.com/peterneubauer/savethesquare/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	checks := make(map[string]handler.HealthCheck)

	log.Println("🗺️ Loading property boundary...")
	property, err := geometry.LoadProperty(cfg.Selection.BoundaryPath)
	if err != nil {
		log.Fatalf("❌ Failed to load property boundary %s: %v", cfg.Selection.BoundaryPath, err)
	}
	log.Printf("✅ Property loaded: %d polygons, %.0f m²", len(property.Polygons()), property.AreaSquareMeters())

	rasterizer, err := raster.NewTextRasterizer()
	if err != nil {
		log.Fatalf("❌ Failed to initialize text rasterizer: %v", err)
	}

	// Donations table
	var donationsRepo domainrepo.DonationsRepository
	switch cfg.Donations.Backend {
	case config.BackendPostgres:
		log.Println("🐘 Connecting to PostgreSQL...")
		pg, err := pgdatabase.NewPostgreSQLClient(ctx, cfg.Supabase)
		if err != nil {
			log.Fatalf("❌ Failed to connect to PostgreSQL: %v", err)
		}
		defer pg.Close()
		donationsRepo = repository.NewPostgresDonationsRepository(pg)
	default:
		log.Println("🔗 Initializing Supabase client...")
		sb, err := database.NewSupabaseClient(cfg.Supabase)
		if err != nil {
			log.Fatalf("❌ Failed to initialize Supabase client: %v", err)
		}
		if err := sb.HealthCheck(); err != nil {
			log.Fatalf("❌ Supabase health check failed: %v", err)
		}
		donationsRepo = repository.NewSupabaseDonationsRepository(sb)
	}

	checks["donations"] = donationsRepo.HealthCheck

	// Snapshot cache and text settings
	var snapshotCache domainrepo.DonationSnapshotCache
	var settingsRepo domainrepo.TextSettingsRepository
	if rc := cache.OpenRedis(cfg.Redis); rc != nil {
		if err := cache.Ping(ctx, rc); err != nil {
			log.Printf("⚠️ Redis not reachable, continuing without snapshot cache: %v", err)
		}
		defer rc.Close()
		snapshotCache = repository.NewRedisDonationCache(rc)
		settingsRepo = repository.NewRedisTextSettingsRepository(rc)
		checks["redis"] = func(ctx context.Context) error { return cache.Ping(ctx, rc) }
	} else {
		log.Println("ℹ️ REDIS_HOST not set: no snapshot cache, text settings kept in memory")
	}

	// Pending checkouts
	var pendingRepo domainrepo.PendingCheckoutRepository
	if cfg.Firestore.ProjectID != "" {
		fs, err := firestore.NewFirestoreClient(ctx, cfg.Firestore.ProjectID)
		if err != nil {
			log.Printf("⚠️ Firestore unavailable, checkout metadata only: %v", err)
		} else {
			defer fs.Close()
			pendingRepo = repository.NewFirestorePendingCheckoutRepository(fs.GetClient())
		}
	}

	// Payment and email providers
	var paymentProvider domainrepo.PaymentProvider
	if cfg.Stripe.SecretKey != "" {
		paymentProvider = payment.NewStripeCheckoutProvider(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
		log.Printf("💳 Stripe checkout enabled (test mode: %t)", cfg.Stripe.TestMode)
	} else {
		log.Println("ℹ️ STRIPE_SECRET_KEY not set: hosted checkout disabled")
	}
	var sender domainrepo.ConfirmationSender
	if !cfg.Email.TestMode {
		sender = mail.NewSendGridSender(cfg.Email.SendGridAPIKey)
	}

	price := cfg.Donations.SquarePriceSEK
	donationUseCase := usecase.NewDonationUseCase(donationsRepo, snapshotCache, price, cfg.Stripe.TestMode)
	emailUseCase := usecase.NewEmailUseCase(sender, cfg.Server.SiteURL, cfg.Email.FromEmail, cfg.Email.TestMode)
	checkoutUseCase := usecase.NewCheckoutUseCase(
		paymentProvider,
		pendingRepo,
		donationsRepo,
		donationUseCase,
		emailUseCase,
		usecase.CheckoutSettings{
			PricePerSquare: price,
			Currency:       cfg.Donations.Currency,
			SiteURL:        cfg.Server.SiteURL,
			PendingTTL:     cfg.Firestore.PendingTTL,
		},
	)

	sessions := application.NewSelectionSessionService(
		property,
		rasterizer,
		donationUseCase,
		checkoutUseCase,
		emailUseCase,
		settingsRepo,
		application.SessionConfig{
			TTL:            cfg.Selection.SessionTTL,
			TextDebounce:   cfg.Selection.TextDebounce,
			PricePerSquare: price,
			TestMode:       cfg.Stripe.TestMode,
		},
	)
	defer sessions.Close()

	hub := live.NewHub()
	go hub.Run()
	defer hub.Stop()

	donationUseCase.OnDonationsSaved(func(cells []model.DonatedCell) {
		sessions.MergeDonated(cells)
		keys := make([]model.CellKey, 0, len(cells))
		for _, cell := range cells {
			keys = append(keys, cell.Key)
		}
		hub.BroadcastJSON(live.MessageDonationsUpdated, gin.H{"squares": keys})
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweep(sweepCtx, cfg.Selection.SweepInterval, sessions, limiter)

	router := handler.SetupRouter(handler.Handlers{
		Health: handler.NewHealthHandler(checks),
		Property: handler.NewPropertyHandler(property, model.ClientConfigResponse{
			TestMode:      cfg.Stripe.TestMode,
			EmailTestMode: cfg.Email.TestMode,
			SquarePrice:   price,
			Currency:      cfg.Donations.Currency,
		}),
		Donations: handler.NewDonationsHandler(donationUseCase),
		Checkout:  handler.NewCheckoutHandler(checkoutUseCase),
		Email:     handler.NewEmailHandler(emailUseCase),
		Selection: handler.NewSelectionHandler(sessions),
		Live:      handler.NewLiveHandler(hub, sessions, cfg.Server.AllowedOrigins),
	}, handler.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Limiter:        limiter,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("🚀 Save The Square server starting on :%s (%s)", cfg.Server.Port, cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Server shutdown error: %v", err)
	}
	log.Println("✅ Server stopped")
}

// sweep drops idle selection sessions and idle rate-limit buckets
func sweep(ctx context.Context, interval time.Duration, sessions application.SelectionSessionService, limiter *middleware.RateLimiter) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Sweep()
			if n := limiter.Cleanup(); n > 0 {
				log.Printf("🧹 Dropped %d idle rate limit buckets", n)
			}
		}
	}
}
