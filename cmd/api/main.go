package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sctbrt/bertrandbrands.com/internal/access"
	"github.com/sctbrt/bertrandbrands.com/internal/http/cookies"
	"github.com/sctbrt/bertrandbrands.com/internal/http/handlers"
	mw "github.com/sctbrt/bertrandbrands.com/internal/http/middleware"
	"github.com/sctbrt/bertrandbrands.com/internal/limiter"
	"github.com/sctbrt/bertrandbrands.com/internal/mailer"
	"github.com/sctbrt/bertrandbrands.com/internal/maintenance"
	"github.com/sctbrt/bertrandbrands.com/internal/repo/postgres"
	"github.com/sctbrt/bertrandbrands.com/pkg/config"
	"github.com/sctbrt/bertrandbrands.com/pkg/database"
	"github.com/sctbrt/bertrandbrands.com/pkg/events"
	"github.com/sctbrt/bertrandbrands.com/pkg/logger"
)

// sweepStores exposes the expiry-deletion slice of both repositories to the
// maintenance sweeper.
type sweepStores struct {
	postgres.LinkRepo
	postgres.SessionRepo
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.InitSchema(ctx, pool); err != nil {
		logger.Error("Failed to initialize schema", "error", err)
		os.Exit(1)
	}

	// Repositories
	linkRepo := postgres.NewLinkRepo(pool)
	sessionRepo := postgres.NewSessionRepo(pool)
	clientRepo := postgres.NewClientRepo(pool)

	// Event bus is optional; without NATS the core still runs.
	var publisher events.Publisher = events.Noop{}
	if cfg.NATS.URL != "" {
		natsPub, err := events.NewNATSPublisher(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS, continuing without events", "error", err)
		} else {
			publisher = natsPub
			defer natsPub.Close()
		}
	}

	// The per-IP burst guard lives in Redis when one is configured so the
	// bound holds across instances; otherwise it is per-process.
	var guard limiter.BurstGuard
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("Invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		guard = limiter.NewRedisGuard(redis.NewClient(opts), cfg.Access.IPPerWindow, cfg.Access.RateLimitWindow)
		logger.Info("Rate limiting with Redis burst guard")
	} else {
		guard = limiter.NewMemoryGuard(cfg.Access.IPPerWindow, cfg.Access.RateLimitWindow, nil)
	}
	lim := limiter.New(linkRepo, guard, limiter.Config{
		Window:         cfg.Access.RateLimitWindow,
		EmailPerWindow: cfg.Access.EmailPerWindow,
		IPPerWindow:    cfg.Access.IPPerWindow,
	}, nil)

	mail := buildMailer(cfg)

	// Services
	pricingSvc := access.NewPricingService(linkRepo, sessionRepo, lim, mail, publisher, cfg.Access, cfg.Site.AppURL)
	bookingSvc := access.NewBookingService(linkRepo, sessionRepo, clientRepo, mail, publisher, cfg.Access, cfg.Site.AppURL)

	// Background expiry sweeps
	sweeper := maintenance.NewSweeper(
		sweepStores{LinkRepo: linkRepo, SessionRepo: sessionRepo},
		logger.Default(),
		cfg.Access.SweepInterval,
		cfg.Access.SweepGracePeriod,
	)
	sweeper.Start()
	defer sweeper.Stop()

	// Handlers
	cookiePolicy := cookies.Policy{Production: cfg.Site.Production, Domains: cfg.Site.CookieDomains}
	pricingHandler := handlers.NewPricingHandler(pricingSvc, cookiePolicy, cfg.Site.AppURL)
	bookingHandler := handlers.NewBookingHandler(bookingSvc, cookiePolicy, cfg.Site.AppURL, cfg.Site.AdminSecret)

	// Router
	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Site.AppURL},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Admin-Secret"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Mount("/pricing", pricingHandler.Routes())
		r.Mount("/booking", bookingHandler.Routes())
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down access service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting access service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func buildMailer(cfg *config.Config) mailer.Service {
	switch {
	case cfg.Email.DevMode:
		logger.Info("Email dev mode: links are logged, not sent")
		return mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		m, err := mailer.NewMailerSendMailer(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
		if err != nil {
			logger.Error("Failed to initialize MailerSend, falling back to SMTP", "error", err)
			break
		}
		logger.Info("Email via MailerSend")
		return m
	}
	logger.Info("Email via SMTP", "host", cfg.Email.SMTPHost, "port", cfg.Email.SMTPPort)
	return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass)
}
