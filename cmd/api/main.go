// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/klamlamwork/playroom/internal/config"
	"github.com/klamlamwork/playroom/internal/dialogue"
	"github.com/klamlamwork/playroom/internal/handler"
	"github.com/klamlamwork/playroom/internal/journey"
	"github.com/klamlamwork/playroom/internal/middleware"
	natsclient "github.com/klamlamwork/playroom/internal/nats"
	"github.com/klamlamwork/playroom/internal/recommend"
	"github.com/klamlamwork/playroom/internal/service"
	"github.com/klamlamwork/playroom/internal/session"
	"github.com/klamlamwork/playroom/internal/store"
	"github.com/klamlamwork/playroom/internal/weather"
	"github.com/klamlamwork/playroom/pkg/logger"
	"github.com/klamlamwork/playroom/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize tracing if enabled
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "playroom", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	// Open the database
	st, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal("failed to open database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	// Connect to NATS when configured
	var (
		natsClient *natsclient.Client
		publisher  service.Publisher = service.NopPublisher{}
		sessions   session.Store
	)
	if cfg.NATSEnabled() {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:        cfg.NATSURL,
			CAFile:     cfg.NATSCAFile,
			CertFile:   cfg.NATSCertFile,
			KeyFile:    cfg.NATSKeyFile,
			Token:      cfg.NATSToken,
			Sessions:   cfg.SessionBackend == "nats",
			SessionTTL: cfg.SessionTTL,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()

		publisher = natsClient.Events()
		if kv := natsClient.Sessions(); kv != nil {
			sessions = session.NewKVStore(kv)
		}
	} else if cfg.SessionBackend == "nats" {
		log.Fatal("SESSION_BACKEND=nats requires NATS_URL")
	}
	if sessions == nil {
		mem := session.NewMemoryStore(cfg.SessionTTL)
		go mem.RunSweeper(ctx, time.Minute)
		sessions = mem
	}
	log.Info("session store ready", zap.String("backend", cfg.SessionBackend))

	// Weather advisory is optional
	var advisor recommend.Advisor
	if cfg.WeatherEnabled() {
		client := weather.NewClient(weather.Config{
			APIKey:  cfg.WeatherAPIKey,
			BaseURL: cfg.WeatherBaseURL,
			Timeout: cfg.WeatherTimeout,
		})
		advisor = weather.NewAdvisor(client, cfg.WeatherTimeout, log)
	} else {
		log.Warn("WEATHER_API_KEY not set, weather advisory disabled")
	}

	// Initialize services
	chatSvc := service.NewChatService(service.ChatDeps{
		Directory: st,
		Catalog:   st,
		Courses:   st,
		Routines:  st,
		Sessions:  sessions,
		Machine:   dialogue.NewMachine(journey.NewTracker(st, journey.ParsePolicy(cfg.JourneyPolicy))),
		Engine:    recommend.NewEngine(advisor),
		Publisher: publisher,
		Logger:    log,
	})
	completionSvc := service.NewCompletionService(st, publisher, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(st, natsClient)
	chatHandler := handler.NewChatHandler(chatSvc, log)
	completionHandler := handler.NewCompletionHandler(completionSvc, log)
	pageHandler := handler.NewPageHandler(chatSvc, handler.PageConfig{
		LoginURL:     cfg.LoginURL,
		DashboardURL: cfg.DashboardURL,
		SessionTTL:   cfg.SessionTTL,
	}, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/chat", chatHandler.Get)
		r.Post("/chat", chatHandler.Post)

		r.Route("/completions", func(r chi.Router) {
			r.Post("/five-min-fun", completionHandler.FiveMinFun)
			r.Post("/event", completionHandler.Event)
			r.Post("/routine-instance", completionHandler.RoutineInstance)
		})
	})

	// Browser chat page
	r.Group(func(r chi.Router) {
		r.Use(middleware.PageAuth(cfg.JWTSecret, cfg.LoginURL))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/chat", pageHandler.Get)
		r.Post("/chat", pageHandler.Post)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
