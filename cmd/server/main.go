// Sentinel-Auth server
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ashureev/sentinel-auth/internal/api"
	"github.com/ashureev/sentinel-auth/internal/auth"
	"github.com/ashureev/sentinel-auth/internal/config"
	"github.com/ashureev/sentinel-auth/internal/health"
	"github.com/ashureev/sentinel-auth/internal/identity"
	"github.com/ashureev/sentinel-auth/internal/livechat"
	"github.com/ashureev/sentinel-auth/internal/lookup"
	"github.com/ashureev/sentinel-auth/internal/middleware"
	"github.com/ashureev/sentinel-auth/internal/safebrowsing"
	"github.com/ashureev/sentinel-auth/internal/session"
	"github.com/ashureev/sentinel-auth/internal/store"
	"github.com/ashureev/sentinel-auth/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Sessions never outlive the process.
	sessionsDeleted, messagesDeleted, err := repo.PurgeAll(context.Background())
	if err != nil {
		slog.Error("Failed to clear previous session state", "error", err)
		os.Exit(1)
	}
	slog.Info("Previous session state cleared", "sessions_deleted", sessionsDeleted, "messages_deleted", messagesDeleted)

	gate, err := auth.NewGate(cfg.Credentials, auth.NewBcryptHasher(bcrypt.DefaultCost))
	if err != nil {
		slog.Error("Failed to load credential table", "error", err)
		os.Exit(1)
	}

	// Initialize services.
	hub := livechat.NewHub()
	ids := identity.NewManager(repo, auth.NewTokens(cfg.Cookie.Key), cfg.Cookie.Name, cfg.SessionTTL, cfg.IsDevelopment())
	ids.OnLogout(hub.CloseSession)

	wiki := lookup.NewWikiClient(cfg.Lookup.Endpoint, cfg.Lookup.UserAgent, cfg.Lookup.Timeout)
	responder := lookup.NewResponder(wiki, cfg.Lookup.Sentences, cfg.Lookup.MaxOptions, logger)

	// A missing API key disables Security Tools only.
	var checker api.URLChecker
	var unavailable string
	if sb, err := safebrowsing.New(cfg.SafeBrowsing); err != nil {
		unavailable = securityUnavailable(cfg, err)
		slog.Warn("Security Tools disabled", "error", err)
	} else {
		checker = sb
		slog.Info("Security Tools enabled", "endpoint", cfg.SafeBrowsing.Endpoint)
	}

	pages, err := web.NewRenderer()
	if err != nil {
		slog.Error("Failed to load page templates", "error", err)
		os.Exit(1)
	}

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, ids, pages, hub)
	authHandler := api.NewAuthHandler(baseHandler, gate)
	chatHandler := api.NewChatHandler(baseHandler, responder)
	securityHandler := api.NewSecurityHandler(baseHandler, checker, unavailable)
	wsHandler := livechat.NewWebSocketHandler(repo, responder, hub, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(chiMiddleware.RequestSize(cfg.MaxRequestBodySize))
	r.Use(middleware.CORS(allowedOrigins(cfg.FrontendURL)))
	r.Use(ids.Middleware)

	authHandler.RegisterRoutes(r)
	chatHandler.RegisterRoutes(r)
	securityHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.With(identity.RequireSession).Get("/ws/chat", wsHandler.ServeHTTP)

	r.Handle("/static/*", web.StaticHandler())

	// WebSocket connections require no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start session reaper.
	session.StartReaper(ctx, repo, cfg.SessionReapEvery, hub.CloseSession)
	slog.Info("Session reaper started", "session_ttl", cfg.SessionTTL, "interval", cfg.SessionReapEvery)

	var healthServer *health.Server
	if cfg.GRPCPort != "" {
		healthServer = health.NewServer(checker != nil)
		go func() {
			if err := healthServer.ListenAndServe(cfg.GRPCPort); err != nil {
				slog.Error("gRPC health server failed", "error", err)
			}
		}()
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if healthServer != nil {
		healthServer.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// securityUnavailable is the message shown in place of the URL checker.
func securityUnavailable(cfg *config.Config, err error) string {
	if errors.Is(err, config.ErrMissingAPIKey) {
		return fmt.Sprintf("Google Safe Browsing API key not found in secrets. Please add %s to %s (local) or to the environment.",
			config.APIKeyName, cfg.SecretsPath)
	}
	return "Security Tools are unavailable: " + err.Error()
}

// allowedOrigins restricts CORS to the configured frontend when there is one.
func allowedOrigins(frontendURL string) []string {
	if strings.HasPrefix(frontendURL, "http://") || strings.HasPrefix(frontendURL, "https://") {
		return []string{strings.TrimSuffix(frontendURL, "/")}
	}
	return []string{"*"}
}
