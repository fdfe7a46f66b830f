package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/skillnotes-be/internal/api"
	"github.com/isdelr/skillnotes-be/internal/auth"
	"github.com/isdelr/skillnotes-be/internal/config"
	"github.com/isdelr/skillnotes-be/internal/database"
	"github.com/isdelr/skillnotes-be/internal/logger"
	"github.com/isdelr/skillnotes-be/internal/pdf"
	"github.com/isdelr/skillnotes-be/internal/services"
	"github.com/isdelr/skillnotes-be/internal/sessions"
	"github.com/isdelr/skillnotes-be/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up database
	db, err := database.New(ctx, cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	store, redisClient, err := newSessionStore(ctx, cfg, db)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.SessionStore).Msg("Failed to initialize session store")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Expired sessions are removed in the background
	pruner, err := sessions.NewPruner(store, sessions.DefaultPruneSpec)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule session pruning")
	}
	pruner.Start()

	// Set up WebSocket Hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := websocket.NewHub()
	go hub.Run(hubCtx)

	// Set up services
	noteService := services.NewNoteService(db, hub)
	userService := services.NewUserService(db, services.DemoNoteSeeder(noteService))
	exportService := services.NewExportService(noteService, pdf.NewChromeRenderer(cfg.ChromePath, cfg.PDFTimeout))

	sessionManager := auth.NewSessionManager(store, cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure)

	var github *auth.GitHubProvider
	if cfg.GitHub.Enabled() {
		github = auth.NewGitHubProvider(cfg.GitHub, cfg.SessionSecret, cfg.CookieSecure)
	} else {
		log.Info().Msg("GitHub sign-in disabled, GITHUB_CLIENT_ID or GITHUB_CLIENT_SECRET not set")
	}

	var limiter *api.IPRateLimiter
	if cfg.AuthRate > 0 {
		limiter = api.NewIPRateLimiter(cfg.AuthRate, cfg.AuthBurst)
	}

	// Set up router
	router := api.NewRouter(api.Dependencies{
		DB:          db,
		Sessions:    sessionManager,
		GitHub:      github,
		Users:       userService,
		Notes:       noteService,
		Exports:     exportService,
		Hub:         hub,
		AuthLimiter: limiter,
		CORSOrigins: cfg.CORSOrigins,
		PublicDir:   cfg.PublicDir,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("url", cfg.BaseURL).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	pruner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	stopHub()

	log.Info().Msg("Server exiting")
}

// newSessionStore selects the session backend. The returned client is nil
// unless the store is redis.
func newSessionStore(ctx context.Context, cfg *config.Config, db *sql.DB) (sessions.Store, *redis.Client, error) {
	if cfg.SessionStore != "redis" {
		return sessions.NewPostgresStore(db), nil, nil
	}
	client, err := sessions.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return sessions.NewRedisStore(client), client, nil
}
