package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/matchdesk/clock"
	"github.com/Dosada05/matchdesk/db"
	"github.com/Dosada05/matchdesk/handlers"
	"github.com/Dosada05/matchdesk/realtime"
	"github.com/Dosada05/matchdesk/repositories"
	api "github.com/Dosada05/matchdesk/routes"
	"github.com/Dosada05/matchdesk/services"
	"github.com/Dosada05/matchdesk/storage"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 15 * time.Second
	requestTimeout  = 30 * time.Second
)

func newServeCmd() *cobra.Command {
	var migrateOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), migrateOnStart)
		},
	}
	cmd.Flags().BoolVar(&migrateOnStart, "migrate", true, "Apply pending migrations before serving")
	return cmd
}

func runServer(ctx context.Context, migrateOnStart bool) error {
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := openDatabase()
	if err != nil {
		return err
	}
	defer closeDatabase(dbConn)

	if migrateOnStart {
		if err := db.RunMigrations(dbConn); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Инициализация WebSocket Hub
	wsHub := realtime.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	// Рассылка событий между инстансами через Redis (опционально)
	var publisher services.EventPublisher = wsHub
	if cfg.RedisURL != "" {
		bridge, err := realtime.NewRedisBridge(cfg.RedisURL, wsHub, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() {
			if err := bridge.Close(); err != nil {
				logger.Error("failed to close redis bridge", slog.Any("error", err))
			}
		}()
		if err := bridge.Start(ctx); err != nil {
			return fmt.Errorf("failed to start redis bridge: %w", err)
		}
		publisher = bridge
		logger.Info("redis event bridge started")
	}

	// Архив финализированных результатов в Cloudflare R2 (опционально)
	var store storage.ObjectStore
	if r2 := cfg.R2(); r2.Configured() {
		store, err = storage.NewR2Store(ctx, r2)
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 store: %w", err)
		}
		logger.Info("Cloudflare R2 result archive enabled", slog.String("bucket", r2.BucketName))
	}

	router := newRouter(dbConn, publisher, store, wsHub)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		// Hub закрывает websocket-соединения, которые Shutdown не отслеживает.
		cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
	return nil
}

// newRouter собирает репозитории, сервисы и обработчики.
func newRouter(dbConn *sqlx.DB, publisher services.EventPublisher, store storage.ObjectStore, wsHub *realtime.Hub) http.Handler {
	clk := clock.New()

	// Инициализация репозиториев
	tournamentRepo := repositories.NewTournamentRepository(dbConn)
	roundRepo := repositories.NewRoundRepository(dbConn)
	matchRepo := repositories.NewMatchRepository(dbConn)
	teamRepo := repositories.NewTeamRepository(dbConn)
	identityRepo := repositories.NewIdentityRepository(dbConn)
	participantRepo := repositories.NewParticipantRepository(dbConn)

	// Инициализация сервисов
	archiver := services.NewResultArchiver(store, logger)
	authService := services.NewAuthService(identityRepo, teamRepo, cfg.AllowAdminSignup, clk, logger)
	tournamentService := services.NewTournamentService(tournamentRepo, roundRepo, matchRepo, teamRepo, clk, logger)
	roundService := services.NewRoundService(dbConn, roundRepo, tournamentRepo, publisher, clk, logger)
	matchService := services.NewMatchService(dbConn, matchRepo, roundRepo, teamRepo, tournamentRepo, publisher, archiver, clk, logger)
	resultService := services.NewResultService(dbConn, matchRepo, publisher, archiver, clk, logger)
	teamService := services.NewTeamService(teamRepo, identityRepo, tournamentRepo, clk, logger)
	participantService := services.NewParticipantService(participantRepo, teamRepo, clk, logger)

	// Инициализация обработчиков HTTP
	h := api.Handlers{
		Auth:        handlers.NewAuthHandler(authService, cfg.JWTSecretKey, cfg.TokenTTL, clk),
		Tournament:  handlers.NewTournamentHandler(tournamentService),
		Round:       handlers.NewRoundHandler(roundService),
		Match:       handlers.NewMatchHandler(matchService),
		Team:        handlers.NewTeamHandler(teamService),
		Participant: handlers.NewParticipantHandler(participantService),
		TeamPortal:  handlers.NewTeamPortalHandler(teamService, matchService, resultService, participantService),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins, tournamentService, teamService, matchService),
		Health:      handlers.NewHealthHandler(dbConn),
	}

	router := chi.NewRouter()
	api.SetupRoutes(router, h, api.Options{
		JWTSecret:      cfg.JWTSecretKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: requestTimeout,
	})
	return router
}
