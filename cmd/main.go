package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/dance-battle/brackets"
	"github.com/Dosada05/dance-battle/config"
	"github.com/Dosada05/dance-battle/db"
	"github.com/Dosada05/dance-battle/handlers"
	"github.com/Dosada05/dance-battle/middleware"
	"github.com/Dosada05/dance-battle/repositories"
	api "github.com/Dosada05/dance-battle/routes"
	"github.com/Dosada05/dance-battle/services"
	"github.com/Dosada05/dance-battle/storage"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("resolution_mode", string(cfg.ResolutionMode)),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	if err := db.EnsureSchema(ctx, dbConn); err != nil {
		logger.Error("failed to apply database schema", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database connection established")

	// Загрузчик файлов (Cloudflare R2) необязателен
	var uploader storage.FileUploader
	r2Config := storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
		Endpoint:        cfg.R2Endpoint,
	}
	if r2Config.Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, r2Config, logger)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("Cloudflare R2 is not configured, image uploads disabled")
	}

	// WebSocket Hub
	wsHub := brackets.NewHub(logger)
	go wsHub.Run(ctx)

	resolver, err := brackets.NewResolver(cfg.ResolutionMode)
	if err != nil {
		logger.Error("failed to create match resolver", slog.Any("error", err))
		os.Exit(1)
	}

	// Инициализация репозиториев
	tx := repositories.NewTransactor(dbConn, logger)
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	judgeRepo := repositories.NewPostgresJudgeRepository(dbConn)
	scoreRepo := repositories.NewPostgresScoreRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	voteRepo := repositories.NewPostgresVoteRepository(dbConn)

	// Инициализация сервисов
	passwordHash := []byte(cfg.AdminPasswordHash)
	if len(passwordHash) == 0 {
		passwordHash, err = services.HashAdminPassword(cfg.AdminPassword)
		if err != nil {
			logger.Error("failed to hash admin password", slog.Any("error", err))
			os.Exit(1)
		}
	}
	authService := services.NewAuthService(passwordHash, cfg.JWTSecretKey, cfg.AdminTokenTTL, logger)
	eventService := services.NewEventService(tx, eventRepo, tournamentRepo, participantRepo, judgeRepo, matchRepo, scoreRepo, voteRepo, logger)
	tournamentService := services.NewTournamentService(tx, eventRepo, tournamentRepo, participantRepo, judgeRepo, matchRepo, scoreRepo, voteRepo, wsHub, logger)
	participantService := services.NewParticipantService(tx, tournamentRepo, participantRepo, judgeRepo, matchRepo, scoreRepo, wsHub, logger)
	preselectionService := services.NewPreselectionService(tx, tournamentRepo, participantRepo, judgeRepo, scoreRepo, wsHub, logger)
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	bracketService := services.NewBracketService(tx, tournamentRepo, participantRepo, matchRepo, voteRepo, rng, wsHub, logger)
	matchService := services.NewMatchService(tx, tournamentRepo, participantRepo, judgeRepo, matchRepo, scoreRepo, voteRepo, resolver, wsHub, logger)
	imageService := services.NewImageService(uploader, logger)

	// Фоновое завершение отбора
	scheduler, err := services.NewPreselectionScheduler(ctx, preselectionService, cfg.PreselectionReconcileInterval, logger)
	if err != nil {
		logger.Error("failed to create preselection scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Error("failed to stop preselection scheduler", slog.Any("error", err))
		}
	}()

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		Events:       handlers.NewEventHandler(eventService),
		Tournaments:  handlers.NewTournamentHandler(tournamentService, bracketService),
		Participants: handlers.NewParticipantHandler(participantService),
		Preselection: handlers.NewPreselectionHandler(preselectionService),
		Matches:      handlers.NewMatchHandler(matchService),
		Uploads:      handlers.NewUploadHandler(imageService),
		WebSocket:    handlers.NewWebSocketHandler(wsHub, tournamentService, logger),
	}, api.Options{
		JWTSecret:      cfg.JWTSecretKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:    middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	})
	logger.Info("routes configured")

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

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			return
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}
	stop()
	logger.Info("application exited")
}
