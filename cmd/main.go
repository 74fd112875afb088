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

	"github.com/getsuraikai/kyudo-tournament/config"
	"github.com/getsuraikai/kyudo-tournament/db"
	"github.com/getsuraikai/kyudo-tournament/handlers"
	"github.com/getsuraikai/kyudo-tournament/live"
	"github.com/getsuraikai/kyudo-tournament/repositories"
	"github.com/getsuraikai/kyudo-tournament/routes"
	"github.com/getsuraikai/kyudo-tournament/services"
	"github.com/getsuraikai/kyudo-tournament/storage"

	_ "github.com/lib/pq"
)

const schedulerInterval = 30 * time.Second // How often the status scheduler runs

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

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
	logger.Info("database connection established")

	// Инициализация загрузчика файлов (Cloudflare R2, опционально)
	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewR2Uploader(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("R2 uploader initialized")
	} else {
		logger.Info("R2 not configured, file uploads disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	archerRepo := repositories.NewPostgresArcherRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	rosterRepo := repositories.NewPostgresRosterRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	seriesRepo := repositories.NewPostgresSeriesRepository(dbConn)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	archerService := services.NewArcherService(archerRepo, uploader, logger)
	tournamentService := services.NewTournamentService(
		dbConn,
		tournamentRepo,
		participantRepo,
		teamRepo,
		rosterRepo,
		matchRepo,
		seriesRepo,
		uploader,
		wsHub,
		logger,
	)
	participantService := services.NewParticipantService(dbConn, tournamentRepo, participantRepo, archerRepo, logger)
	teamService := services.NewTeamService(dbConn, tournamentRepo, teamRepo, rosterRepo, archerRepo, logger)
	matchService := services.NewMatchService(dbConn, matchRepo, seriesRepo, tournamentRepo, participantRepo, teamRepo, rosterRepo, wsHub)
	seriesService := services.NewSeriesService(dbConn, matchRepo, seriesRepo, archerRepo, wsHub)
	logger.Info("services initialized")

	// Планировщик автоматического перевода турниров в статус live
	go func() {
		ticker := time.NewTicker(schedulerInterval)
		defer ticker.Stop()
		logger.Info("tournament status scheduler started", slog.Duration("interval", schedulerInterval))

		// Run once immediately at startup, then on ticker.
		if err := tournamentService.AutoUpdateTournamentStatusesByDates(context.Background()); err != nil {
			logger.Error("scheduler: initial run failed", slog.Any("error", err))
		}

		for range ticker.C {
			if err := tournamentService.AutoUpdateTournamentStatusesByDates(context.Background()); err != nil {
				logger.Error("scheduler: periodic run failed", slog.Any("error", err))
			}
		}
	}()

	// Инициализация обработчиков HTTP и маршрутов
	router := routes.InitRoutes(routes.Handlers{
		Archer:     handlers.NewArcherHandler(archerService),
		Tournament: handlers.NewTournamentHandler(tournamentService, participantService, teamService, matchService),
		Team:       handlers.NewTeamHandler(teamService),
		Match:      handlers.NewMatchHandler(matchService, seriesService),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, logger),
	}, cfg.CORSAllowedOrigins)
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
			os.Exit(1)
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
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
