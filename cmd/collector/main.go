package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/Anvita004/transcriptpro/pkg/validator"

	"github.com/Anvita004/transcriptpro/internal/adapter/handler"
	"github.com/Anvita004/transcriptpro/internal/adapter/repository"
	"github.com/Anvita004/transcriptpro/internal/assist"
	"github.com/Anvita004/transcriptpro/internal/bridge"
	"github.com/Anvita004/transcriptpro/internal/bus"
	"github.com/Anvita004/transcriptpro/internal/capture"
	"github.com/Anvita004/transcriptpro/internal/delivery"
	"github.com/Anvita004/transcriptpro/internal/domain/entities"
	"github.com/Anvita004/transcriptpro/internal/domain/repositories"
	"github.com/Anvita004/transcriptpro/internal/hostpage"
	"github.com/Anvita004/transcriptpro/internal/infrastructure/cache"
	"github.com/Anvita004/transcriptpro/internal/infrastructure/database"
	"github.com/Anvita004/transcriptpro/internal/infrastructure/storage"
	"github.com/Anvita004/transcriptpro/internal/session"
	"github.com/Anvita004/transcriptpro/internal/settings"
	"github.com/Anvita004/transcriptpro/internal/tabwatch"
	pkgai "github.com/Anvita004/transcriptpro/pkg/ai"
	"github.com/Anvita004/transcriptpro/pkg/config"
	"github.com/Anvita004/transcriptpro/pkg/token"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Echo instance
	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HideBanner = true
	e.HidePort = false

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// Key-value store: Redis when reachable, in-memory fallback for
	// throwaway runs.
	var kv cache.Store
	redisStore, err := cache.NewRedisStore(&cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory store; captured state will not survive restarts", zap.Error(err))
		kv = cache.NewMemoryStore()
	} else {
		defer redisStore.Close()
		kv = redisStore
	}

	// Optional meeting archive database.
	var archive repositories.MeetingRepository
	if cfg.Database.Enabled {
		db, err := database.NewPostgresDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.CloseDB(db)

		if cfg.Database.AutoMigrate {
			if cfg.Server.Environment == "production" {
				log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
			}
			if err := database.AutoMigrate(db); err != nil {
				log.Fatalf("Failed to run AutoMigrate: %v", err)
			}
		}
		archive = repository.NewMeetingRepository(db)
	}

	// Optional object-store transcript backup.
	var backup *storage.TranscriptBackup
	if cfg.Storage.Enabled {
		backup, err = storage.NewTranscriptBackup(&cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to initialize transcript backup: %v", err)
		}
	}

	// Capture plumbing.
	feed := hostpage.NewFeed(logger)
	transcriptStore := capture.NewStore[entities.TranscriptEntry](kv, cache.KeyTranscript, cfg.Capture.FlushDebounce, logger)
	chatStore := capture.NewStore[entities.ChatEntry](kv, cache.KeyChatMessages, cfg.Capture.FlushDebounce, logger)
	settingsSvc := settings.NewService(kv, cfg, logger)

	// Delivery pipeline.
	files := delivery.NewFileWriter(cfg.Delivery.DownloadDir, logger)
	webhook := delivery.NewWebhookPoster(cfg.Webhook, logger)
	coordinator := delivery.NewCoordinator(kv, files, webhook, settingsSvc, archive, backup, cfg.Delivery.HistorySize, logger)

	// Message bus and its handlers.
	dispatcher := bus.NewDispatcher(logger)
	coordinator.RegisterBusHandlers(dispatcher)

	// Session state machine. Built before the tab watcher so the watcher can
	// end a live session when the bound tab closes.
	variant := hostpage.VariantByName(cfg.Capture.UIVariant)
	controller := session.NewController(feed, variant, transcriptStore, chatStore, kv, settingsSvc, dispatcher, cfg.Capture, logger)

	watcher := tabwatch.NewWatcher(kv, feed, coordinator, controller, logger)
	watcher.RegisterBusHandlers(dispatcher)
	go watcher.Run(rootCtx)

	geminiClient := pkgai.NewGeminiClient(&cfg.AI)
	assistSvc := assist.NewService(coordinator, geminiClient, logger)
	assistSvc.RegisterBusHandlers(dispatcher)

	// Finalize anything a previous run left behind before new captures
	// start.
	tabwatch.RecoverOnStart(rootCtx, kv, coordinator, cfg.Capture.RecoveryTimeout, logger)

	go controller.Run(rootCtx)

	// Optional spool-directory snapshot source, for agents that write files
	// instead of posting HTTP. Start blocks until the context is canceled,
	// so it runs beside the server rather than in front of it.
	if cfg.Capture.SpoolDir != "" {
		spool, err := bridge.NewSpoolSource(cfg.Capture.SpoolDir, feed, logger)
		if err != nil {
			log.Fatalf("Failed to initialize spool source: %v", err)
		}
		defer spool.Stop()
		go func() {
			if err := spool.Start(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("spool source exited", zap.Error(err))
			}
		}()
	}

	// Agent token auth (optional).
	tokens := token.NewManager(cfg.Auth.AgentTokenSecret, cfg.Auth.AgentTokenExpiry)

	// HTTP surface.
	captureHandler := handler.NewCapture(feed, controller, tokens, logger)
	meetingsHandler := handler.NewMeetings(coordinator, dispatcher, archive, logger)
	aiHandler := handler.NewAI(dispatcher, logger)
	settingsHandler := handler.NewSettings(settingsSvc, controller, logger)

	router := handler.NewRouter(cfg, captureHandler, meetingsHandler, aiHandler, settingsHandler, tokens)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		logger.Info("starting collector",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment))

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Push any buffered capture state down before the process exits.
	transcriptStore.Flush(ctx)
	chatStore.Flush(ctx)

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("stopped")
}
