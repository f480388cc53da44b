package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campuslink/commons/internal/api"
	"github.com/campuslink/commons/internal/auth"
	"github.com/campuslink/commons/internal/cache"
	"github.com/campuslink/commons/internal/db"
	"github.com/campuslink/commons/internal/service"
	"github.com/campuslink/commons/internal/storage"
	"github.com/campuslink/commons/internal/storage/docstore"
	"github.com/campuslink/commons/pkg/config"
	"github.com/campuslink/commons/pkg/logging"
	"github.com/campuslink/commons/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Commons API Server", zap.String("storage_driver", cfg.Database.Driver))

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer store.Close()

	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	checks := map[string]api.HealthChecker{"storage": store}
	var trending service.TrendingCache
	if redisCache != nil {
		defer redisCache.Close()
		checks["redis"] = redisCache
		trending = redisCache
	}

	issuer := auth.NewIssuer(auth.NewTokenStore(redisCache), cfg.Auth.SessionTTL)
	notifier := service.NewNotifier(store, store)
	services := api.Services{
		Accounts:      service.NewAccountService(store, issuer, cfg.Auth),
		Users:         service.NewUserService(store, store),
		Posts:         service.NewPostService(store, notifier, trending, cfg.Feed),
		Notifications: service.NewNotificationService(store),
	}

	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := api.NewEngine(api.NewRouter(services, checks), cfg.Telemetry.ServiceName)

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// openStore opens the configured storage driver. Postgres schemas are migrated on start.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverEmbedded:
		dcfg := docstore.InMemoryConfig()
		if cfg.Database.DataDir != "" {
			dcfg = docstore.DefaultConfig(cfg.Database.DataDir)
		}
		dcfg.Logger = logging.WithComponent("badger")
		return docstore.Open(dcfg)
	default:
		conn, err := db.New(&cfg.Database, cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := conn.Migrate(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return db.NewStore(conn), nil
	}
}
