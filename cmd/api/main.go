package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/account-portal/internal/api/http"
	"github.com/spec-kit/account-portal/internal/api/http/handlers"
	"github.com/spec-kit/account-portal/internal/auth"
	"github.com/spec-kit/account-portal/internal/config"
	"github.com/spec-kit/account-portal/internal/events"
	"github.com/spec-kit/account-portal/internal/observability"
	"github.com/spec-kit/account-portal/internal/persistence"
	"github.com/spec-kit/account-portal/internal/repository"
	"github.com/spec-kit/account-portal/internal/service"
	"github.com/spec-kit/account-portal/internal/validation"
	"github.com/spec-kit/account-portal/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := persistence.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := persistence.RunMigrations(ctx, db, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	healthDeps := map[string]handlers.Pinger{"database": db}

	var sessionStorage, csrfStorage fiber.Storage
	if cfg.Session.Storage == "redis" {
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		sessionStorage = redis.Storage("session:")
		csrfStorage = redis.Storage("csrf:")
		healthDeps["redis"] = redis
	}

	cookieKey := cfg.Session.SecretKey
	if cookieKey == "" {
		cookieKey = encryptcookie.GenerateKey()
		logger.Warn("SESSION_SECRET_KEY not set; using an ephemeral key, sessions will not survive a restart")
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	hasher, err := auth.NewHasher(cfg.Auth)
	if err != nil {
		logger.Fatal("failed to init password hasher", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db.Gorm)
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   userRepo,
		Hasher:     hasher,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	store := auth.NewSessionStore(cfg.Session, sessionStorage)
	sessions := auth.NewSessionManager(store, userRepo, auth.SessionOptions{MaxLifetime: cfg.Session.MaxLifetime()})

	app := httptransport.NewApp(httptransport.ServerConfig{
		AppName:      cfg.App.Name,
		Timeout:      cfg.App.RequestTimeout(),
		CookieKey:    cookieKey,
		CookieSecure: cfg.Session.CookieSecure,
		CSRFStorage:  csrfStorage,
		Logger:       logger,
		Metrics:      metrics,
		Sessions:     sessions,
		Auth:         handlers.NewAuthHandler(authService, sessions, validation.New(), logger),
		Health:       handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps, metrics),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("db_driver", cfg.Database.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
