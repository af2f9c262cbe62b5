package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"gymclass/internal/cache"
	"gymclass/internal/config"
	"gymclass/internal/handler"
	"gymclass/internal/notification"
	"gymclass/internal/repository"
	"gymclass/internal/service"
)

const shutdownTimeout = 10 * time.Second

// App owns every long-lived resource and wires the layers together.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
	server *fiber.App
}

func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	migrator, err := NewMigrator(pool, cfg.MigrationsPath)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init migrator: %w", err)
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	if version, err := migrator.Version(ctx); err == nil {
		logger.Info("database migrated", zap.Int64("version", version))
	}

	store := repository.NewStore(pool)
	users := repository.NewUserRepository(pool)
	entitlements := repository.NewMembershipRepository(pool)
	scheduleCache := cache.New(cfg.CacheTTL)

	notifier, err := notification.NewTelegramNotifier(cfg.TelegramToken, cfg.AdminChatID, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init notifier: %w", err)
	}

	classes := service.NewClassService(store, users, scheduleCache, notifier, logger)
	bookings := service.NewBookingService(store, users, entitlements, scheduleCache, notifier, logger)

	server := fiber.New(fiber.Config{
		AppName:      "gymclass",
		ErrorHandler: handler.ErrorHandler,
	})
	handler.New(classes, bookings, logger).Register(server, func(c *fiber.Ctx) error {
		return pool.Ping(c.Context())
	})

	return &App{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		server: server,
	}, nil
}

// Run serves HTTP until SIGINT/SIGTERM, then shuts down gracefully.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting", zap.String("addr", a.cfg.HTTPAddr))
		errCh <- a.server.Listen(a.cfg.HTTPAddr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		a.pool.Close()
		return fmt.Errorf("http server: %w", err)
	case sig := <-stop:
		a.logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	if err := a.server.ShutdownWithTimeout(shutdownTimeout); err != nil {
		a.logger.Error("http shutdown", zap.Error(err))
	}
	a.pool.Close()
	a.logger.Info("shutdown complete")

	return nil
}
