package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kas-kecil/kas_kecil/internal/config"
	"github.com/kas-kecil/kas_kecil/internal/ledger"
	"github.com/kas-kecil/kas_kecil/internal/middleware"
	"github.com/kas-kecil/kas_kecil/internal/notification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes, selecting the
// ledger storage backend from configuration.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var (
		store ledger.Store
		cell  ledger.BalanceCell
		ids   ledger.Allocator
	)
	switch d.Cfg.Backend {
	case config.BackendPostgres:
		if d.DB == nil {
			return fmt.Errorf("postgres backend selected but no database connection provided")
		}
		if err := ledger.EnsureSchema(context.Background(), d.DB); err != nil {
			return fmt.Errorf("ensure ledger schema: %w", err)
		}
		store = ledger.NewPostgresStore(d.DB)
		cell = ledger.NewPostgresBalanceCell(d.DB)
		ids = ledger.NewPostgresAllocator(d.DB)
	case config.BackendRedis:
		if d.Cache == nil {
			return fmt.Errorf("redis backend selected but no redis connection provided")
		}
		store = ledger.NewRedisStore(d.Cache)
		cell = ledger.NewRedisBalanceCell(d.Cache)
		ids = ledger.NewRedisAllocator(d.Cache)
	default:
		store = ledger.NewMemoryStore()
		cell = ledger.NewMemoryBalanceCell()
		ids = ledger.NewMemoryAllocator()
	}

	var notifier notification.Notifier = notification.NewLoggerNotifier(d.Logger)
	if len(d.Cfg.KafkaBrokers) > 0 {
		notifier = notification.NewKafkaNotifier(d.Cfg.KafkaBrokers)
	}

	service := ledger.NewService(ids, store, cell, notifier)
	handler := ledger.NewHandler(service)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterLedgerRoutes(api, handler)

	return nil
}
