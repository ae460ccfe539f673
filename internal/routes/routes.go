package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ile-bank/ile_bank/internal/analytics"
	"github.com/ile-bank/ile_bank/internal/auth"
	"github.com/ile-bank/ile_bank/internal/config"
	"github.com/ile-bank/ile_bank/internal/confirm"
	"github.com/ile-bank/ile_bank/internal/funding"
	"github.com/ile-bank/ile_bank/internal/identity"
	"github.com/ile-bank/ile_bank/internal/ledger"
	"github.com/ile-bank/ile_bank/internal/middleware"
	"github.com/ile-bank/ile_bank/internal/notification"
	"github.com/ile-bank/ile_bank/internal/payout"
	"github.com/ile-bank/ile_bank/internal/processor"
	"github.com/ile-bank/ile_bank/internal/savings"
	"github.com/ile-bank/ile_bank/internal/transfer"
	"github.com/ile-bank/ile_bank/internal/wallet"
	"github.com/ile-bank/ile_bank/internal/webhook"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Notifier notification.Notifier // nil falls back to the logging notifier
	Logger   *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	// Health
	RegisterHealthRoutes(app, d)

	// Storage backends
	var ledgerBackend ledger.Ledger
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
	}
	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}
	var inbox notification.Repository
	if d.DB != nil {
		inbox = notification.NewPostgresRepository(d.DB)
	} else {
		inbox = notification.NewMemoryInbox()
	}
	var pendingStore confirm.Store
	if d.Cache != nil {
		pendingStore = confirm.NewRedisStore(d.Cache)
	} else {
		pendingStore = confirm.NewMemoryStore()
	}

	// Outbound connectors
	notifier := d.Notifier
	if notifier == nil {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}
	dispatcher := notification.NewDispatcher(inbox, notifier, d.Logger)

	var proc processor.Client
	if d.Cfg.ProcessorSecret != "" && !d.Cfg.IsDev() {
		proc = processor.NewHTTPClient(d.Cfg.ProcessorBaseURL, d.Cfg.ProcessorSecret)
	} else {
		proc = processor.NewStaticClient()
	}

	// Services and handlers
	identitySvc := identity.NewService(identityRepo, ledgerBackend)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	authHandler := auth.NewHandler(identitySvc, authSvc)
	walletSvc := wallet.NewService(identityRepo, ledgerBackend)
	walletHandler := wallet.NewHandler(walletSvc)
	transferSvc := transfer.NewService(identitySvc, ledgerBackend, pendingStore, dispatcher, d.Logger)
	transferHandler := transfer.NewHandler(transferSvc)
	savingsSvc := savings.NewService(identitySvc, ledgerBackend, dispatcher, d.Logger)
	savingsHandler := savings.NewHandler(savingsSvc)
	payoutSvc := payout.NewService(identitySvc, ledgerBackend, proc, dispatcher, d.Logger)
	payoutHandler := payout.NewHandler(payoutSvc)
	fundingSvc := funding.NewService(identitySvc, ledgerBackend, proc, dispatcher, d.Cfg.FrontendURL, d.Logger)
	fundingHandler := funding.NewHandler(fundingSvc)
	analyticsSvc := analytics.NewService(ledgerBackend, inbox, transferSvc, d.Cfg.AnalyticsURL, d.Logger)
	analyticsHandler := analytics.NewHandler(analyticsSvc)
	webhookHandler := webhook.NewHandler(d.Cfg.ProcessorSecret, ledgerBackend, dispatcher, d.Logger)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes. The webhook authenticates by signature, not by token,
	// and must stay outside the idempotency middleware: the processor does
	// not send Idempotency-Key, and settlement is already idempotent by
	// ledger reference.
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)
	RegisterWebhookRoutes(api, webhookHandler)

	// Replaying a money-moving request must not move money twice.
	var idem fiber.Handler
	if d.Cache != nil {
		idem = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}

	// Protected routes
	jwtmw := middleware.JWTAuth(authSvc)
	protected := api.Group("", jwtmw, middleware.Audit(d.Logger))
	protected.Post("/auth/logout", authHandler.Logout)
	RegisterProfileRoutes(protected, identitySvc)
	RegisterWalletRoutes(protected, walletHandler)
	RegisterTransferRoutes(protected, transferHandler, idem)
	RegisterSavingsRoutes(protected, savingsHandler, idem)
	RegisterPayoutRoutes(protected, payoutHandler, idem)
	RegisterFundingRoutes(protected, fundingHandler, idem, d.Cfg.IsDev())
	RegisterNotificationRoutes(protected, inbox)
	RegisterAnalyticsRoutes(protected, analyticsHandler)

	return nil
}

// guarded prepends the idempotency middleware when it is configured.
func guarded(idem fiber.Handler, h fiber.Handler) []fiber.Handler {
	if idem == nil {
		return []fiber.Handler{h}
	}
	return []fiber.Handler{idem, h}
}
