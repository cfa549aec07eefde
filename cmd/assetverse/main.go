package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/assetverse/assetverse/internal/accessgate"
	"github.com/assetverse/assetverse/internal/accounts"
	"github.com/assetverse/assetverse/internal/app"
	"github.com/assetverse/assetverse/internal/assets"
	"github.com/assetverse/assetverse/internal/auth"
	"github.com/assetverse/assetverse/internal/dashboard"
	"github.com/assetverse/assetverse/internal/employees"
	"github.com/assetverse/assetverse/internal/integrations/checkout"
	"github.com/assetverse/assetverse/internal/integrations/imagehost"
	"github.com/assetverse/assetverse/internal/observability"
	"github.com/assetverse/assetverse/internal/payments"
	"github.com/assetverse/assetverse/internal/platform/cache"
	"github.com/assetverse/assetverse/internal/platform/db"
	"github.com/assetverse/assetverse/internal/platform/gateway"
	"github.com/assetverse/assetverse/internal/querycache"
	"github.com/assetverse/assetverse/internal/requests"
	"github.com/assetverse/assetverse/internal/session"
	"github.com/assetverse/assetverse/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := db.Migrate(cfg.PGDSN); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, 0)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessions := session.NewManager(redisClient, cfg.SessionSecret, cfg.SessionTTL)
	queryCache := querycache.New(redisClient, cfg.CacheTTL, logger)
	metrics := observability.NewMetrics()

	// Outbound gateways. The image host authenticates via a form field, so
	// its gateway carries no token; the checkout provider takes the secret
	// key as a bearer credential.
	imageGW := gateway.New(cfg.ImageHostURL, gateway.StaticToken(""), gateway.Options{
		RetryMax: 2,
		Logger:   logger,
	})
	checkoutGW := gateway.New(cfg.CheckoutURL, gateway.StaticToken(cfg.CheckoutSecret), gateway.Options{
		RetryMax: 2,
		Logger:   logger,
		OnAuthFailure: func(ctx context.Context, status int) {
			logger.Error("checkout credential rejected, payments will fail until it is rotated",
				slog.Int("status", status))
		},
	})
	uploader := imagehost.NewClient(imageGW, cfg.ImageHostKey)
	provider := checkout.NewClient(checkoutGW)

	queue := jobs.NewClient(asynq.RedisClientOpt{
		Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB,
	})
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()

	accountRepo := accounts.NewRepository(pool)
	accountService := accounts.NewService(accountRepo)

	authService := auth.NewService(accountRepo, accountService, sessions,
		uploader, redisClient, queue, logger, cfg.AppBaseURL)
	authHandler := auth.NewHandler(logger, authService)

	assetRepo := assets.NewRepository(pool)
	assetService := assets.NewService(assetRepo, queryCache)
	assetHandler := assets.NewHandler(logger, assetService)

	requestRepo := requests.NewRepository(pool)
	requestService := requests.NewService(requestRepo, assetRepo, queryCache)
	requestHandler := requests.NewHandler(logger, requestService)

	employeeRepo := employees.NewRepository(pool)
	employeeService := employees.NewService(employeeRepo)
	employeeHandler := employees.NewHandler(logger, employeeService)

	dashboardService := dashboard.NewService(assetRepo, requestRepo, employeeRepo)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService)

	paymentRepo := payments.NewRepository(pool)
	paymentService := payments.NewService(paymentRepo, accountRepo, provider)
	paymentHandler := payments.NewHandler(logger, paymentService)

	gate := accessgate.Gate{
		Resolver:  accountService,
		Logger:    logger,
		LoginPath: "/api/auth/login",
		OnDeny:    metrics.GateDenial,
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Sessions:         sessions,
		Gate:             gate,
		AuthHandler:      authHandler,
		AssetsHandler:    assetHandler,
		DashboardHandler: dashboardHandler,
		RequestsHandler:  requestHandler,
		EmployeesHandler: employeeHandler,
		PaymentsHandler:  paymentHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
