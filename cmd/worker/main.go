package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/assetverse/assetverse/internal/accounts"
	"github.com/assetverse/assetverse/internal/app"
	"github.com/assetverse/assetverse/internal/integrations/checkout"
	"github.com/assetverse/assetverse/internal/notify"
	"github.com/assetverse/assetverse/internal/payments"
	"github.com/assetverse/assetverse/internal/platform/db"
	"github.com/assetverse/assetverse/internal/platform/gateway"
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

	pool, err := db.New(ctx, cfg.PGDSN, 0)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	checkoutGW := gateway.New(cfg.CheckoutURL, gateway.StaticToken(cfg.CheckoutSecret), gateway.Options{
		RetryMax: 2,
		Logger:   logger,
		OnAuthFailure: func(ctx context.Context, status int) {
			logger.Error("checkout credential rejected during reconcile",
				slog.Int("status", status))
		},
	})
	provider := checkout.NewClient(checkoutGW)

	paymentService := payments.NewService(
		payments.NewRepository(pool),
		accounts.NewRepository(pool),
		provider,
	)

	mailer := notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort,
		cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{
			Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB,
		},
		Logger: logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: jobs.SendEmailHandler(mailer, logger)},
			{Type: jobs.TaskTypePaymentReconcile, Handler: jobs.PaymentReconcileHandler(paymentService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/30 * * * *", Task: jobs.NewPaymentReconcileTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker shut down")
}
