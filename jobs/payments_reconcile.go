package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/assetverse/assetverse/internal/payments"
)

// reconcileCutoff leaves freshly opened checkouts alone so the job never
// races a confirmation that is still in flight.
const reconcileCutoff = 30 * time.Minute

// PaymentReconcileHandler settles pending checkouts the client abandoned
// after paying.
func PaymentReconcileHandler(svc *payments.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		settled, err := svc.Reconcile(ctx, reconcileCutoff)
		if settled > 0 {
			logger.Info("reconciled payments", slog.Int("settled", settled))
		}
		if err != nil {
			logger.Warn("payment reconciliation incomplete", slog.Any("error", err))
			return err
		}
		return nil
	}
}
