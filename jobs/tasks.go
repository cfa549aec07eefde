// Package jobs holds the background task definitions and the Asynq worker
// that processes them.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/assetverse/assetverse/internal/notify"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for transactional email.
	TaskTypeSendEmail = "mail:send"
	// TaskTypePaymentReconcile re-checks pending checkouts against the
	// payment provider.
	TaskTypePaymentReconcile = "payments:reconcile"
)

// SendEmailPayload describes one outgoing message.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewPaymentReconcileTask constructs the periodic reconcile task.
func NewPaymentReconcileTask() *asynq.Task {
	return asynq.NewTask(TaskTypePaymentReconcile, nil)
}

// SendEmailHandler delivers queued mail through the configured Mailer.
func SendEmailHandler(mailer notify.Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := mailer.Send(payload.To, payload.Subject, payload.Body); err != nil {
			logger.Warn("send email failed",
				slog.String("to", payload.To), slog.Any("error", err))
			return err
		}
		return nil
	}
}
