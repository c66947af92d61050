package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/paylane-hq/paylane/internal/shared"
)

// idempotencyRetention is how long consumed idempotency keys stay around.
const idempotencyRetention = 24 * time.Hour

// NewMaintenanceSweepHandler returns the handler for the periodic cleanup
// task. It removes idempotency keys past their retention window.
func NewMaintenanceSweepHandler(store *shared.IdempotencyStore, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := store.Cleanup(ctx, idempotencyRetention); err != nil {
			logger.Error("idempotency cleanup", slog.Any("error", err))
			return err
		}
		return nil
	}
}
