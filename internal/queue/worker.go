package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/relaypost/relaypost/internal/service"
)

type Worker struct {
	retention *service.RetentionService
}

func NewWorker(retention *service.RetentionService) *Worker {
	return &Worker{retention: retention}
}

// HandleMediaCleanupTask returns errors to asynq so failed cleanups are
// retried; the retention service itself is idempotent.
func (w *Worker) HandleMediaCleanupTask(ctx context.Context, task *asynq.Task) error {
	var payload MediaCleanupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return w.retention.CleanupPost(ctx, payload.PostID)
}
