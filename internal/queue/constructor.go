package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// CleanupScheduler enqueues media cleanup as a delayed asynq task. The
// task lives in Redis, so a process restart between publish and cleanup
// does not lose it. The deterministic task id makes re-scheduling the
// same post a no-op.
type CleanupScheduler struct {
	client *asynq.Client
	delay  time.Duration
}

func NewCleanupScheduler(client *asynq.Client, delay time.Duration) *CleanupScheduler {
	return &CleanupScheduler{client: client, delay: delay}
}

func (s *CleanupScheduler) Schedule(postID int64) error {
	taskPayload, err := json.Marshal(MediaCleanupPayload{PostID: postID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeMediaCleanup, taskPayload)

	_, err = s.client.Enqueue(task,
		asynq.ProcessIn(s.delay),
		asynq.TaskID(fmt.Sprintf("%s:%d", TaskTypeMediaCleanup, postID)),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		slog.Info("media cleanup already scheduled", "post_id", postID)
		return nil
	}
	if err != nil {
		return err
	}

	slog.Info("media cleanup scheduled", "post_id", postID, "delay", s.delay.String())
	return nil
}
