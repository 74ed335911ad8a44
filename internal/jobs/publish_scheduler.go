package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/relaypost/relaypost/internal/models"
	"github.com/relaypost/relaypost/internal/repository"
	"github.com/robfig/cron"
)

// Dispatcher is the slice of the publish service the scheduler loop
// drives; the on-demand HTTP path shares the same implementation.
type Dispatcher interface {
	Dispatch(ctx context.Context, post *models.Post) (string, []*models.PublishResult, error)
}

// PublishScheduler claims due posts on a fixed interval and dispatches
// them sequentially. Ticks never overlap: a tick that finds the previous
// one still running skips itself.
type PublishScheduler struct {
	pr         repository.PostRepository
	dispatcher Dispatcher
	interval   time.Duration
	batchSize  int
	now        func() time.Time

	tickMu  sync.Mutex
	startMu sync.Mutex
	cron    *cron.Cron
}

func NewPublishScheduler(pr repository.PostRepository, dispatcher Dispatcher, interval time.Duration, batchSize int) *PublishScheduler {
	return &PublishScheduler{
		pr:         pr,
		dispatcher: dispatcher,
		interval:   interval,
		batchSize:  batchSize,
		now:        time.Now,
	}
}

// Start is idempotent.
func (s *PublishScheduler) Start() error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.cron != nil {
		return nil
	}

	c := cron.New()
	if err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), s.Tick); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	slog.Info("publish scheduler started", "interval", s.interval.String(), "batch_size", s.batchSize)
	return nil
}

// Stop is idempotent; an in-flight tick runs to completion.
func (s *PublishScheduler) Stop() {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.cron = nil
	slog.Info("publish scheduler stopped")
}

func (s *PublishScheduler) Tick() {
	if !s.tickMu.TryLock() {
		slog.Info("previous publish tick still running, skipping")
		return
	}
	defer s.tickMu.Unlock()

	ctx := context.Background()

	posts, err := s.pr.ClaimDue(ctx, s.now(), s.batchSize)
	if err != nil {
		// Store unavailable: end the tick, the next one retries.
		slog.Error("error fetching due posts", "error", err.Error())
		return
	}

	for _, post := range posts {
		s.process(ctx, post)
	}
}

// process isolates one post's failure from the rest of the batch.
func (s *PublishScheduler) process(ctx context.Context, post *models.Post) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("panic while dispatching post", "post_id", post.ID, "panic", fmt.Sprint(p))
			s.forceFailed(ctx, post.ID)
		}
	}()

	if _, _, err := s.dispatcher.Dispatch(ctx, post); err != nil {
		slog.Error("error dispatching post", "post_id", post.ID, "error", err.Error())
		s.forceFailed(ctx, post.ID)
	}
}

func (s *PublishScheduler) forceFailed(ctx context.Context, postID int64) {
	if err := s.pr.UpdateStatus(ctx, models.PostStatusFailed, postID); err != nil {
		slog.Error("error forcing post to failed", "post_id", postID, "error", err.Error())
	}
}
