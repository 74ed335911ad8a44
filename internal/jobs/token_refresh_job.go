package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/relaypost/relaypost/internal/adapters"
	"github.com/relaypost/relaypost/internal/models"
	"github.com/relaypost/relaypost/internal/repository"
	"github.com/relaypost/relaypost/pkg/vault"
	"github.com/robfig/cron"
)

// TokenRefreshJob proactively renews channel credentials that expire
// inside the lookahead window. Already-expired credentials are left to
// the manual refresh-all path. Channels are refreshed one at a time with
// a fixed delay between calls to stay under provider rate limits.
type TokenRefreshJob struct {
	cr        repository.ChannelRepository
	audit     repository.RefreshAuditRepository
	registry  *adapters.Registry
	vault     *vault.Vault
	interval  time.Duration
	lookahead time.Duration
	delay     time.Duration
	now       func() time.Time
	sleep     func(time.Duration)

	startMu sync.Mutex
	cron    *cron.Cron
}

func NewTokenRefreshJob(
	cr repository.ChannelRepository,
	audit repository.RefreshAuditRepository,
	registry *adapters.Registry,
	v *vault.Vault,
	interval, lookahead, delay time.Duration) *TokenRefreshJob {
	return &TokenRefreshJob{
		cr:        cr,
		audit:     audit,
		registry:  registry,
		vault:     v,
		interval:  interval,
		lookahead: lookahead,
		delay:     delay,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

func (j *TokenRefreshJob) Start() error {
	j.startMu.Lock()
	defer j.startMu.Unlock()

	if j.cron != nil {
		return nil
	}

	c := cron.New()
	if err := c.AddFunc(fmt.Sprintf("@every %s", j.interval), j.RefreshTokens); err != nil {
		return err
	}
	c.Start()
	j.cron = c
	slog.Info("token refresh job started", "interval", j.interval.String(), "lookahead", j.lookahead.String())
	return nil
}

func (j *TokenRefreshJob) Stop() {
	j.startMu.Lock()
	defer j.startMu.Unlock()

	if j.cron == nil {
		return
	}
	j.cron.Stop()
	j.cron = nil
	slog.Info("token refresh job stopped")
}

func (j *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()
	now := j.now()

	channels, err := j.cr.ListExpiringWithin(ctx, now, now.Add(j.lookahead))
	if err != nil {
		slog.Error("error listing expiring channels", "error", err.Error())
		return
	}

	j.refreshSequentially(ctx, channels)
}

// RefreshAll is the manual recovery path: it renews every credential the
// user has, including already-expired ones the hourly tick skips.
func (j *TokenRefreshJob) RefreshAll(ctx context.Context, userID int64) (int, error) {
	channels, err := j.cr.ListByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}

	var withExpiry []*models.Channel
	for _, ch := range channels {
		if ch.CredentialExpiry != nil {
			withExpiry = append(withExpiry, ch)
		}
	}

	return j.refreshSequentially(ctx, withExpiry), nil
}

func (j *TokenRefreshJob) refreshSequentially(ctx context.Context, channels []*models.Channel) int {
	refreshed := 0
	for i, ch := range channels {
		if i > 0 {
			j.sleep(j.delay)
		}
		if err := j.refreshChannel(ctx, ch); err != nil {
			j.recordFailure(ctx, ch, err)
			continue
		}
		refreshed++
	}
	return refreshed
}

func (j *TokenRefreshJob) refreshChannel(ctx context.Context, ch *models.Channel) error {
	adapter, ok := j.registry.Adapter(ch.Platform)
	if !ok {
		return adapters.NewRefreshError(ch.Platform, "no adapter registered")
	}

	accessCredential, err := j.vault.Decrypt(ch.AccessCredential)
	if err != nil {
		return adapters.NewRefreshError(ch.Platform, "error decrypting access credential: %v", err)
	}
	var refreshCredential string
	if ch.RefreshCredential != "" {
		refreshCredential, err = j.vault.Decrypt(ch.RefreshCredential)
		if err != nil {
			return adapters.NewRefreshError(ch.Platform, "error decrypting refresh credential: %v", err)
		}
	}

	outcome, err := adapter.Refresh(ctx, ch, accessCredential, refreshCredential)
	if errors.Is(err, adapters.ErrNoExpiry) {
		slog.Info("credential does not expire, skipping", "channel_id", ch.ID, "platform", ch.Platform)
		return nil
	}
	if err != nil {
		return err
	}

	encryptedAccess, err := j.vault.Encrypt(outcome.AccessCredential)
	if err != nil {
		return err
	}
	var encryptedRefresh string
	if outcome.RefreshCredential != "" {
		encryptedRefresh, err = j.vault.Encrypt(outcome.RefreshCredential)
		if err != nil {
			return err
		}
	}

	expiry := outcome.Expiry
	if err := j.cr.UpdateCredentials(ctx, ch.ID, encryptedAccess, encryptedRefresh, &expiry); err != nil {
		return err
	}

	slog.Info("credential refreshed", "channel_id", ch.ID, "platform", ch.Platform, "expiry", expiry)
	return nil
}

// recordFailure writes an audit row and leaves the channel unchanged so
// the next tick retries it until the credential actually expires.
func (j *TokenRefreshJob) recordFailure(ctx context.Context, ch *models.Channel, refreshErr error) {
	slog.Info("unable to refresh credential",
		"channel_id", ch.ID, "platform", ch.Platform, "error", refreshErr.Error())

	id, err := gonanoid.New()
	if err != nil {
		slog.Error("error generating audit id", "error", err.Error())
		return
	}

	audit := &models.RefreshAudit{
		ID:           id,
		ChannelID:    ch.ID,
		Platform:     ch.Platform,
		ErrorMessage: refreshErr.Error(),
	}
	if err := j.audit.Create(ctx, audit); err != nil {
		slog.Error("error saving refresh audit", "channel_id", ch.ID, "error", err.Error())
	}
}
