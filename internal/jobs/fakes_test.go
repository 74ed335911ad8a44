package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/relaypost/relaypost/internal/adapters"
	"github.com/relaypost/relaypost/internal/models"
)

func errClosed() error {
	return errors.New("connection refused")
}

type tickPostRepo struct {
	mu      sync.Mutex
	due     []*models.Post
	claimed map[int64]bool
	failed  []int64
	claims  int
	err     error
}

func newTickPostRepo(due ...*models.Post) *tickPostRepo {
	return &tickPostRepo{due: due, claimed: make(map[int64]bool)}
}

func (r *tickPostRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims++
	if r.err != nil {
		return nil, r.err
	}
	var out []*models.Post
	for _, post := range r.due {
		if r.claimed[post.ID] || len(out) == limit {
			continue
		}
		r.claimed[post.ID] = true
		out = append(out, post)
	}
	return out, nil
}

func (r *tickPostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return nil, errors.New("not used in job tests")
}

func (r *tickPostRepo) Claim(ctx context.Context, id int64, now time.Time) (bool, error) {
	return false, errors.New("not used in job tests")
}

func (r *tickPostRepo) UpdateStatus(ctx context.Context, status string, postID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if status == models.PostStatusFailed {
		r.failed = append(r.failed, postID)
	}
	return nil
}

func (r *tickPostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	return false, errors.New("not used in job tests")
}

func (r *tickPostRepo) StampCleanup(ctx context.Context, postID int64, cleanedAt time.Time) error {
	return errors.New("not used in job tests")
}

type fakeDispatcher struct {
	mu         sync.Mutex
	dispatched []int64
	failOn     map[int64]error
	panicOn    int64
	onDispatch func()
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, post *models.Post) (string, []*models.PublishResult, error) {
	d.mu.Lock()
	d.dispatched = append(d.dispatched, post.ID)
	d.mu.Unlock()
	if d.onDispatch != nil {
		d.onDispatch()
	}
	if d.panicOn != 0 && post.ID == d.panicOn {
		panic("dispatcher blew up")
	}
	if err := d.failOn[post.ID]; err != nil {
		return "", nil, err
	}
	return models.PostStatusPublished, nil, nil
}

type credentialUpdate struct {
	access  string
	refresh string
	expiry  *time.Time
}

type refreshChannelRepo struct {
	channels []*models.Channel
	updates  map[int64]credentialUpdate
	err      error
}

func newRefreshChannelRepo(channels ...*models.Channel) *refreshChannelRepo {
	return &refreshChannelRepo{channels: channels, updates: make(map[int64]credentialUpdate)}
}

func (r *refreshChannelRepo) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	for _, ch := range r.channels {
		if ch.ID == id {
			return ch, nil
		}
	}
	return nil, nil
}

func (r *refreshChannelRepo) ListActiveByIDs(ctx context.Context, userID int64, ids []int64) ([]*models.Channel, error) {
	return nil, errors.New("not used in job tests")
}

func (r *refreshChannelRepo) FirstActiveByPlatform(ctx context.Context, userID int64, platform string) (*models.Channel, error) {
	return nil, errors.New("not used in job tests")
}

func (r *refreshChannelRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.Channel, error) {
	var out []*models.Channel
	for _, ch := range r.channels {
		if ch.UserID == userID && ch.IsActive {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (r *refreshChannelRepo) ListExpiringWithin(ctx context.Context, from, to time.Time) ([]*models.Channel, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []*models.Channel
	for _, ch := range r.channels {
		if !ch.IsActive || ch.CredentialExpiry == nil {
			continue
		}
		if ch.CredentialExpiry.After(from) && !ch.CredentialExpiry.After(to) {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (r *refreshChannelRepo) UpdateCredentials(ctx context.Context, id int64, access, refresh string, expiry *time.Time) error {
	r.updates[id] = credentialUpdate{access: access, refresh: refresh, expiry: expiry}
	for _, ch := range r.channels {
		if ch.ID != id {
			continue
		}
		if access != "" {
			ch.AccessCredential = access
		}
		if refresh != "" {
			ch.RefreshCredential = refresh
		}
		if expiry != nil {
			ch.CredentialExpiry = expiry
		}
		return nil
	}
	return errors.New("no rows affected; channel may not exist")
}

type fakeAuditRepo struct {
	rows []*models.RefreshAudit
}

func (r *fakeAuditRepo) Create(ctx context.Context, audit *models.RefreshAudit) error {
	r.rows = append(r.rows, audit)
	return nil
}

type refreshAdapter struct {
	platform string
	outcome  *adapters.RefreshOutcome
	err      error
	received []string
}

func (a *refreshAdapter) Platform() string    { return a.platform }
func (a *refreshAdapter) PostTypes() []string { return []string{models.PostTypeText} }

func (a *refreshAdapter) Publish(ctx context.Context, req *adapters.PublishRequest) (*adapters.PublishOutcome, error) {
	return nil, errors.New("not used in job tests")
}

func (a *refreshAdapter) Refresh(ctx context.Context, ch *models.Channel, access, refresh string) (*adapters.RefreshOutcome, error) {
	a.received = append(a.received, access)
	if a.err != nil {
		return nil, a.err
	}
	return a.outcome, nil
}
