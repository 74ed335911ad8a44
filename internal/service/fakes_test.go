package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/relaypost/relaypost/internal/adapters"
	"github.com/relaypost/relaypost/internal/models"
)

type fakePostRepo struct {
	mu       sync.Mutex
	posts    map[int64]*models.Post
	statuses map[int64]string
	claimed  map[int64]bool
	stamps   map[int64]time.Time
}

func newFakePostRepo(posts ...*models.Post) *fakePostRepo {
	r := &fakePostRepo{
		posts:    make(map[int64]*models.Post),
		statuses: make(map[int64]string),
		claimed:  make(map[int64]bool),
		stamps:   make(map[int64]time.Time),
	}
	for _, p := range posts {
		r.posts[p.ID] = p
		r.statuses[p.ID] = p.Status
	}
	return r
}

func (r *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	post, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	return post, nil
}

func (r *fakePostRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	return nil, errors.New("not used in service tests")
}

func (r *fakePostRepo) Claim(ctx context.Context, id int64, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok || r.claimed[id] {
		return false, nil
	}
	if post.Status != models.PostStatusDraft && post.Status != models.PostStatusScheduled {
		return false, nil
	}
	r.claimed[id] = true
	return true, nil
}

func (r *fakePostRepo) UpdateStatus(ctx context.Context, status string, postID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[postID] = status
	if post, ok := r.posts[postID]; ok {
		post.Status = status
	}
	return nil
}

func (r *fakePostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	post, ok := r.posts[postID]
	return ok && post.UserID == userID, nil
}

func (r *fakePostRepo) StampCleanup(ctx context.Context, postID int64, cleanedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stamps[postID] = cleanedAt
	if post, ok := r.posts[postID]; ok {
		if post.Metadata == nil {
			post.Metadata = make(map[string]string)
		}
		post.Metadata[models.MetadataCleanupKey] = cleanedAt.UTC().Format(time.RFC3339)
	}
	return nil
}

type fakeChannelRepo struct {
	channels []*models.Channel
	err      error
}

func (r *fakeChannelRepo) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	for _, ch := range r.channels {
		if ch.ID == id {
			return ch, nil
		}
	}
	return nil, nil
}

func (r *fakeChannelRepo) ListActiveByIDs(ctx context.Context, userID int64, ids []int64) ([]*models.Channel, error) {
	if r.err != nil {
		return nil, r.err
	}
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []*models.Channel
	for _, ch := range r.channels {
		if wanted[ch.ID] && ch.UserID == userID && ch.IsActive {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeChannelRepo) FirstActiveByPlatform(ctx context.Context, userID int64, platform string) (*models.Channel, error) {
	if r.err != nil {
		return nil, r.err
	}
	var first *models.Channel
	for _, ch := range r.channels {
		if ch.UserID != userID || ch.Platform != platform || !ch.IsActive {
			continue
		}
		if first == nil || ch.CreatedAt.Before(first.CreatedAt) {
			first = ch
		}
	}
	return first, nil
}

func (r *fakeChannelRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.Channel, error) {
	var out []*models.Channel
	for _, ch := range r.channels {
		if ch.UserID == userID && ch.IsActive {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (r *fakeChannelRepo) ListExpiringWithin(ctx context.Context, from, to time.Time) ([]*models.Channel, error) {
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

func (r *fakeChannelRepo) UpdateCredentials(ctx context.Context, id int64, access, refresh string, expiry *time.Time) error {
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

type fakeResultRepo struct {
	mu   sync.Mutex
	rows []*models.PublishResult
}

func (r *fakeResultRepo) Create(ctx context.Context, result *models.PublishResult) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *result
	stored.ID = int64(len(r.rows) + 1)
	r.rows = append(r.rows, &stored)
	return stored.ID, nil
}

func (r *fakeResultRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PublishResult
	for _, row := range r.rows {
		if row.PostID == postID {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeMediaRepo struct {
	assets []*models.MediaAsset
}

func (r *fakeMediaRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAsset, error) {
	var out []*models.MediaAsset
	for _, asset := range r.assets {
		if asset.PostID == postID {
			out = append(out, asset)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (r *fakeMediaRepo) Remove(ctx context.Context, id int64) error {
	for i, asset := range r.assets {
		if asset.ID == id {
			r.assets = append(r.assets[:i], r.assets[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeMediaRepo) ExistsByFileName(ctx context.Context, fileName string) (bool, error) {
	for _, asset := range r.assets {
		if asset.FileName == fileName {
			return true, nil
		}
	}
	return false, nil
}

type fakeStorage struct {
	keys    map[string]bool
	deleted []string
}

func newFakeStorage(keys ...string) *fakeStorage {
	s := &fakeStorage{keys: make(map[string]bool)}
	for _, key := range keys {
		s.keys[key] = true
	}
	return s
}

func (s *fakeStorage) Delete(ctx context.Context, key string) error {
	delete(s.keys, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeStorage) ListKeys(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.keys))
	for key := range s.keys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

type publishCall struct {
	channelID  int64
	credential string
}

type fakeAdapter struct {
	platform  string
	postTypes []string
	outcome   *adapters.PublishOutcome
	err       error
	calls     []publishCall
}

func (a *fakeAdapter) Platform() string    { return a.platform }
func (a *fakeAdapter) PostTypes() []string { return a.postTypes }

func (a *fakeAdapter) Publish(ctx context.Context, req *adapters.PublishRequest) (*adapters.PublishOutcome, error) {
	channelID := int64(0)
	if id, ok := req.ChannelMetadata["channel_id"]; ok && id != "" {
		// tests stash the channel id in metadata to track call order
		for _, c := range id {
			channelID = channelID*10 + int64(c-'0')
		}
	}
	a.calls = append(a.calls, publishCall{channelID: channelID, credential: req.AccessCredential})
	if a.err != nil {
		return nil, a.err
	}
	return a.outcome, nil
}

func (a *fakeAdapter) Refresh(ctx context.Context, ch *models.Channel, access, refresh string) (*adapters.RefreshOutcome, error) {
	return nil, adapters.ErrNoExpiry
}

type fakeCleanup struct {
	scheduled []int64
}

func (c *fakeCleanup) Schedule(postID int64) error {
	c.scheduled = append(c.scheduled, postID)
	return nil
}
