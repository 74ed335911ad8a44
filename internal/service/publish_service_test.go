package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/relaypost/relaypost/internal/adapters"
	"github.com/relaypost/relaypost/internal/models"
	"github.com/relaypost/relaypost/pkg/vault"
)

func testVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.New("test-master-secret", "test")
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	return v
}

func encrypted(t *testing.T, v *vault.Vault, plaintext string) string {
	t.Helper()
	ciphertext, err := v.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("vault.Encrypt: %v", err)
	}
	return ciphertext
}

func publishChannel(id, userID int64, platform, credential string) *models.Channel {
	return &models.Channel{
		ID:               id,
		UserID:           userID,
		Platform:         platform,
		AccessCredential: credential,
		Metadata:         map[string]string{"channel_id": strconv.FormatInt(id, 10)},
		IsActive:         true,
		CreatedAt:        time.Date(2026, 1, int(id), 0, 0, 0, 0, time.UTC),
	}
}

func newTestPublishService(
	posts *fakePostRepo,
	channels *fakeChannelRepo,
	results *fakeResultRepo,
	media *fakeMediaRepo,
	registry *adapters.Registry,
	v *vault.Vault,
	cleanup CleanupScheduler) *publishService {
	return &publishService{
		pr:       posts,
		results:  results,
		ma:       media,
		resolver: NewChannelResolver(channels),
		registry: registry,
		vault:    v,
		cleanup:  cleanup,
		now:      func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestDispatchMixedOutcomeIsPartial(t *testing.T) {
	v := testVault(t)
	post := &models.Post{
		ID:        1,
		UserID:    7,
		PostType:  models.PostTypePhoto,
		Content:   "hello",
		Status:    models.PostStatusScheduled,
		Platforms: []string{"instagram", "tiktok"},
	}
	posts := newFakePostRepo(post)
	channels := &fakeChannelRepo{channels: []*models.Channel{
		publishChannel(10, 7, "instagram", encrypted(t, v, "insta-token")),
		publishChannel(20, 7, "tiktok", encrypted(t, v, "tiktok-token")),
	}}
	results := &fakeResultRepo{}
	media := &fakeMediaRepo{assets: []*models.MediaAsset{
		{ID: 1, PostID: 1, FileName: "u7/p1/a.jpg", FileType: "image/jpeg", DisplayOrder: 0},
	}}

	instagram := &fakeAdapter{
		platform:  "instagram",
		postTypes: []string{models.PostTypePhoto},
		outcome:   &adapters.PublishOutcome{ExternalID: "123"},
	}
	tiktok := &fakeAdapter{
		platform:  "tiktok",
		postTypes: []string{models.PostTypePhoto},
		err:       adapters.NewProviderError("tiktok", "status %d: rate limited", 429),
	}
	registry := adapters.NewRegistry()
	registry.Register(instagram)
	registry.Register(tiktok)

	cleanup := &fakeCleanup{}
	svc := newTestPublishService(posts, channels, results, media, registry, v, cleanup)

	status, rows, err := svc.Dispatch(context.Background(), post)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if status != models.PostStatusPartial {
		t.Errorf("status = %q, want %q", status, models.PostStatusPartial)
	}
	if posts.statuses[1] != models.PostStatusPartial {
		t.Errorf("persisted status = %q, want %q", posts.statuses[1], models.PostStatusPartial)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d result rows, want 2", len(rows))
	}
	if rows[0].ChannelID != 10 || rows[0].Status != models.ResultStatusSuccess || rows[0].ExternalID != "123" {
		t.Errorf("first row = %+v, want success on channel 10 with external id 123", rows[0])
	}
	if rows[1].ChannelID != 20 || rows[1].Status != models.ResultStatusFailed || rows[1].ErrorMessage == "" {
		t.Errorf("second row = %+v, want failed on channel 20 with an error message", rows[1])
	}
	if len(cleanup.scheduled) != 0 {
		t.Errorf("cleanup scheduled for partial post: %v", cleanup.scheduled)
	}
	if got := instagram.calls[0].credential; got != "insta-token" {
		t.Errorf("adapter received credential %q, want decrypted plaintext", got)
	}
}

func TestDispatchPreconditionFailureSkipsAdapters(t *testing.T) {
	v := testVault(t)
	post := &models.Post{
		ID:                 2,
		UserID:             7,
		PostType:           models.PostTypeReel,
		Status:             models.PostStatusScheduled,
		SelectedChannelIDs: []int64{10},
	}
	posts := newFakePostRepo(post)
	channels := &fakeChannelRepo{channels: []*models.Channel{
		publishChannel(10, 7, "instagram", encrypted(t, v, "insta-token")),
	}}
	results := &fakeResultRepo{}
	// only an image, but reels need a video
	media := &fakeMediaRepo{assets: []*models.MediaAsset{
		{ID: 1, PostID: 2, FileName: "u7/p2/a.jpg", FileType: "image/jpeg"},
	}}

	instagram := &fakeAdapter{
		platform:  "instagram",
		postTypes: []string{models.PostTypeReel},
		outcome:   &adapters.PublishOutcome{ExternalID: "never"},
	}
	registry := adapters.NewRegistry()
	registry.Register(instagram)

	svc := newTestPublishService(posts, channels, results, media, registry, v, &fakeCleanup{})

	status, rows, err := svc.Dispatch(context.Background(), post)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if status != models.PostStatusFailed {
		t.Errorf("status = %q, want %q", status, models.PostStatusFailed)
	}
	if len(rows) != 1 || rows[0].Status != models.ResultStatusFailed {
		t.Fatalf("rows = %+v, want one failed row", rows)
	}
	if len(instagram.calls) != 0 {
		t.Errorf("adapter was called %d times, want 0", len(instagram.calls))
	}
}

func TestDispatchUnsupportedPostTypeFailsChannel(t *testing.T) {
	v := testVault(t)
	post := &models.Post{
		ID:                 3,
		UserID:             7,
		PostType:           models.PostTypeStory,
		Status:             models.PostStatusScheduled,
		SelectedChannelIDs: []int64{20},
	}
	posts := newFakePostRepo(post)
	channels := &fakeChannelRepo{channels: []*models.Channel{
		publishChannel(20, 7, "tiktok", encrypted(t, v, "tiktok-token")),
	}}
	results := &fakeResultRepo{}
	media := &fakeMediaRepo{assets: []*models.MediaAsset{
		{ID: 1, PostID: 3, FileName: "u7/p3/a.jpg", FileType: "image/jpeg"},
	}}

	tiktok := &fakeAdapter{platform: "tiktok", postTypes: []string{models.PostTypeVideo}}
	registry := adapters.NewRegistry()
	registry.Register(tiktok)

	svc := newTestPublishService(posts, channels, results, media, registry, v, &fakeCleanup{})

	status, rows, err := svc.Dispatch(context.Background(), post)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if status != models.PostStatusFailed {
		t.Errorf("status = %q, want %q", status, models.PostStatusFailed)
	}
	if len(rows) != 1 || rows[0].Status != models.ResultStatusFailed {
		t.Fatalf("rows = %+v, want one failed row", rows)
	}
	if len(tiktok.calls) != 0 {
		t.Errorf("adapter was called for an unsupported post type")
	}
}

func TestDispatchZeroChannelsMarksFailed(t *testing.T) {
	v := testVault(t)
	post := &models.Post{
		ID:                 4,
		UserID:             7,
		PostType:           models.PostTypeText,
		Status:             models.PostStatusScheduled,
		SelectedChannelIDs: []int64{99},
	}
	posts := newFakePostRepo(post)
	channels := &fakeChannelRepo{}
	results := &fakeResultRepo{}

	svc := newTestPublishService(posts, channels, results, &fakeMediaRepo{}, adapters.NewRegistry(), v, &fakeCleanup{})

	status, rows, err := svc.Dispatch(context.Background(), post)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if status != models.PostStatusFailed {
		t.Errorf("status = %q, want %q", status, models.PostStatusFailed)
	}
	if len(rows) != 0 || len(results.rows) != 0 {
		t.Errorf("expected no result rows for unattempted channels, got %d", len(results.rows))
	}
	if posts.statuses[4] != models.PostStatusFailed {
		t.Errorf("persisted status = %q, want %q", posts.statuses[4], models.PostStatusFailed)
	}
}

func TestDispatchAllSuccessSchedulesCleanup(t *testing.T) {
	v := testVault(t)
	post := &models.Post{
		ID:                 5,
		UserID:             7,
		PostType:           models.PostTypeText,
		Content:            "hello",
		Status:             models.PostStatusScheduled,
		SelectedChannelIDs: []int64{30, 40},
	}
	posts := newFakePostRepo(post)
	channels := &fakeChannelRepo{channels: []*models.Channel{
		publishChannel(30, 7, "telegram", encrypted(t, v, "bot-token")),
		publishChannel(40, 7, "telegram", encrypted(t, v, "bot-token-2")),
	}}
	results := &fakeResultRepo{}

	telegram := &fakeAdapter{
		platform:  "telegram",
		postTypes: []string{models.PostTypeText},
		outcome:   &adapters.PublishOutcome{ExternalID: "552"},
	}
	registry := adapters.NewRegistry()
	registry.Register(telegram)

	cleanup := &fakeCleanup{}
	svc := newTestPublishService(posts, channels, results, &fakeMediaRepo{}, registry, v, cleanup)

	status, rows, err := svc.Dispatch(context.Background(), post)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if status != models.PostStatusPublished {
		t.Errorf("status = %q, want %q", status, models.PostStatusPublished)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	// sequential dispatch follows the resolved channel order
	if telegram.calls[0].channelID != 30 || telegram.calls[1].channelID != 40 {
		t.Errorf("call order = %+v, want channel 30 then 40", telegram.calls)
	}
	if len(cleanup.scheduled) != 1 || cleanup.scheduled[0] != 5 {
		t.Errorf("cleanup.scheduled = %v, want [5]", cleanup.scheduled)
	}
}

func TestPublishNowClaimsOnce(t *testing.T) {
	v := testVault(t)
	post := &models.Post{
		ID:                 6,
		UserID:             7,
		PostType:           models.PostTypeText,
		Status:             models.PostStatusDraft,
		SelectedChannelIDs: []int64{30},
	}
	posts := newFakePostRepo(post)
	channels := &fakeChannelRepo{channels: []*models.Channel{
		publishChannel(30, 7, "telegram", encrypted(t, v, "bot-token")),
	}}

	telegram := &fakeAdapter{
		platform:  "telegram",
		postTypes: []string{models.PostTypeText},
		outcome:   &adapters.PublishOutcome{ExternalID: "1"},
	}
	registry := adapters.NewRegistry()
	registry.Register(telegram)

	svc := newTestPublishService(posts, channels, &fakeResultRepo{}, &fakeMediaRepo{}, registry, v, &fakeCleanup{})

	status, _, err := svc.PublishNow(context.Background(), 7, 6)
	if err != nil {
		t.Fatalf("PublishNow: %v", err)
	}
	if status != models.PostStatusPublished {
		t.Errorf("status = %q, want %q", status, models.PostStatusPublished)
	}

	if _, _, err := svc.PublishNow(context.Background(), 7, 6); err == nil {
		t.Fatal("second PublishNow succeeded, want claim rejection")
	}
	if len(telegram.calls) != 1 {
		t.Errorf("adapter called %d times, want exactly 1", len(telegram.calls))
	}
}

func TestPublishNowRejectsForeignPost(t *testing.T) {
	v := testVault(t)
	post := &models.Post{ID: 8, UserID: 7, PostType: models.PostTypeText, Status: models.PostStatusDraft}
	posts := newFakePostRepo(post)

	svc := newTestPublishService(posts, &fakeChannelRepo{}, &fakeResultRepo{}, &fakeMediaRepo{}, adapters.NewRegistry(), v, &fakeCleanup{})

	if _, _, err := svc.PublishNow(context.Background(), 99, 8); err == nil {
		t.Fatal("PublishNow for another user's post succeeded, want error")
	}
	if posts.claimed[8] {
		t.Error("foreign post was claimed")
	}
}

func TestListResultsChecksOwnership(t *testing.T) {
	v := testVault(t)
	post := &models.Post{ID: 9, UserID: 7, Status: models.PostStatusPublished}
	posts := newFakePostRepo(post)
	results := &fakeResultRepo{rows: []*models.PublishResult{
		{ID: 1, PostID: 9, ChannelID: 30, Platform: "telegram", Status: models.ResultStatusSuccess},
	}}

	svc := newTestPublishService(posts, &fakeChannelRepo{}, results, &fakeMediaRepo{}, adapters.NewRegistry(), v, &fakeCleanup{})

	rows, err := svc.ListResults(context.Background(), 7, 9)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("got %d rows, want 1", len(rows))
	}

	if _, err := svc.ListResults(context.Background(), 99, 9); err == nil {
		t.Error("ListResults for another user's post succeeded, want error")
	}
}
