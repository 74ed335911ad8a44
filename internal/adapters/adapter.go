package adapters

import (
	"context"
	"time"

	"github.com/relaypost/relaypost/internal/models"
)

// PublishRequest carries everything an adapter needs for one dispatch
// attempt. Credentials arrive already decrypted; adapters never touch
// the vault.
type PublishRequest struct {
	Post             *models.Post
	Media            []*models.MediaAsset
	AccessCredential string
	ChannelMetadata  map[string]string
}

type PublishOutcome struct {
	ExternalID string
	URL        string
	Raw        map[string]any
}

type RefreshOutcome struct {
	AccessCredential  string
	RefreshCredential string
	Expiry            time.Time
}

// Adapter is the uniform per-platform capability. Publish returns a
// ProviderError when the platform rejects the call; Refresh returns
// ErrNoExpiry for static credentials and RefreshError on failure.
type Adapter interface {
	Platform() string
	PostTypes() []string
	Publish(ctx context.Context, req *PublishRequest) (*PublishOutcome, error)
	Refresh(ctx context.Context, channel *models.Channel, accessCredential, refreshCredential string) (*RefreshOutcome, error)
}
