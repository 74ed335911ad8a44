package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/relaypost/relaypost/internal/adapters"
	"github.com/relaypost/relaypost/internal/models"
)

const graphBaseURL = "https://graph.instagram.com/v21.0"

// Adapter publishes through the Instagram Graph container flow and
// renews credentials with the long-lived token exchange.
type Adapter struct {
	client *http.Client
}

func New() *Adapter {
	return &Adapter{client: &http.Client{Timeout: 2 * time.Minute}}
}

func (a *Adapter) Platform() string { return "instagram" }

func (a *Adapter) PostTypes() []string {
	return []string{models.PostTypePhoto, models.PostTypeCarousel, models.PostTypeReel, models.PostTypeStory}
}

func (a *Adapter) Publish(ctx context.Context, req *adapters.PublishRequest) (*adapters.PublishOutcome, error) {
	accountID := req.ChannelMetadata["account_id"]
	if accountID == "" {
		return nil, adapters.NewProviderError("instagram", "channel metadata is missing account_id")
	}

	var containerID string
	var err error

	switch req.Post.PostType {
	case models.PostTypeCarousel:
		containerID, err = a.createCarouselContainer(ctx, accountID, req)
	case models.PostTypeReel:
		containerID, err = a.createContainer(ctx, accountID, map[string]any{
			"media_type":   "REELS",
			"video_url":    req.Media[0].FileURL,
			"caption":      req.Post.Content,
			"access_token": req.AccessCredential,
		})
	case models.PostTypeStory:
		containerID, err = a.createContainer(ctx, accountID, map[string]any{
			"media_type":   "STORIES",
			"image_url":    req.Media[0].FileURL,
			"access_token": req.AccessCredential,
		})
	default:
		containerID, err = a.createContainer(ctx, accountID, map[string]any{
			"image_url":    req.Media[0].FileURL,
			"caption":      req.Post.Content,
			"access_token": req.AccessCredential,
		})
	}
	if err != nil {
		return nil, err
	}

	mediaID, err := a.publishContainer(ctx, accountID, containerID, req.AccessCredential)
	if err != nil {
		return nil, err
	}

	return &adapters.PublishOutcome{
		ExternalID: mediaID,
		URL:        fmt.Sprintf("https://www.instagram.com/p/%s", mediaID),
		Raw:        map[string]any{"container_id": containerID},
	}, nil
}

func (a *Adapter) createCarouselContainer(ctx context.Context, accountID string, req *adapters.PublishRequest) (string, error) {
	childIDs := make([]string, 0, len(req.Media))
	for _, asset := range req.Media {
		childID, err := a.createContainer(ctx, accountID, map[string]any{
			"image_url":        asset.FileURL,
			"is_carousel_item": true,
			"access_token":     req.AccessCredential,
		})
		if err != nil {
			return "", err
		}
		childIDs = append(childIDs, childID)
	}

	return a.createContainer(ctx, accountID, map[string]any{
		"media_type":   "CAROUSEL",
		"caption":      req.Post.Content,
		"children":     childIDs,
		"access_token": req.AccessCredential,
	})
}

func (a *Adapter) createContainer(ctx context.Context, accountID string, payload map[string]any) (string, error) {
	url := fmt.Sprintf("%s/%s/media", graphBaseURL, accountID)
	return a.postForID(ctx, url, payload)
}

func (a *Adapter) publishContainer(ctx context.Context, accountID, containerID, accessToken string) (string, error) {
	url := fmt.Sprintf("%s/%s/media_publish", graphBaseURL, accountID)
	return a.postForID(ctx, url, map[string]any{
		"creation_id":  containerID,
		"access_token": accessToken,
	})
}

func (a *Adapter) postForID(ctx context.Context, url string, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", adapters.NewProviderError("instagram", "request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", adapters.NewProviderError("instagram", "error reading response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", adapters.NewProviderError("instagram", "unexpected status code %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", adapters.NewProviderError("instagram", "error parsing response: %v", err)
	}
	if result.ID == "" {
		return "", adapters.NewProviderError("instagram", "no media id returned")
	}
	return result.ID, nil
}

// Refresh exchanges the current long-lived token for a new one. Instagram
// has no separate refresh credential; the access token refreshes itself.
func (a *Adapter) Refresh(ctx context.Context, channel *models.Channel, accessCredential, refreshCredential string) (*adapters.RefreshOutcome, error) {
	url := fmt.Sprintf(
		"https://graph.instagram.com/refresh_access_token?grant_type=ig_refresh_token&access_token=%s",
		accessCredential,
	)

	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, adapters.NewRefreshError("instagram", "error creating request: %v", err)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, adapters.NewRefreshError("instagram", "request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, adapters.NewRefreshError("instagram", "unexpected status code %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, adapters.NewRefreshError("instagram", "error parsing response: %v", err)
	}
	if result.AccessToken == "" {
		return nil, adapters.NewRefreshError("instagram", "no access token returned")
	}

	return &adapters.RefreshOutcome{
		AccessCredential: result.AccessToken,
		Expiry:           time.Now().Add(time.Duration(result.ExpiresIn) * time.Second),
	}, nil
}
