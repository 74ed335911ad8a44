package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/relaypost/relaypost/internal/adapters"
	"github.com/relaypost/relaypost/internal/models"
)

const (
	tokenURL       = "https://open.tiktokapis.com/v2/oauth/token/"
	videoInitURL   = "https://open.tiktokapis.com/v2/post/publish/video/init/"
	contentInitURL = "https://open.tiktokapis.com/v2/post/publish/content/init/"
)

// Adapter publishes through the TikTok content posting API. TikTok
// rotates refresh tokens on every grant, so Refresh returns both new
// credentials.
type Adapter struct {
	clientKey    string
	clientSecret string
	client       *http.Client
}

func New(clientKey, clientSecret string) *Adapter {
	return &Adapter{
		clientKey:    clientKey,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: 2 * time.Minute},
	}
}

func (a *Adapter) Platform() string { return "tiktok" }

func (a *Adapter) PostTypes() []string {
	return []string{models.PostTypeVideo, models.PostTypePhoto, models.PostTypeCarousel}
}

func (a *Adapter) Publish(ctx context.Context, req *adapters.PublishRequest) (*adapters.PublishOutcome, error) {
	if req.Post.PostType == models.PostTypeVideo {
		return a.publishVideo(ctx, req)
	}
	return a.publishPhotos(ctx, req)
}

func (a *Adapter) publishVideo(ctx context.Context, req *adapters.PublishRequest) (*adapters.PublishOutcome, error) {
	payload := map[string]any{
		"post_info": map[string]any{
			"title":         req.Post.Content,
			"privacy_level": "PUBLIC_TO_EVERYONE",
		},
		"source_info": map[string]any{
			"source":    "PULL_FROM_URL",
			"video_url": req.Media[0].FileURL,
		},
	}
	return a.postInit(ctx, videoInitURL, payload, req.AccessCredential)
}

func (a *Adapter) publishPhotos(ctx context.Context, req *adapters.PublishRequest) (*adapters.PublishOutcome, error) {
	photoURLs := make([]string, 0, len(req.Media))
	for _, asset := range req.Media {
		photoURLs = append(photoURLs, asset.FileURL)
	}

	payload := map[string]any{
		"post_info": map[string]any{
			"title":         req.Post.Title,
			"description":   req.Post.Content,
			"privacy_level": "PUBLIC_TO_EVERYONE",
		},
		"source_info": map[string]any{
			"source":            "PULL_FROM_URL",
			"photo_images":      photoURLs,
			"photo_cover_index": 0,
		},
		"post_mode":  "DIRECT_POST",
		"media_type": "PHOTO",
	}
	return a.postInit(ctx, contentInitURL, payload, req.AccessCredential)
}

func (a *Adapter) postInit(ctx context.Context, apiURL string, payload map[string]any, accessToken string) (*adapters.PublishOutcome, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, adapters.NewProviderError("tiktok", "request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, adapters.NewProviderError("tiktok", "error reading response: %v", err)
	}

	var result struct {
		Data struct {
			PublishID string `json:"publish_id"`
		} `json:"data"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, adapters.NewProviderError("tiktok", "error parsing response: %v", err)
	}
	if result.Error.Code != "" && result.Error.Code != "ok" {
		return nil, adapters.NewProviderError("tiktok", "%s: %s", result.Error.Code, result.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, adapters.NewProviderError("tiktok", "unexpected status code %d", resp.StatusCode)
	}
	if result.Data.PublishID == "" {
		return nil, adapters.NewProviderError("tiktok", "no publish id returned")
	}

	return &adapters.PublishOutcome{
		ExternalID: result.Data.PublishID,
		Raw:        map[string]any{"publish_id": result.Data.PublishID},
	}, nil
}

func (a *Adapter) Refresh(ctx context.Context, channel *models.Channel, accessCredential, refreshCredential string) (*adapters.RefreshOutcome, error) {
	if refreshCredential == "" {
		return nil, adapters.NewRefreshError("tiktok", "channel has no refresh credential")
	}

	data := url.Values{}
	data.Set("client_key", a.clientKey)
	data.Set("client_secret", a.clientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshCredential)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, adapters.NewRefreshError("tiktok", "error creating request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, adapters.NewRefreshError("tiktok", "request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, adapters.NewRefreshError("tiktok", "error reading response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, adapters.NewRefreshError("tiktok", "unexpected status code %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, adapters.NewRefreshError("tiktok", "error parsing response: %v", err)
	}
	if result.AccessToken == "" {
		return nil, adapters.NewRefreshError("tiktok", "no access token returned")
	}

	return &adapters.RefreshOutcome{
		AccessCredential:  result.AccessToken,
		RefreshCredential: result.RefreshToken,
		Expiry:            time.Now().Add(time.Duration(result.ExpiresIn) * time.Second),
	}, nil
}
