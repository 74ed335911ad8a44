package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/relaypost/relaypost/internal/adapters"
	"github.com/relaypost/relaypost/internal/models"
)

// Adapter posts through the Telegram Bot API. The bot token is the
// channel's access credential and never expires, so Refresh reports
// ErrNoExpiry.
type Adapter struct {
	client *http.Client
}

func New() *Adapter {
	return &Adapter{client: &http.Client{Timeout: 2 * time.Minute}}
}

func (a *Adapter) Platform() string { return "telegram" }

func (a *Adapter) PostTypes() []string {
	return []string{models.PostTypeText, models.PostTypePhoto, models.PostTypeVideo, models.PostTypeAlbum}
}

func (a *Adapter) Publish(ctx context.Context, req *adapters.PublishRequest) (*adapters.PublishOutcome, error) {
	chatID := req.ChannelMetadata["chat_id"]
	if chatID == "" {
		return nil, adapters.NewProviderError("telegram", "channel metadata is missing chat_id")
	}

	var method string
	payload := map[string]any{"chat_id": chatID}

	switch req.Post.PostType {
	case models.PostTypePhoto:
		method = "sendPhoto"
		payload["photo"] = req.Media[0].FileURL
		payload["caption"] = req.Post.Content
	case models.PostTypeVideo:
		method = "sendVideo"
		payload["video"] = req.Media[0].FileURL
		payload["caption"] = req.Post.Content
	case models.PostTypeAlbum:
		method = "sendMediaGroup"
		media := make([]map[string]any, 0, len(req.Media))
		for i, asset := range req.Media {
			item := map[string]any{"type": "photo", "media": asset.FileURL}
			if i == 0 {
				item["caption"] = req.Post.Content
			}
			media = append(media, item)
		}
		payload["media"] = media
	default:
		method = "sendMessage"
		payload["text"] = req.Post.Content
	}

	return a.call(ctx, req.AccessCredential, method, payload)
}

func (a *Adapter) call(ctx context.Context, botToken, method string, payload map[string]any) (*adapters.PublishOutcome, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/%s", botToken, method)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, adapters.NewProviderError("telegram", "request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, adapters.NewProviderError("telegram", "error reading response: %v", err)
	}

	var result struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, adapters.NewProviderError("telegram", "error parsing response: %v", err)
	}
	if !result.OK {
		return nil, adapters.NewProviderError("telegram", "%s", result.Description)
	}

	return &adapters.PublishOutcome{
		ExternalID: firstMessageID(result.Result),
		Raw:        map[string]any{"response": string(result.Result)},
	}, nil
}

// sendMediaGroup returns an array of messages; the other methods return
// a single message object.
func firstMessageID(raw json.RawMessage) string {
	var single struct {
		MessageID int64 `json:"message_id"`
	}
	if err := json.Unmarshal(raw, &single); err == nil && single.MessageID != 0 {
		return strconv.FormatInt(single.MessageID, 10)
	}

	var many []struct {
		MessageID int64 `json:"message_id"`
	}
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return strconv.FormatInt(many[0].MessageID, 10)
	}
	return ""
}

func (a *Adapter) Refresh(ctx context.Context, channel *models.Channel, accessCredential, refreshCredential string) (*adapters.RefreshOutcome, error) {
	return nil, adapters.ErrNoExpiry
}
