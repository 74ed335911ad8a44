package youtube

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/relaypost/relaypost/internal/adapters"
	"github.com/relaypost/relaypost/internal/models"
)

// Adapter uploads videos through the YouTube Data API and renews
// credentials with the standard OAuth2 refresh-token grant.
type Adapter struct {
	clientID     string
	clientSecret string
	client       *http.Client
}

func New(clientID, clientSecret string) *Adapter {
	return &Adapter{
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: 10 * time.Minute},
	}
}

func (a *Adapter) Platform() string { return "youtube" }

func (a *Adapter) PostTypes() []string {
	return []string{models.PostTypeVideo, models.PostTypeReel}
}

func (a *Adapter) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.clientID,
		ClientSecret: a.clientSecret,
		Scopes:       []string{yt.YoutubeUploadScope},
		Endpoint:     google.Endpoint,
	}
}

func (a *Adapter) Publish(ctx context.Context, req *adapters.PublishRequest) (*adapters.PublishOutcome, error) {
	token := &oauth2.Token{AccessToken: req.AccessCredential}
	httpClient := a.oauthConfig().Client(ctx, token)

	service, err := yt.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, adapters.NewProviderError("youtube", "error creating client: %v", err)
	}

	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       req.Post.Title,
			Description: req.Post.Content,
			CategoryId:  "22",
		},
		Status: &yt.VideoStatus{PrivacyStatus: "public"},
	}

	resp, err := a.client.Get(req.Media[0].FileURL)
	if err != nil {
		return nil, adapters.NewProviderError("youtube", "error fetching media: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, adapters.NewProviderError("youtube", "media fetch returned status %d", resp.StatusCode)
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	uploaded, err := call.Media(resp.Body).Context(ctx).Do()
	if err != nil {
		return nil, adapters.NewProviderError("youtube", "upload failed: %v", err)
	}

	return &adapters.PublishOutcome{
		ExternalID: uploaded.Id,
		URL:        fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id),
		Raw:        map[string]any{"channel_id": uploaded.Snippet.ChannelId},
	}, nil
}

// Refresh runs the OAuth2 refresh-token grant. Google does not rotate
// the refresh token, so only the access credential and expiry change.
func (a *Adapter) Refresh(ctx context.Context, channel *models.Channel, accessCredential, refreshCredential string) (*adapters.RefreshOutcome, error) {
	if refreshCredential == "" {
		return nil, adapters.NewRefreshError("youtube", "channel has no refresh credential")
	}

	source := a.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshCredential})
	token, err := source.Token()
	if err != nil {
		return nil, adapters.NewRefreshError("youtube", "token grant failed: %v", err)
	}
	if token.AccessToken == "" {
		return nil, adapters.NewRefreshError("youtube", "no access token returned")
	}

	return &adapters.RefreshOutcome{
		AccessCredential:  token.AccessToken,
		RefreshCredential: token.RefreshToken,
		Expiry:            token.Expiry,
	}, nil
}
