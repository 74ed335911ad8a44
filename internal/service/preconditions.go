package service

import (
	"net/url"
	"path"
	"strings"

	"github.com/h2non/filetype"
	"github.com/relaypost/relaypost/internal/adapters"
	"github.com/relaypost/relaypost/internal/models"
)

type mediaRule struct {
	minImages int
	minVideos int
	minMedia  int
}

var mediaRules = map[string]mediaRule{
	models.PostTypePhoto:    {minImages: 1},
	models.PostTypeCarousel: {minImages: 2},
	models.PostTypeAlbum:    {minImages: 2},
	models.PostTypeVideo:    {minVideos: 1},
	models.PostTypeReel:     {minVideos: 1},
	models.PostTypeStory:    {minMedia: 1},
	models.PostTypeText:     {},
	models.PostTypeThread:   {},
}

// validatePreconditions checks the post-type/media requirements before
// any adapter call is made.
func validatePreconditions(postType string, media []*models.MediaAsset) error {
	rule, ok := mediaRules[postType]
	if !ok {
		return nil
	}

	var images, videos int
	for _, asset := range media {
		switch mediaKind(asset) {
		case "image":
			images++
		case "video":
			videos++
		}
	}

	if images < rule.minImages {
		return adapters.NewPreconditionError("post type %q requires at least %d image(s), got %d", postType, rule.minImages, images)
	}
	if videos < rule.minVideos {
		return adapters.NewPreconditionError("post type %q requires at least %d video(s), got %d", postType, rule.minVideos, videos)
	}
	if len(media) < rule.minMedia {
		return adapters.NewPreconditionError("post type %q requires at least %d media reference(s), got %d", postType, rule.minMedia, len(media))
	}
	return nil
}

// mediaKind classifies an asset as image or video, preferring the
// catalog's stored MIME type and falling back to the file extension.
func mediaKind(asset *models.MediaAsset) string {
	mime := asset.FileType
	if mime == "" {
		mime = mimeFromURL(asset.FileURL)
	}
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "image"
	case strings.HasPrefix(mime, "video/"):
		return "video"
	}
	return ""
}

func mimeFromURL(fileURL string) string {
	parsed, err := url.Parse(fileURL)
	if err != nil {
		return ""
	}
	ext := strings.TrimPrefix(path.Ext(parsed.Path), ".")
	if ext == "" {
		return ""
	}
	kind := filetype.GetType(strings.ToLower(ext))
	if kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}
