package client

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/crosspost-labs/crosspost/common"
)

// YouTubeClient publishes videos through the YouTube Data API.
type YouTubeClient struct {
	cfg     common.PlatformConfig
	service *ytapi.Service
}

// NewYouTubeClient creates a new YouTube posting client.
func NewYouTubeClient(cfg common.PlatformConfig) (*YouTubeClient, error) {
	if cfg.YouTubeAPIKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}
	if cfg.YouTubeCategory == "" {
		cfg.YouTubeCategory = "22"
	}
	if cfg.YouTubePrivacy == "" {
		cfg.YouTubePrivacy = "public"
	}
	return &YouTubeClient{cfg: cfg}, nil
}

// Connect establishes a connection to the YouTube API
func (c *YouTubeClient) Connect(ctx context.Context) error {
	log.Info().Msg("Connecting to YouTube API")

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	service, err := ytapi.NewService(ctx, option.WithAPIKey(c.cfg.YouTubeAPIKey), option.WithHTTPClient(httpClient))
	if err != nil {
		log.Error().Err(err).Msg("Failed to create YouTube service")
		return &PlatformError{Platform: common.PlatformYouTube, Message: "failed to create YouTube service", Err: err}
	}

	c.service = service
	log.Info().Msg("Connected to YouTube API successfully")
	return nil
}

// Disconnect closes the connection to the YouTube API
func (c *YouTubeClient) Disconnect(ctx context.Context) error {
	// No explicit disconnect needed for the YouTube API client
	c.service = nil
	return nil
}

// Post uploads the video at content.MediaPath with the generated text as
// its description. YouTube has no text-only post, so a missing media path
// is a platform error rather than a silent skip.
func (c *YouTubeClient) Post(ctx context.Context, content PostContent) (*PostResponse, error) {
	if c.service == nil {
		return nil, &PlatformError{Platform: common.PlatformYouTube, Message: "client not connected"}
	}
	if content.MediaPath == "" {
		return nil, &PlatformError{Platform: common.PlatformYouTube, Message: "youtube posts require a media file"}
	}

	media, err := os.Open(content.MediaPath)
	if err != nil {
		return nil, &PlatformError{Platform: common.PlatformYouTube, Message: fmt.Sprintf("failed to open media file %s", content.MediaPath), Err: err}
	}
	defer media.Close()

	title := content.Title
	if title == "" {
		title = firstLine(content.Text)
	}

	video := &ytapi.Video{
		Snippet: &ytapi.VideoSnippet{
			Title:       title,
			Description: content.Text,
			CategoryId:  c.cfg.YouTubeCategory,
			ChannelId:   c.cfg.YouTubeChannelID,
		},
		Status: &ytapi.VideoStatus{
			PrivacyStatus: c.cfg.YouTubePrivacy,
		},
	}

	inserted, err := c.service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(media).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapYouTubeError(err)
	}

	log.Info().Str("video_id", inserted.Id).Msg("Uploaded video to YouTube")

	return &PostResponse{
		ID:  inserted.Id,
		URL: fmt.Sprintf("https://www.youtube.com/watch?v=%s", inserted.Id),
		Raw: map[string]interface{}{
			"channel_id": c.cfg.YouTubeChannelID,
			"privacy":    c.cfg.YouTubePrivacy,
		},
	}, nil
}

// HealthProbe lists the configured channel as a cheap reachability check.
func (c *YouTubeClient) HealthProbe(ctx context.Context) Health {
	if c.service == nil {
		return HealthDown
	}

	call := c.service.Channels.List([]string{"id"}).MaxResults(1)
	if c.cfg.YouTubeChannelID != "" {
		call = call.Id(c.cfg.YouTubeChannelID)
	} else {
		call = call.ForUsername("youtube")
	}

	if _, err := call.Context(ctx).Do(); err != nil {
		log.Warn().Err(err).Msg("YouTube health probe failed")
		if IsRateLimit(mapYouTubeError(err)) {
			return HealthDegraded
		}
		return HealthDown
	}
	return HealthOK
}

// Platform implements PlatformClient.
func (c *YouTubeClient) Platform() common.PlatformType {
	return common.PlatformYouTube
}

// mapYouTubeError converts googleapi errors into the client error taxonomy.
// Quota exhaustion arrives as 403 with a rate-limit reason, not only as 429.
func mapYouTubeError(err error) error {
	if apiErr, ok := err.(*googleapi.Error); ok {
		if apiErr.Code == http.StatusTooManyRequests || hasRateLimitReason(apiErr) {
			return &RateLimitError{Platform: common.PlatformYouTube, Message: apiErr.Message}
		}
	}
	return &PlatformError{Platform: common.PlatformYouTube, Message: "youtube api call failed", Err: err}
}

func hasRateLimitReason(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return false
}

func firstLine(text string) string {
	for i, r := range text {
		if r == '\n' {
			return text[:i]
		}
	}
	return text
}
