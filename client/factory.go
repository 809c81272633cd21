package client

import (
	"fmt"

	"github.com/crosspost-labs/crosspost/common"
)

// Factory creates platform clients based on the platform type
type Factory interface {
	// CreateClient creates a client for the specified platform
	CreateClient(platform common.PlatformType, storageRoot string, cfg common.PlatformConfig) (PlatformClient, error)
}

// DefaultFactory implements Factory
type DefaultFactory struct{}

// NewDefaultFactory creates a new DefaultFactory
func NewDefaultFactory() *DefaultFactory {
	return &DefaultFactory{}
}

// CreateClient implements Factory
func (f *DefaultFactory) CreateClient(platform common.PlatformType, storageRoot string, cfg common.PlatformConfig) (PlatformClient, error) {
	switch platform {
	case common.PlatformTelegram:
		if cfg.ChannelUsername == "" {
			return nil, fmt.Errorf("telegram client requires channel_username")
		}
		return NewTelegramClient(storageRoot, cfg), nil
	case common.PlatformYouTube:
		if cfg.YouTubeAPIKey == "" {
			return nil, fmt.Errorf("youtube client requires youtube_api_key")
		}
		return NewYouTubeClient(cfg)
	case common.PlatformBluesky:
		if cfg.BlueskyHandle == "" || cfg.BlueskyAppPassword == "" {
			return nil, fmt.Errorf("bluesky client requires bluesky_handle and bluesky_app_password")
		}
		return NewBlueskyClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported platform type: %s", platform)
	}
}
