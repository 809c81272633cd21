package client

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/crosspost-labs/crosspost/common"
)

func TestDefaultFactoryCreateClient(t *testing.T) {
	f := NewDefaultFactory()

	tests := []struct {
		name     string
		platform common.PlatformType
		cfg      common.PlatformConfig
		wantErr  bool
	}{
		{
			name:     "telegram",
			platform: common.PlatformTelegram,
			cfg:      common.PlatformConfig{ChannelUsername: "@news"},
		},
		{
			name:     "telegram missing channel",
			platform: common.PlatformTelegram,
			wantErr:  true,
		},
		{
			name:     "youtube",
			platform: common.PlatformYouTube,
			cfg:      common.PlatformConfig{YouTubeAPIKey: "key"},
		},
		{
			name:     "youtube missing key",
			platform: common.PlatformYouTube,
			wantErr:  true,
		},
		{
			name:     "bluesky",
			platform: common.PlatformBluesky,
			cfg:      common.PlatformConfig{BlueskyHandle: "bot.example", BlueskyAppPassword: "pass"},
		},
		{
			name:     "bluesky missing password",
			platform: common.PlatformBluesky,
			cfg:      common.PlatformConfig{BlueskyHandle: "bot.example"},
			wantErr:  true,
		},
		{
			name:     "unsupported platform",
			platform: "myspace",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := f.CreateClient(tt.platform, t.TempDir(), tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.platform, c.Platform())
		})
	}
}

func TestMapYouTubeError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		rateLimit bool
	}{
		{
			name:      "429 status",
			err:       &googleapi.Error{Code: http.StatusTooManyRequests, Message: "slow down"},
			rateLimit: true,
		},
		{
			name: "quota exceeded reason",
			err: &googleapi.Error{
				Code:    http.StatusForbidden,
				Message: "quota exceeded",
				Errors:  []googleapi.ErrorItem{{Reason: "quotaExceeded"}},
			},
			rateLimit: true,
		},
		{
			name: "plain forbidden",
			err:  &googleapi.Error{Code: http.StatusForbidden, Message: "forbidden"},
		},
		{
			name: "non-api error",
			err:  errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapYouTubeError(tt.err)
			assert.Equal(t, tt.rateLimit, IsRateLimit(mapped))
		})
	}
}
