package youtube

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosspost-labs/crosspost/agent"
	"github.com/crosspost-labs/crosspost/client"
	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/generator"
	"github.com/crosspost-labs/crosspost/metrics"
	"github.com/crosspost-labs/crosspost/model"
	"github.com/crosspost-labs/crosspost/ratelimit"
)

func newTestAgent(t *testing.T) agent.PlatformAgent {
	t.Helper()

	cfg := common.PlatformConfig{YouTubeAPIKey: "key"}
	yc, err := client.NewYouTubeClient(cfg)
	require.NoError(t, err)

	a, err := NewYouTubeAgent(agent.Deps{
		Name:      "youtube-poster",
		Config:    cfg,
		Client:    yc,
		Generator: generator.NewTemplateGenerator(),
		Limiter:   ratelimit.New(ratelimit.Budget{}),
		Metrics:   metrics.NewMemoryStore(),
	})
	require.NoError(t, err)
	return a
}

func TestNewYouTubeAgentRequiresAPIKey(t *testing.T) {
	_, err := NewYouTubeAgent(agent.Deps{Name: "youtube-poster"})
	assert.Error(t, err)
}

func TestYouTubeAgentRejectsTextContent(t *testing.T) {
	a := newTestAgent(t)

	result := a.CreatePost(context.Background(), model.PostRequest{
		Brief:       "announce",
		ContentType: model.ContentTypeText,
	})

	assert.False(t, result.Success)
	assert.Equal(t, model.ErrKindConfiguration, result.ErrorKind)
}

func TestYouTubeAgentRequiresMediaPath(t *testing.T) {
	a := newTestAgent(t)

	result := a.CreatePost(context.Background(), model.PostRequest{
		Brief:       "announce",
		ContentType: model.ContentTypeVideo,
	})

	assert.False(t, result.Success)
	assert.Equal(t, model.ErrKindConfiguration, result.ErrorKind)
	assert.Contains(t, result.ErrorMessage, "media_path")
}
