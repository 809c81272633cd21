// Package youtube implements the posting agent for YouTube uploads.
package youtube

import (
	"context"
	"fmt"

	"github.com/crosspost-labs/crosspost/agent"
	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/model"
)

// YouTubeAgent implements the agent.PlatformAgent interface for YouTube
type YouTubeAgent struct {
	*agent.BaseAgent
}

// NewYouTubeAgent creates a new YouTube posting agent
func NewYouTubeAgent(deps agent.Deps) (agent.PlatformAgent, error) {
	if deps.Config.YouTubeAPIKey == "" {
		return nil, fmt.Errorf("youtube agent %s requires youtube_api_key", deps.Name)
	}
	deps.Platform = common.PlatformYouTube

	base, err := agent.NewBaseAgent(deps)
	if err != nil {
		return nil, err
	}
	return &YouTubeAgent{BaseAgent: base}, nil
}

// CreatePost rejects requests that cannot possibly publish on YouTube
// before they consume limiter budget or generation tokens. Every post
// here is a video upload and needs a local media file.
func (a *YouTubeAgent) CreatePost(ctx context.Context, req model.PostRequest) model.PostResult {
	if req.ContentType != "" && req.ContentType != model.ContentTypeVideo {
		return model.NewFailedResult(common.PlatformYouTube, model.ErrKindConfiguration,
			fmt.Errorf("youtube only publishes video content, got %q", req.ContentType))
	}
	if req.Option("media_path", "") == "" {
		return model.NewFailedResult(common.PlatformYouTube, model.ErrKindConfiguration,
			fmt.Errorf("youtube posts require a media_path option"))
	}
	return a.BaseAgent.CreatePost(ctx, req)
}
