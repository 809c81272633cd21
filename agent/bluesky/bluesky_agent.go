// Package bluesky implements the posting agent for Bluesky accounts.
package bluesky

import (
	"context"
	"fmt"

	"github.com/crosspost-labs/crosspost/agent"
	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/model"
)

// BlueskyAgent implements the agent.PlatformAgent interface for Bluesky
type BlueskyAgent struct {
	*agent.BaseAgent
}

// NewBlueskyAgent creates a new Bluesky posting agent
func NewBlueskyAgent(deps agent.Deps) (agent.PlatformAgent, error) {
	if deps.Config.BlueskyHandle == "" || deps.Config.BlueskyAppPassword == "" {
		return nil, fmt.Errorf("bluesky agent %s requires bluesky_handle and bluesky_app_password", deps.Name)
	}
	deps.Platform = common.PlatformBluesky

	base, err := agent.NewBaseAgent(deps)
	if err != nil {
		return nil, err
	}
	return &BlueskyAgent{BaseAgent: base}, nil
}

// CreatePost rejects media requests up front. The posting client only
// creates text records.
func (a *BlueskyAgent) CreatePost(ctx context.Context, req model.PostRequest) model.PostResult {
	if req.ContentType == model.ContentTypeVideo {
		return model.NewFailedResult(common.PlatformBluesky, model.ErrKindConfiguration,
			fmt.Errorf("bluesky agent does not publish video content"))
	}
	return a.BaseAgent.CreatePost(ctx, req)
}
