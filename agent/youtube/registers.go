package youtube

import (
	"github.com/crosspost-labs/crosspost/agent"
	"github.com/crosspost-labs/crosspost/common"
)

// RegisterYouTubeAgent registers the YouTube agent with the factory
func RegisterYouTubeAgent(factory *agent.DefaultAgentFactory) error {
	return factory.Register(common.PlatformYouTube, NewYouTubeAgent)
}
