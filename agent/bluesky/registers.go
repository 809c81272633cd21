package bluesky

import (
	"github.com/crosspost-labs/crosspost/agent"
	"github.com/crosspost-labs/crosspost/common"
)

// RegisterBlueskyAgent registers the Bluesky agent with the factory
func RegisterBlueskyAgent(factory *agent.DefaultAgentFactory) error {
	return factory.Register(common.PlatformBluesky, NewBlueskyAgent)
}
