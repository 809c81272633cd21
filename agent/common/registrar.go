// Package common provides shared functionality for agents
package common

import (
	"github.com/crosspost-labs/crosspost/agent"
	"github.com/crosspost-labs/crosspost/agent/bluesky"
	"github.com/crosspost-labs/crosspost/agent/telegram"
	"github.com/crosspost-labs/crosspost/agent/youtube"
)

// RegisterAllAgents registers all agent implementations with the factory
func RegisterAllAgents(factory *agent.DefaultAgentFactory) error {
	if err := telegram.RegisterTelegramAgent(factory); err != nil {
		return err
	}

	if err := youtube.RegisterYouTubeAgent(factory); err != nil {
		return err
	}

	if err := bluesky.RegisterBlueskyAgent(factory); err != nil {
		return err
	}

	return nil
}
