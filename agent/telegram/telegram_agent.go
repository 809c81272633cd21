// Package telegram implements the posting agent for Telegram channels.
package telegram

import (
	"fmt"

	"github.com/crosspost-labs/crosspost/agent"
	"github.com/crosspost-labs/crosspost/common"
)

// TelegramAgent implements the agent.PlatformAgent interface for Telegram
type TelegramAgent struct {
	*agent.BaseAgent
}

// NewTelegramAgent creates a new Telegram posting agent
func NewTelegramAgent(deps agent.Deps) (agent.PlatformAgent, error) {
	if deps.Config.ChannelUsername == "" {
		return nil, fmt.Errorf("telegram agent %s requires channel_username", deps.Name)
	}
	deps.Platform = common.PlatformTelegram

	base, err := agent.NewBaseAgent(deps)
	if err != nil {
		return nil, err
	}
	return &TelegramAgent{BaseAgent: base}, nil
}
