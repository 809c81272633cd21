package telegram

import (
	"github.com/crosspost-labs/crosspost/agent"
	"github.com/crosspost-labs/crosspost/common"
)

// RegisterTelegramAgent registers the Telegram agent with the factory
func RegisterTelegramAgent(factory *agent.DefaultAgentFactory) error {
	return factory.Register(common.PlatformTelegram, NewTelegramAgent)
}
