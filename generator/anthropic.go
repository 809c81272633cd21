package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
	"github.com/rs/zerolog/log"

	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/model"
)

// AnthropicGenerator produces post content with the Anthropic API. One
// instance is shared by all agents; the client is stateless per call.
type AnthropicGenerator struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
}

// NewAnthropicGenerator creates a generator backed by the Anthropic API.
func NewAnthropicGenerator(apiKey, modelName string, maxTokens int, temperature float64) (*AnthropicGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("generator model is required")
	}

	return &AnthropicGenerator{
		apiKey:      apiKey,
		model:       modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

// Generate asks the model for a platform-sized rendition of the brief.
func (g *AnthropicGenerator) Generate(ctx context.Context, brief string, platform common.PlatformType, contentType model.ContentType, opts map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if brief == "" {
		return "", &GenerationError{Platform: platform, Err: fmt.Errorf("brief cannot be empty")}
	}

	systemPrompt := g.systemPrompt(platform, contentType)
	userPrompt := brief
	if tone, ok := opts["tone"].(string); ok && tone != "" {
		userPrompt = fmt.Sprintf("%s\n\nTone: %s", userPrompt, tone)
	}

	settings := types.RequestSettings{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	}

	response, err := anthropic.PromptWithSettings(systemPrompt, userPrompt, "", g.apiKey, settings)
	if err != nil {
		return "", &GenerationError{Platform: platform, Err: err}
	}

	if len(response.Content) == 0 {
		return "", &GenerationError{Platform: platform, Err: fmt.Errorf("no content in response")}
	}

	text := strings.TrimSpace(response.Content[0].Text)
	if limit := MaxChars(platform); len([]rune(text)) > limit {
		log.Warn().
			Str("platform", string(platform)).
			Int("length", len([]rune(text))).
			Int("limit", limit).
			Msg("Generated content exceeded platform limit, truncating")
		text = Truncate(text, limit)
	}

	return text, nil
}

func (g *AnthropicGenerator) systemPrompt(platform common.PlatformType, contentType model.ContentType) string {
	var b strings.Builder
	b.WriteString("You write social media posts. Respond with the post text only, no preamble or commentary.\n")
	fmt.Fprintf(&b, "Target platform: %s. Hard limit: %d characters.\n", platform, MaxChars(platform))

	switch platform {
	case common.PlatformBluesky:
		b.WriteString("Keep it punchy and conversational. At most two hashtags.\n")
	case common.PlatformTelegram:
		b.WriteString("Write for a channel announcement. Plain text, short paragraphs.\n")
	case common.PlatformYouTube:
		b.WriteString("Write a video description. First line doubles as the title.\n")
	}

	if contentType == model.ContentTypeImage || contentType == model.ContentTypeVideo {
		fmt.Fprintf(&b, "The post accompanies %s media; reference it naturally.\n", contentType)
	}

	return b.String()
}
