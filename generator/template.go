package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/model"
)

// TemplateGenerator renders the brief directly into platform-sized text
// without calling a model. It backs dry runs and deployments that have no
// Anthropic credentials; output is deterministic for a given input.
type TemplateGenerator struct{}

// NewTemplateGenerator creates the deterministic fallback generator.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// Generate renders the brief for the platform, honoring its character limit.
func (g *TemplateGenerator) Generate(ctx context.Context, brief string, platform common.PlatformType, contentType model.ContentType, opts map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if brief == "" {
		return "", &GenerationError{Platform: platform, Err: fmt.Errorf("brief cannot be empty")}
	}

	text := strings.TrimSpace(brief)
	if tags, ok := opts["hashtags"].(string); ok && tags != "" {
		text = text + "\n\n" + tags
	}

	return Truncate(text, MaxChars(platform)), nil
}

// Truncate cuts text to at most limit runes, ending on a word boundary with
// an ellipsis when a cut happened.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	cut := string(runes[:limit-1])
	if idx := strings.LastIndexAny(cut, " \n"); idx > limit/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "…"
}
