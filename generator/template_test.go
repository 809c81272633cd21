package generator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/model"
)

func TestTemplateGeneratorRendersBrief(t *testing.T) {
	g := NewTemplateGenerator()

	text, err := g.Generate(context.Background(), "Release v2.0 is out", common.PlatformTelegram, model.ContentTypeText, nil)
	require.NoError(t, err)
	assert.Equal(t, "Release v2.0 is out", text)
}

func TestTemplateGeneratorAppendsHashtags(t *testing.T) {
	g := NewTemplateGenerator()

	opts := map[string]interface{}{"hashtags": "#release #golang"}
	text, err := g.Generate(context.Background(), "Release v2.0 is out", common.PlatformBluesky, model.ContentTypeText, opts)
	require.NoError(t, err)
	assert.Contains(t, text, "#release #golang")
}

func TestTemplateGeneratorEmptyBrief(t *testing.T) {
	g := NewTemplateGenerator()

	_, err := g.Generate(context.Background(), "", common.PlatformBluesky, model.ContentTypeText, nil)
	require.Error(t, err)

	var genErr *GenerationError
	assert.ErrorAs(t, err, &genErr)
	assert.Equal(t, common.PlatformBluesky, genErr.Platform)
}

func TestTemplateGeneratorHonorsPlatformLimit(t *testing.T) {
	g := NewTemplateGenerator()

	long := strings.Repeat("word ", 200)
	text, err := g.Generate(context.Background(), long, common.PlatformBluesky, model.ContentTypeText, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(text)), MaxChars(common.PlatformBluesky))
	assert.True(t, strings.HasSuffix(text, "…"))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{name: "under limit unchanged", text: "short", limit: 10, want: "short"},
		{name: "exact limit unchanged", text: "1234567890", limit: 10, want: "1234567890"},
		{name: "cut on word boundary", text: "alpha beta gamma delta", limit: 18, want: "alpha beta gamma…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.text, tt.limit))
		})
	}
}

func TestMaxChars(t *testing.T) {
	assert.Equal(t, 300, MaxChars(common.PlatformBluesky))
	assert.Equal(t, 4096, MaxChars(common.PlatformTelegram))
	assert.Equal(t, 5000, MaxChars(common.PlatformYouTube))
}
