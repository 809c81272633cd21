// Package generator produces platform-adapted post content from a brief.
package generator

import (
	"context"
	"fmt"

	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/model"
)

// ContentGenerator produces platform-adapted content from a brief. The
// posting pipeline treats it as an opaque capability: a generation failure
// is surfaced immediately, never retried.
type ContentGenerator interface {
	Generate(ctx context.Context, brief string, platform common.PlatformType, contentType model.ContentType, opts map[string]interface{}) (string, error)
}

// GenerationError wraps a content generation failure so the agent pipeline
// can classify it without retrying.
type GenerationError struct {
	Platform common.PlatformType
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("content generation failed for %s: %v", e.Platform, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// MaxChars returns the hard character limit the generator targets per
// platform. YouTube's limit applies to the video description.
func MaxChars(platform common.PlatformType) int {
	switch platform {
	case common.PlatformBluesky:
		return 300
	case common.PlatformTelegram:
		return 4096
	case common.PlatformYouTube:
		return 5000
	default:
		return 1000
	}
}
