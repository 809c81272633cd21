// Package client provides the platform client capability consumed by
// posting agents, plus concrete implementations per platform.
package client

import (
	"context"

	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/model"
)

// Health is the result of a cheap platform-reachability probe.
type Health string

const (
	HealthOK       Health = "ok"
	HealthDegraded Health = "degraded"
	HealthDown     Health = "down"
)

// PostContent is the platform-ready content an agent submits.
type PostContent struct {
	// Text is the body of the post. For YouTube it is the video description.
	Text string

	// Title is used by platforms that separate a title from the body.
	Title string

	ContentType model.ContentType

	// MediaPath points at a local media file for platforms that require an
	// upload (YouTube). Empty for text-only posts.
	MediaPath string

	// Metadata carries platform-specific extras (category, privacy, ...).
	Metadata map[string]interface{}
}

// PostResponse is the platform's acknowledgement of a created post.
type PostResponse struct {
	ID  string
	URL string

	// Raw holds platform-specific response fields for the result metadata bag.
	Raw map[string]interface{}
}

// PlatformClient represents a posting client for any platform. Post returns
// a *RateLimitError when the platform itself throttles the call and a
// *PlatformError for every other platform-side failure, so agents can
// branch with errors.As.
type PlatformClient interface {
	// Connect establishes a connection or session with the platform
	Connect(ctx context.Context) error

	// Disconnect closes the connection to the platform
	Disconnect(ctx context.Context) error

	// Post publishes content and returns the platform's id and URL for it
	Post(ctx context.Context, content PostContent) (*PostResponse, error)

	// HealthProbe performs a cheap reachability check, never a full post
	HealthProbe(ctx context.Context) Health

	// Platform returns the platform this client talks to
	Platform() common.PlatformType
}
