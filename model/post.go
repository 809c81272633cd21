package model

import (
	"fmt"
	"time"

	"github.com/crosspost-labs/crosspost/common"
)

// ContentType defines the kinds of content agents can produce
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
	ContentTypeVideo ContentType = "video"
)

// ErrorKind classifies posting failures so callers can branch without
// parsing error messages.
type ErrorKind string

const (
	ErrKindConfiguration     ErrorKind = "configuration_error"
	ErrKindAgentStartup      ErrorKind = "agent_startup_error"
	ErrKindContentGeneration ErrorKind = "content_generation_error"
	ErrKindPlatform          ErrorKind = "platform_error"
	ErrKindPlatformRateLimit ErrorKind = "platform_rate_limit_error"
	ErrKindReportGeneration  ErrorKind = "report_generation_error"
	ErrKindCancelled         ErrorKind = "cancelled"
)

// PostResult is the outcome record of one platform posting attempt.
//
// Invariant: Success implies PostID and URL are non-empty; failure implies
// ErrorKind is set and PostID/URL are empty. Use NewSuccessResult and
// NewFailedResult to construct results that honor this.
type PostResult struct {
	Success      bool                   `json:"success"`
	Platform     common.PlatformType    `json:"platform"`
	Timestamp    time.Time              `json:"timestamp"`
	PostID       string                 `json:"post_id,omitempty"`
	URL          string                 `json:"url,omitempty"`
	Content      string                 `json:"content,omitempty"`
	ErrorKind    ErrorKind              `json:"error_kind,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// NewSuccessResult builds a successful PostResult for a submitted post.
func NewSuccessResult(platform common.PlatformType, postID, url, content string) PostResult {
	return PostResult{
		Success:   true,
		Platform:  platform,
		Timestamp: time.Now(),
		PostID:    postID,
		URL:       url,
		Content:   content,
	}
}

// NewFailedResult builds a failed PostResult carrying the error taxonomy kind.
func NewFailedResult(platform common.PlatformType, kind ErrorKind, err error) PostResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return PostResult{
		Success:      false,
		Platform:     platform,
		Timestamp:    time.Now(),
		ErrorKind:    kind,
		ErrorMessage: msg,
	}
}

// PostRequest is one logical posting request, fanned out by the coordinator
// to every selected platform agent.
type PostRequest struct {
	Brief        string                 `json:"brief"`
	ContentType  ContentType            `json:"content_type"`
	Platforms    []common.PlatformType  `json:"platforms,omitempty"`
	ScheduleTime *time.Time             `json:"schedule_time,omitempty"`
	Options      map[string]interface{} `json:"options,omitempty"`
}

// Validate rejects requests that are malformed before any dispatch happens.
// Platform-level failures are never reported through Validate; they belong
// in per-platform PostResults.
func (r PostRequest) Validate() error {
	if r.Brief == "" {
		return fmt.Errorf("post request brief cannot be empty")
	}

	switch r.ContentType {
	case "", ContentTypeText, ContentTypeImage, ContentTypeVideo:
	default:
		return fmt.Errorf("unknown content type %q", r.ContentType)
	}

	for _, pt := range r.Platforms {
		if !common.IsValidPlatform(string(pt)) {
			return fmt.Errorf("unknown platform %q in request", pt)
		}
	}

	return nil
}

// Option returns a string option by key, with a default when absent.
func (r PostRequest) Option(key, fallback string) string {
	if r.Options == nil {
		return fallback
	}
	if v, ok := r.Options[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}
