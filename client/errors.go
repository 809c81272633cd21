package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/crosspost-labs/crosspost/common"
)

// RateLimitError signals that the platform itself throttled the call. This
// is distinct from local limiter exhaustion: platforms can reject with
// their own throttling even under a respected local budget. Agents retry
// exactly once on this error.
type RateLimitError struct {
	Platform   common.PlatformType
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited the request (retry after %s): %s", e.Platform, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("%s rate limited the request: %s", e.Platform, e.Message)
}

// PlatformError covers every non-throttling platform failure: auth,
// validation, network. Agents never retry these; retry policy for them
// belongs to the coordinator.
type PlatformError struct {
	Platform common.PlatformType
	Message  string
	Err      error
}

func (e *PlatformError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s platform error: %s: %v", e.Platform, e.Message, e.Err)
	}
	return fmt.Sprintf("%s platform error: %s", e.Platform, e.Message)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// IsRateLimit reports whether err is a platform-side throttling error.
func IsRateLimit(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}
