package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRateLimited indicates the upstream provider returned a quota/limit error
// (HTTP 429 or similar). This is the only retryable condition.
var ErrRateLimited = errors.New("upstream rate limited")

// ErrAuth indicates the configured provider credential was rejected.
var ErrAuth = errors.New("api key rejected")

// ErrMalformedResponse indicates the upstream returned a payload that does not
// conform to the requested shape.
var ErrMalformedResponse = errors.New("malformed model response")

// ErrMalformedStreamResult indicates a stream completed but its final text was
// not parseable as the expected structured result.
var ErrMalformedStreamResult = errors.New("malformed stream result")

// ErrUpstreamFailure indicates a supporting upstream (pixel classifier,
// grounded search) failed; the pipeline for that angle aborts without
// attempting the model call.
var ErrUpstreamFailure = errors.New("upstream dependency failed")

// TimeoutError is raised when the client-side timeout race wins. It carries
// the analysis mode in effect so callers can produce a mode-appropriate
// suggestion.
type TimeoutError struct {
	Mode Mode
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("analysis timed out (mode=%s)", e.Mode)
}

// IsRateLimited reports whether err is retryable. Upstream SDK errors are not
// always wrapped, so the message is inspected for the 429 marker as a
// fallback.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	return strings.Contains(err.Error(), "429")
}

// IsAuthError reports whether err means the provider credential is bad.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuth) {
		return true
	}
	return strings.Contains(err.Error(), "API key not valid")
}
