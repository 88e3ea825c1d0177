package waitlist

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the waitlist domain.
var (
	ErrDuplicateSubmission = errors.New("email already on the waitlist")
	ErrConsentRequired     = errors.New("consent required")
	ErrCaptchaRequired     = errors.New("captcha token or secret missing")
	ErrCaptchaFailed       = errors.New("captcha verification failed")
)

// User-facing messages.
const (
	msgDuplicate       = "You're already on the waitlist."
	msgRateLimited     = "Too many requests. Please try again shortly."
	msgConsentRequired = "Consent required."
	msgCaptchaRequired = "Captcha required."
	msgCaptchaFailed   = "Captcha verification failed."
	msgStoreFailed     = "Unable to save your signup right now."
)

// RateLimitedError carries the limit that rejected the request so the
// transport can describe it in headers.
type RateLimitedError struct {
	Key    string
	Limit  int
	Window time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit of %d per %s exceeded for %s", e.Limit, e.Window, e.Key)
}
