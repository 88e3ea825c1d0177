package constants

import "time"

// Waitlist intake defaults.
const (
	// Sliding window applied to POST /api/waitlist per client IP.
	DefaultIntakeRateLimitRequests = 5
	DefaultIntakeRateLimitWindow   = time.Minute

	// Budget for a single outbound call to the store or the captcha verifier.
	DefaultOutboundTimeout = 10 * time.Second

	// ListingSafetyCap bounds list and export reads. It is a guard, not pagination.
	ListingSafetyCap = 10000

	// StatusCheckListCap bounds GET /api/status.
	StatusCheckListCap = 1000

	DefaultAttributionSource = "landing"

	MaxKeywords = 20

	DefaultCaptchaVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

	ExportFilename = "waitlist.csv"

	// EventsChannel is the Redis pub/sub channel for waitlist domain events.
	EventsChannel = "waitlist:events"
)

