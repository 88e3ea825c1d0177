package waitlist

import (
	"context"
	"errors"

	"github.com/akeren/waitlist-api/internal/log"
	apperrors "github.com/akeren/waitlist-api/pkg/errors"
	"github.com/akeren/waitlist-api/pkg/ratelimit"
)

// Intake outcomes. Each terminal path through Submit records exactly one.
const (
	outcomePassed          = "passed"
	outcomeHoneypot        = "honeypot"
	outcomeRateLimited     = "rate_limited"
	outcomeConsentRequired = "consent_required"
	outcomeCaptchaFailed   = "captcha_failed"
	outcomeInvalid         = "invalid"
	outcomeDuplicate       = "duplicate"
	outcomeStoreError      = "store_error"
	outcomeCreated         = "created"
)

const unknownClientKey = "unknown"

// ResolveConsent is the single consent rule: an explicit value wins, and an
// unspecified value counts as given only when consent is not required.
func ResolveConsent(consent *bool, required bool) bool {
	if consent != nil {
		return *consent
	}
	return !required
}

// guardChain runs the abuse checks in a fixed order. The first check that
// disqualifies a submission decides the outcome.
type guardChain struct {
	logger   *log.Logger
	limiter  ratelimit.RateLimiter
	captcha  CaptchaVerifier
	settings Settings
}

type guard func(ctx context.Context, req *SubmitRequest, meta RequestMeta) (string, error)

func (g *guardChain) run(ctx context.Context, req *SubmitRequest, meta RequestMeta) (string, error) {
	for _, check := range []guard{g.honeypot, g.rateLimit, g.consent, g.captchaCheck} {
		outcome, err := check(ctx, req, meta)
		if err != nil || outcome != outcomePassed {
			return outcome, err
		}
	}
	return outcomePassed, nil
}

func (g *guardChain) honeypot(_ context.Context, req *SubmitRequest, _ RequestMeta) (string, error) {
	if req.honeypotFilled() {
		return outcomeHoneypot, nil
	}
	return outcomePassed, nil
}

func (g *guardChain) rateLimit(ctx context.Context, _ *SubmitRequest, meta RequestMeta) (string, error) {
	if g.limiter == nil {
		return outcomePassed, nil
	}

	key := meta.ClientIP
	if key == "" {
		key = unknownClientKey
	}

	limited, err := g.limiter.IsLimited(key)
	if err != nil {
		log.GetLoggerInstanceFromContext(ctx, g.logger).Error("Intake rate limiter failed, allowing request", "client_ip", key, "error", err)
		return outcomePassed, nil
	}
	if limited {
		limit, window := g.limiter.GetLimitDetails()
		return outcomeRateLimited, apperrors.NewRateLimitExceededError(msgRateLimited, &RateLimitedError{
			Key:    key,
			Limit:  limit,
			Window: window,
		})
	}
	return outcomePassed, nil
}

func (g *guardChain) consent(_ context.Context, req *SubmitRequest, _ RequestMeta) (string, error) {
	if g.settings.RequireConsent && !ResolveConsent(req.Consent, true) {
		return outcomeConsentRequired, apperrors.NewInvalidRequestError(msgConsentRequired, ErrConsentRequired)
	}
	return outcomePassed, nil
}

func (g *guardChain) captchaCheck(ctx context.Context, req *SubmitRequest, meta RequestMeta) (string, error) {
	if !g.settings.RequireCaptcha {
		return outcomePassed, nil
	}
	if g.captcha == nil {
		return outcomeCaptchaFailed, apperrors.NewInvalidRequestError(msgCaptchaRequired, ErrCaptchaRequired)
	}

	if err := g.captcha.Verify(ctx, req.CaptchaToken, meta.ClientIP); err != nil {
		log.GetLoggerInstanceFromContext(ctx, g.logger).Warn("Captcha check rejected submission", "error", err)
		if errors.Is(err, ErrCaptchaRequired) {
			return outcomeCaptchaFailed, apperrors.NewInvalidRequestError(msgCaptchaRequired, err)
		}
		return outcomeCaptchaFailed, apperrors.NewInvalidRequestError(msgCaptchaFailed, err)
	}
	return outcomePassed, nil
}
