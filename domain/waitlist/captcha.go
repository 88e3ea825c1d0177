package waitlist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/akeren/waitlist-api/pkg/circuitbreaker"
	"github.com/akeren/waitlist-api/pkg/constants"
)

const maxSiteverifyBody = 64 << 10

//go:generate mockgen -source=captcha.go -destination=mock_captcha.go -package=waitlist

// CaptchaVerifier checks a challenge token with the provider.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// TurnstileVerifier speaks the Cloudflare Turnstile siteverify contract.
// Calls go through a circuit breaker and are never retried.
type TurnstileVerifier struct {
	client    *http.Client
	verifyURL string
	secret    string
	breaker   circuitbreaker.CircuitBreaker
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func NewTurnstileVerifier(secret, verifyURL string, timeout time.Duration, breaker circuitbreaker.CircuitBreaker) *TurnstileVerifier {
	if verifyURL == "" {
		verifyURL = constants.DefaultCaptchaVerifyURL
	}
	if timeout <= 0 {
		timeout = constants.DefaultOutboundTimeout
	}
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(nil)
	}

	return &TurnstileVerifier{
		client:    &http.Client{Timeout: timeout},
		verifyURL: verifyURL,
		secret:    secret,
		breaker:   breaker,
	}
}

func (v *TurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if v.secret == "" || strings.TrimSpace(token) == "" {
		return ErrCaptchaRequired
	}

	var result siteverifyResponse
	err := v.breaker.Call(func() error {
		var callErr error
		result, callErr = v.siteverify(ctx, token, remoteIP)
		return callErr
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaFailed, err)
	}

	if !result.Success {
		return fmt.Errorf("%w: %s", ErrCaptchaFailed, strings.Join(result.ErrorCodes, ","))
	}
	return nil
}

// siteverify reports transport and protocol failures only. A well-formed
// rejection is not an upstream failure and does not count against the breaker.
func (v *TurnstileVerifier) siteverify(ctx context.Context, token, remoteIP string) (siteverifyResponse, error) {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return siteverifyResponse{}, fmt.Errorf("failed to build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return siteverifyResponse{}, fmt.Errorf("siteverify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return siteverifyResponse{}, fmt.Errorf("siteverify returned status %d", resp.StatusCode)
	}

	var result siteverifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSiteverifyBody)).Decode(&result); err != nil {
		return siteverifyResponse{}, fmt.Errorf("malformed siteverify response: %w", err)
	}
	return result, nil
}
