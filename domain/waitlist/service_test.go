package waitlist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/akeren/waitlist-api/internal/log"
	"github.com/akeren/waitlist-api/internal/models"
	"github.com/akeren/waitlist-api/pkg/constants"
	apperrors "github.com/akeren/waitlist-api/pkg/errors"
	"github.com/akeren/waitlist-api/pkg/events"
	"github.com/akeren/waitlist-api/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) published() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

type failingLimiter struct{}

func (failingLimiter) GetLimitDetails() (int, time.Duration) { return 5, time.Minute }
func (failingLimiter) IsLimited(string) (bool, error)        { return false, errors.New("redis unavailable") }
func (failingLimiter) Close() error                          { return nil }

type serviceFixture struct {
	repo      *MockWaitlistRepository
	captcha   *MockCaptchaVerifier
	limiter   *ratelimit.SlidingWindowLimiter
	publisher *recordingPublisher
	registry  *prometheus.Registry
	service   WaitlistService
}

func newServiceFixture(t *testing.T, settings Settings, extra ...Option) *serviceFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &serviceFixture{
		repo:      NewMockWaitlistRepository(ctrl),
		captcha:   NewMockCaptchaVerifier(ctrl),
		limiter:   ratelimit.NewSlidingWindowLimiter(5, time.Minute, func() time.Time { return fixedNow }),
		publisher: &recordingPublisher{},
		registry:  prometheus.NewRegistry(),
	}

	opts := []Option{
		WithRateLimiter(f.limiter),
		WithCaptchaVerifier(f.captcha),
		WithPublisher(f.publisher),
		WithMetrics(NewMetrics(f.registry)),
		WithSettings(settings),
		WithClock(func() time.Time { return fixedNow }),
	}
	f.service = NewWaitlistService(log.NewLogger(io.Discard, slog.LevelError), f.repo, append(opts, extra...)...)
	return f
}

func (f *serviceFixture) outcomeCount(t *testing.T, outcome string) float64 {
	t.Helper()
	families, err := f.registry.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != "waitlist_intake_outcomes_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func echoInsert(_ context.Context, s *models.Submission) (*models.Submission, error) {
	return s, nil
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

var clientMeta = RequestMeta{ClientIP: "203.0.113.7", UserAgent: "test-agent"}

func TestSubmit_Success(t *testing.T) {
	f := newServiceFixture(t, Settings{})

	f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, s *models.Submission) (*models.Submission, error) {
			assert.Equal(t, "ada@example.com", s.Email)
			assert.Equal(t, models.SubmissionStatusPending, s.Status)
			assert.True(t, s.Consent)
			assert.Equal(t, "203.0.113.7", s.IP)
			assert.Equal(t, "test-agent", s.UserAgent)
			return s, nil
		},
	)

	req := &SubmitRequest{
		Email:   "ada@example.com",
		Role:    strPtr("founder"),
		Usecase: strPtr("Analytics dashboards for robotics"),
	}

	result, err := f.service.Submit(context.Background(), req, clientMeta)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "ada@example.com", result.Email)
	assert.Equal(t, fixedNow, result.CreatedAt)
	assert.Equal(t, "landing", *result.Source)
	assert.Equal(t, []string{"analytics", "dashboards", "robotics"}, result.Keywords)

	published := f.publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, EventSubmitted, published[0].Type)
	assert.Equal(t, result.ID, published[0].Payload.(SubmittedPayload).ID)

	assert.Equal(t, float64(1), f.outcomeCount(t, outcomeCreated))
	assert.Equal(t, 4, f.limiter.Remaining(clientMeta.ClientIP))
}

func TestSubmit_AutoActivate(t *testing.T) {
	f := newServiceFixture(t, Settings{AutoActivate: true})
	f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(echoInsert)

	result, err := f.service.Submit(context.Background(), &SubmitRequest{Email: "a@example.com"}, clientMeta)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusActive, result.Status)
}

func TestSubmit_HoneypotIsDisguisedAndSkipsEverything(t *testing.T) {
	f := newServiceFixture(t, Settings{RequireConsent: true, RequireCaptcha: true})
	// No repository or captcha expectations: any call fails the test.

	req := &SubmitRequest{Email: "bot@example.com", Role: strPtr("bot"), HP: "gotcha"}
	result, err := f.service.Submit(context.Background(), req, clientMeta)

	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "bot@example.com", result.Email)
	assert.Equal(t, "bot", *result.Role)
	assert.Equal(t, fixedNow, result.CreatedAt)
	assert.Empty(t, f.publisher.published())
	assert.Equal(t, 5, f.limiter.Remaining(clientMeta.ClientIP))
	assert.Equal(t, float64(1), f.outcomeCount(t, outcomeHoneypot))
}

func TestSubmit_HoneypotWinsOverRateLimit(t *testing.T) {
	f := newServiceFixture(t, Settings{})
	for i := 0; i < 5; i++ {
		limited, err := f.limiter.IsLimited(clientMeta.ClientIP)
		require.NoError(t, err)
		require.False(t, limited)
	}

	result, err := f.service.Submit(context.Background(), &SubmitRequest{Email: "bot@example.com", HP: true}, clientMeta)
	require.NoError(t, err)
	assert.Equal(t, "bot@example.com", result.Email)
}

func TestSubmit_RateLimited(t *testing.T) {
	f := newServiceFixture(t, Settings{})
	f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(echoInsert).Times(5)

	for i := 0; i < 5; i++ {
		_, err := f.service.Submit(context.Background(), &SubmitRequest{Email: trimmedString(strings.Repeat("x", i+1) + "@example.com")}, clientMeta)
		require.NoError(t, err)
	}

	result, err := f.service.Submit(context.Background(), &SubmitRequest{Email: "late@example.com"}, clientMeta)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeRateLimitExceeded, apperrors.GetErrorType(err))

	var limited *RateLimitedError
	require.True(t, errors.As(err, &limited))
	assert.Equal(t, 5, limited.Limit)
	assert.Equal(t, time.Minute, limited.Window)
	assert.Equal(t, float64(1), f.outcomeCount(t, outcomeRateLimited))
}

func TestSubmit_RateLimiterErrorFailsOpen(t *testing.T) {
	f := newServiceFixture(t, Settings{}, WithRateLimiter(failingLimiter{}))
	f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(echoInsert)

	_, err := f.service.Submit(context.Background(), &SubmitRequest{Email: "a@example.com"}, clientMeta)
	assert.NoError(t, err)
}

func TestSubmit_ConsentRequired(t *testing.T) {
	for name, consent := range map[string]*bool{"unspecified": nil, "declined": boolPtr(false)} {
		t.Run(name, func(t *testing.T) {
			f := newServiceFixture(t, Settings{RequireConsent: true, RequireCaptcha: true})

			result, err := f.service.Submit(context.Background(), &SubmitRequest{Email: "a@example.com", Consent: consent}, clientMeta)
			assert.Nil(t, result)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
			assert.Equal(t, "Consent required.", apperrors.GetHumanReadableMessage(err))
			assert.True(t, errors.Is(err, ErrConsentRequired))
		})
	}
}

func TestSubmit_ConsentGivenIsStored(t *testing.T) {
	f := newServiceFixture(t, Settings{RequireConsent: true})
	f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, s *models.Submission) (*models.Submission, error) {
			assert.True(t, s.Consent)
			return s, nil
		},
	)

	_, err := f.service.Submit(context.Background(), &SubmitRequest{Email: "a@example.com", Consent: boolPtr(true)}, clientMeta)
	assert.NoError(t, err)
}

func TestSubmit_CaptchaRejected(t *testing.T) {
	f := newServiceFixture(t, Settings{RequireCaptcha: true})
	f.captcha.EXPECT().Verify(gomock.Any(), "tok", clientMeta.ClientIP).Return(ErrCaptchaFailed)

	_, err := f.service.Submit(context.Background(), &SubmitRequest{Email: "a@example.com", CaptchaToken: "tok"}, clientMeta)
	require.Error(t, err)
	assert.Equal(t, apperrors.StatusBadRequest, apperrors.HTTPStatusCode(err))
	assert.Equal(t, "Captcha verification failed.", apperrors.GetHumanReadableMessage(err))
	assert.Equal(t, float64(1), f.outcomeCount(t, outcomeCaptchaFailed))
}

func TestSubmit_CaptchaMissing(t *testing.T) {
	f := newServiceFixture(t, Settings{RequireCaptcha: true})
	f.captcha.EXPECT().Verify(gomock.Any(), "", clientMeta.ClientIP).Return(ErrCaptchaRequired)

	_, err := f.service.Submit(context.Background(), &SubmitRequest{Email: "a@example.com"}, clientMeta)
	require.Error(t, err)
	assert.Equal(t, "Captcha required.", apperrors.GetHumanReadableMessage(err))
}

func TestSubmit_CaptchaAccepted(t *testing.T) {
	f := newServiceFixture(t, Settings{RequireCaptcha: true})
	f.captcha.EXPECT().Verify(gomock.Any(), "tok", clientMeta.ClientIP).Return(nil)
	f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(echoInsert)

	_, err := f.service.Submit(context.Background(), &SubmitRequest{Email: "a@example.com", CaptchaToken: "tok"}, clientMeta)
	assert.NoError(t, err)
}

func TestSubmit_Duplicate(t *testing.T) {
	f := newServiceFixture(t, Settings{})
	f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil, duplicateError())

	result, err := f.service.Submit(context.Background(), &SubmitRequest{Email: "a@example.com"}, clientMeta)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, apperrors.StatusConflict, apperrors.HTTPStatusCode(err))
	assert.True(t, errors.Is(err, ErrDuplicateSubmission))
	assert.Empty(t, f.publisher.published())
	assert.Equal(t, float64(1), f.outcomeCount(t, outcomeDuplicate))
}

func TestSubmit_StoreErrorIsOpaque(t *testing.T) {
	f := newServiceFixture(t, Settings{})
	f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).
		Return(nil, apperrors.NewDatabaseError(msgStoreFailed, errors.New("pq: connection refused")))

	_, err := f.service.Submit(context.Background(), &SubmitRequest{Email: "a@example.com"}, clientMeta)
	require.Error(t, err)
	assert.Equal(t, apperrors.StatusInternalServerError, apperrors.HTTPStatusCode(err))
	assert.NotContains(t, apperrors.GetHumanReadableMessage(err), "connection refused")
	assert.Equal(t, float64(1), f.outcomeCount(t, outcomeStoreError))
}

func TestSubmit_PublishFailureIsNotSurfaced(t *testing.T) {
	f := newServiceFixture(t, Settings{})
	f.publisher.err = errors.New("redis unavailable")
	f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(echoInsert)

	result, err := f.service.Submit(context.Background(), &SubmitRequest{Email: "a@example.com"}, clientMeta)
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestSubmit_AttributionFromReferer(t *testing.T) {
	f := newServiceFixture(t, Settings{})
	f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(echoInsert)

	meta := clientMeta
	meta.Referer = "https://example.com/?utm_source=foo&utm_medium=social&source=ads"
	req := &SubmitRequest{Email: "a@example.com", UTMMedium: strPtr("email")}

	result, err := f.service.Submit(context.Background(), req, meta)
	require.NoError(t, err)
	assert.Equal(t, "foo", *result.UTMSource)
	assert.Equal(t, "email", *result.UTMMedium)
	assert.Equal(t, "ads", *result.Source)
}

func TestSubmit_NilRequest(t *testing.T) {
	f := newServiceFixture(t, Settings{})

	result, err := f.service.Submit(context.Background(), nil, clientMeta)
	assert.Nil(t, result)
	assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
}

func TestList_MapsSubmissions(t *testing.T) {
	f := newServiceFixture(t, Settings{})
	f.repo.EXPECT().List(gomock.Any(), constants.ListingSafetyCap).Return([]*models.Submission{
		{ID: "2", Email: "b@example.com", Status: "pending", CreatedAt: fixedNow},
		{ID: "1", Email: "a@example.com", Status: "pending", CreatedAt: fixedNow.Add(-time.Hour)},
	}, nil)

	result, err := f.service.List(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "2", result[0].ID)
	assert.Equal(t, []string{}, result[0].Keywords)
}

func TestExportCSV(t *testing.T) {
	f := newServiceFixture(t, Settings{})
	f.repo.EXPECT().List(gomock.Any(), constants.ListingSafetyCap).Return([]*models.Submission{
		{ID: "1", Email: "a@example.com", Role: strPtr("dev"), CreatedAt: fixedNow},
	}, nil)

	content, err := f.service.ExportCSV(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id,email,role,usecase,created_at\n1,a@example.com,dev,,2026-03-14T09:26:53Z\n", string(content))
}

func TestExportCSV_StoreError(t *testing.T) {
	f := newServiceFixture(t, Settings{})
	f.repo.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, apperrors.NewDatabaseError("boom", nil))

	_, err := f.service.ExportCSV(context.Background())
	assert.Equal(t, apperrors.ErrorTypeDatabaseError, apperrors.GetErrorType(err))
}

func TestSubmit_LogsSubmittedEventWithTokenRedacted(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockWaitlistRepository(ctrl)
	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(echoInsert)

	var buf bytes.Buffer
	service := NewWaitlistService(log.NewLogger(&buf, slog.LevelInfo), repo,
		WithClock(func() time.Time { return fixedNow }),
	)

	req := &SubmitRequest{
		Email:        "ada@example.com",
		Role:         strPtr("founder"),
		Usecase:      strPtr("Robotics telemetry"),
		CaptchaToken: "secret-turnstile-token",
	}
	_, err := service.Submit(context.Background(), req, clientMeta)
	require.NoError(t, err)

	var event map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		if record["event"] == "waitlist_submitted" {
			event = record
		}
	}
	require.NotNil(t, event, "waitlist_submitted event not logged")

	assert.Equal(t, "ada@example.com", event["email"])
	assert.Equal(t, "founder", event["role"])
	assert.Equal(t, "Robotics telemetry", event["usecase"])
	assert.Equal(t, models.SubmissionStatusPending, event["status"])
	assert.Equal(t, "[REDACTED]", event["captcha_token"])
	assert.NotContains(t, buf.String(), "secret-turnstile-token")
}
