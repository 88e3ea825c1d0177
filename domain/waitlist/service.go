package waitlist

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/akeren/waitlist-api/internal/log"
	"github.com/akeren/waitlist-api/internal/models"
	"github.com/akeren/waitlist-api/pkg/constants"
	apperrors "github.com/akeren/waitlist-api/pkg/errors"
	"github.com/akeren/waitlist-api/pkg/events"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/akeren/waitlist-api/domain/waitlist"

	EventSubmitted    = "waitlist.submitted"
	logEventSubmitted = "waitlist_submitted"
)

type WaitlistService interface {
	Submit(ctx context.Context, req *SubmitRequest, meta RequestMeta) (*SubmissionResponse, error)
	List(ctx context.Context) ([]SubmissionResponse, error)
	ExportCSV(ctx context.Context) ([]byte, error)
}

// Settings are the intake switches read from the environment.
type Settings struct {
	RequireConsent bool
	RequireCaptcha bool
	AutoActivate   bool
}

// SubmittedPayload is the body of the waitlist.submitted event.
type SubmittedPayload struct {
	ID     string  `json:"id"`
	Email  string  `json:"email"`
	Status string  `json:"status"`
	Source *string `json:"source"`
}

type waitlistService struct {
	logger     *log.Logger
	repository WaitlistRepository
	guards     *guardChain
	publisher  events.Publisher
	metrics    *Metrics
	settings   Settings
	now        func() time.Time
}

func (s *waitlistService) Submit(ctx context.Context, req *SubmitRequest, meta RequestMeta) (*SubmissionResponse, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "waitlist.Submit")
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil {
		logger.Error("Submit received nil request")
		err := apperrors.NewInvalidRequestError("request cannot be nil", nil)
		s.record(span, outcomeInvalid, err)
		return nil, err
	}

	outcome, err := s.guards.run(ctx, req, meta)
	if err != nil {
		s.record(span, outcome, err)
		return nil, err
	}

	submission := s.newSubmission(req, meta)

	if outcome == outcomeHoneypot {
		logger.Info("Honeypot field filled, discarding submission", "client_ip", meta.ClientIP)
		s.record(span, outcomeHoneypot, nil)
		resp := ToSubmissionResponse(submission)
		return &resp, nil
	}

	created, err := s.repository.Insert(ctx, submission)
	if err != nil {
		if errors.Is(err, ErrDuplicateSubmission) {
			logger.Info("Duplicate waitlist submission ignored")
			s.record(span, outcomeDuplicate, err)
		} else {
			logger.Error("Failed to store waitlist submission", "error", err)
			s.record(span, outcomeStoreError, err)
		}
		return nil, err
	}

	logger.Event(ctx, logEventSubmitted, req.eventFields(created))
	s.publishSubmitted(ctx, logger, created)
	s.record(span, outcomeCreated, nil)

	resp := ToSubmissionResponse(created)
	return &resp, nil
}

func (s *waitlistService) List(ctx context.Context) ([]SubmissionResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	submissions, err := s.repository.List(ctx, constants.ListingSafetyCap)
	if err != nil {
		logger.Error("Failed to list waitlist submissions", "error", err)
		return nil, err
	}

	return ToSubmissionResponses(submissions), nil
}

func (s *waitlistService) ExportCSV(ctx context.Context) ([]byte, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	submissions, err := s.repository.List(ctx, constants.ListingSafetyCap)
	if err != nil {
		logger.Error("Failed to load waitlist submissions for export", "error", err)
		return nil, err
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, submissions); err != nil {
		logger.Error("Failed to render waitlist CSV", "error", err)
		return nil, apperrors.NewInternalServerError("unable to export waitlist", err)
	}

	return buf.Bytes(), nil
}

// newSubmission builds the record to persist. It does no I/O, so the
// honeypot path can return the same shape without touching the store.
func (s *waitlistService) newSubmission(req *SubmitRequest, meta RequestMeta) *models.Submission {
	attribution := ResolveAttribution(req.explicitAttribution(), meta.Referer)
	usecase := optionalText(req.Usecase)

	status := models.SubmissionStatusPending
	if s.settings.AutoActivate {
		status = models.SubmissionStatusActive
	}

	return &models.Submission{
		ID:          uuid.New().String(),
		Email:       string(req.Email),
		Role:        optionalText(req.Role),
		Usecase:     usecase,
		Keywords:    ExtractKeywords(req.Keywords, usecase),
		Status:      status,
		Source:      attribution.Source,
		UTMSource:   attribution.UTMSource,
		UTMMedium:   attribution.UTMMedium,
		UTMCampaign: attribution.UTMCampaign,
		UTMTerm:     attribution.UTMTerm,
		UTMContent:  attribution.UTMContent,
		Consent:     ResolveConsent(req.Consent, s.settings.RequireConsent),
		IP:          meta.ClientIP,
		UserAgent:   meta.UserAgent,
		CreatedAt:   s.now().UTC(),
	}
}

// publishSubmitted is best effort; failures are logged and swallowed.
func (s *waitlistService) publishSubmitted(ctx context.Context, logger *log.Logger, created *models.Submission) {
	if s.publisher == nil {
		return
	}

	event := events.Event{
		Type:       EventSubmitted,
		OccurredAt: s.now().UTC(),
		Payload: SubmittedPayload{
			ID:     created.ID,
			Email:  created.Email,
			Status: created.Status,
			Source: created.Source,
		},
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish waitlist event", "event", EventSubmitted, "id", created.ID, "error", err)
	}
}

func (s *waitlistService) record(span trace.Span, outcome string, err error) {
	s.metrics.Observe(outcome)
	span.SetAttributes(attribute.String("waitlist.outcome", outcome))

	if err != nil && apperrors.HTTPStatusCode(err) >= apperrors.StatusInternalServerError {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
}
