package waitlist

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/akeren/waitlist-api/internal/models"
)

// trimmedString drops surrounding whitespace while decoding so validation
// sees the value that will be stored.
type trimmedString string

func (s *trimmedString) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = trimmedString(strings.TrimSpace(raw))
	return nil
}

// keywordList accepts either a JSON array of strings or a single
// comma-separated string.
type keywordList []string

func (k *keywordList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*k = list
		return nil
	}

	var joined *string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	if joined == nil {
		*k = nil
		return nil
	}
	*k = strings.Split(*joined, ",")
	return nil
}

type SubmitRequest struct {
	Email        trimmedString `json:"email" binding:"required,email,max=320"`
	Role         *string       `json:"role" binding:"omitempty,max=200"`
	Usecase      *string       `json:"usecase" binding:"omitempty,max=2000"`
	Keywords     keywordList   `json:"keywords" binding:"omitempty,max=50,dive,max=64"`
	HP           any           `json:"hp"`
	Source       *string       `json:"source" binding:"omitempty,max=200"`
	UTMSource    *string       `json:"utm_source" binding:"omitempty,max=200"`
	UTMMedium    *string       `json:"utm_medium" binding:"omitempty,max=200"`
	UTMCampaign  *string       `json:"utm_campaign" binding:"omitempty,max=200"`
	UTMTerm      *string       `json:"utm_term" binding:"omitempty,max=200"`
	UTMContent   *string       `json:"utm_content" binding:"omitempty,max=200"`
	Consent      *bool         `json:"consent"`
	CaptchaToken string        `json:"captcha_token"`
}

// honeypotFilled reports whether the hidden form field carries a truthy value.
func (r *SubmitRequest) honeypotFilled() bool {
	switch v := r.HP.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return true
	}
}

func (r *SubmitRequest) explicitAttribution() Attribution {
	return Attribution{
		Source:      r.Source,
		UTMSource:   r.UTMSource,
		UTMMedium:   r.UTMMedium,
		UTMCampaign: r.UTMCampaign,
		UTMTerm:     r.UTMTerm,
		UTMContent:  r.UTMContent,
	}
}

// eventFields is the waitlist_submitted log payload. The captcha token keeps
// its key so the event logger redacts it.
func (r *SubmitRequest) eventFields(created *models.Submission) map[string]any {
	fields := map[string]any{
		"id":       created.ID,
		"email":    created.Email,
		"status":   created.Status,
		"role":     created.Role,
		"usecase":  created.Usecase,
		"keywords": created.Keywords,
		"source":   created.Source,
		"consent":  created.Consent,
	}
	if r.CaptchaToken != "" {
		fields["captcha_token"] = r.CaptchaToken
	}
	return fields
}

// RequestMeta is what the transport knows about the caller.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
	Referer   string
}

type SubmissionResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Role        *string   `json:"role"`
	Usecase     *string   `json:"usecase"`
	Keywords    []string  `json:"keywords"`
	Status      string    `json:"status"`
	Source      *string   `json:"source"`
	UTMSource   *string   `json:"utm_source,omitempty"`
	UTMMedium   *string   `json:"utm_medium,omitempty"`
	UTMCampaign *string   `json:"utm_campaign,omitempty"`
	UTMTerm     *string   `json:"utm_term,omitempty"`
	UTMContent  *string   `json:"utm_content,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func ToSubmissionResponse(s *models.Submission) SubmissionResponse {
	keywords := s.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	return SubmissionResponse{
		ID:          s.ID,
		Email:       s.Email,
		Role:        s.Role,
		Usecase:     s.Usecase,
		Keywords:    keywords,
		Status:      s.Status,
		Source:      s.Source,
		UTMSource:   s.UTMSource,
		UTMMedium:   s.UTMMedium,
		UTMCampaign: s.UTMCampaign,
		UTMTerm:     s.UTMTerm,
		UTMContent:  s.UTMContent,
		CreatedAt:   s.CreatedAt,
	}
}

func ToSubmissionResponses(submissions []*models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, s := range submissions {
		responses = append(responses, ToSubmissionResponse(s))
	}
	return responses
}

// optionalText maps blank input to NULL.
func optionalText(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
