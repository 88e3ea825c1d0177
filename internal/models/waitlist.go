package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SubmissionStatusPending = "pending"
	SubmissionStatusActive  = "active"
)

// Submission is one waitlist signup. Rows are written once and never updated.
type Submission struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email       string    `gorm:"type:varchar(320);not null;uniqueIndex" json:"email"`
	Role        *string   `json:"role"`
	Usecase     *string   `json:"usecase"`
	Keywords    []string  `gorm:"type:text;serializer:json" json:"keywords"`
	Status      string    `gorm:"type:varchar(20);not null" json:"status"`
	Source      *string   `json:"source"`
	UTMSource   *string   `gorm:"column:utm_source" json:"utm_source,omitempty"`
	UTMMedium   *string   `gorm:"column:utm_medium" json:"utm_medium,omitempty"`
	UTMCampaign *string   `gorm:"column:utm_campaign" json:"utm_campaign,omitempty"`
	UTMTerm     *string   `gorm:"column:utm_term" json:"utm_term,omitempty"`
	UTMContent  *string   `gorm:"column:utm_content" json:"utm_content,omitempty"`
	Consent     bool      `gorm:"not null" json:"-"`
	IP          string    `gorm:"type:varchar(64)" json:"-"`
	UserAgent   string    `json:"-"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
}

func (Submission) TableName() string {
	return "waitlist_submissions"
}

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.Email = strings.TrimSpace(s.Email)
	if s.Status == "" {
		s.Status = SubmissionStatusPending
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return nil
}
