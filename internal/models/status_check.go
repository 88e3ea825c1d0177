package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusCheck records a client pinging the status endpoint.
type StatusCheck struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ClientName string    `gorm:"type:varchar(255);not null" json:"client_name"`
	Timestamp  time.Time `gorm:"not null;index" json:"timestamp"`
}

func (StatusCheck) TableName() string {
	return "status_checks"
}

func (s *StatusCheck) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	return nil
}
