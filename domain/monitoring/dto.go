package monitoring

import (
	"time"

	"github.com/akeren/waitlist-api/internal/models"
)

type HealthStatus struct {
	Database int `json:"database"` // 1 = healthy, 0 = unhealthy
	Cache    int `json:"cache"`    // 1 = healthy, 0 = unhealthy/not configured
	Uptime   int `json:"uptime"`   // uptime in seconds
}

type CreateStatusCheckRequest struct {
	ClientName string `json:"client_name" binding:"required,max=255"`
}

type StatusCheckResponse struct {
	ID         string    `json:"id"`
	ClientName string    `json:"client_name"`
	Timestamp  time.Time `json:"timestamp"`
}

func ToStatusCheckResponse(check *models.StatusCheck) StatusCheckResponse {
	return StatusCheckResponse{
		ID:         check.ID,
		ClientName: check.ClientName,
		Timestamp:  check.Timestamp,
	}
}
