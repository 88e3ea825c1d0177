package monitoring

import (
	"context"

	"github.com/akeren/waitlist-api/internal/models"
	"github.com/akeren/waitlist-api/pkg/constants"
	apperrors "github.com/akeren/waitlist-api/pkg/errors"
	"gorm.io/gorm"
)

type StatusCheckRepository interface {
	Create(ctx context.Context, check *models.StatusCheck) (*models.StatusCheck, error)
	List(ctx context.Context) ([]*models.StatusCheck, error)
}

type statusCheckRepository struct {
	db *gorm.DB
}

func NewStatusCheckRepository(db *gorm.DB) StatusCheckRepository {
	return &statusCheckRepository{db: db}
}

func (r *statusCheckRepository) Create(ctx context.Context, check *models.StatusCheck) (*models.StatusCheck, error) {
	if err := r.db.WithContext(ctx).Create(check).Error; err != nil {
		return nil, apperrors.NewDatabaseError("unable to record status check", err)
	}
	return check, nil
}

func (r *statusCheckRepository) List(ctx context.Context) ([]*models.StatusCheck, error) {
	var checks []*models.StatusCheck
	if err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(constants.StatusCheckListCap).
		Find(&checks).Error; err != nil {
		return nil, apperrors.NewDatabaseError("unable to fetch status checks", err)
	}
	return checks, nil
}
