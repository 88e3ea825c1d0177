package waitlist

import (
	"context"
	"errors"
	"time"

	"github.com/akeren/waitlist-api/internal/models"
	"github.com/akeren/waitlist-api/pkg/constants"
	apperrors "github.com/akeren/waitlist-api/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=waitlist

type WaitlistRepository interface {
	// Insert stores a submission unless its email is already taken, in which
	// case it returns a conflict wrapping ErrDuplicateSubmission.
	Insert(ctx context.Context, submission *models.Submission) (*models.Submission, error)
	// List returns up to limit submissions, newest first.
	List(ctx context.Context, limit int) ([]*models.Submission, error)
}

type waitlistRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewWaitlistRepository(db *gorm.DB, timeout time.Duration) WaitlistRepository {
	if timeout <= 0 {
		timeout = constants.DefaultOutboundTimeout
	}
	return &waitlistRepository{db: db, timeout: timeout}
}

func (wr *waitlistRepository) Insert(ctx context.Context, submission *models.Submission) (*models.Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, wr.timeout)
	defer cancel()

	result := wr.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).
		Create(submission)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) || apperrors.IsDuplicateKeyError(result.Error) {
			return nil, duplicateError()
		}
		return nil, apperrors.NewDatabaseError(msgStoreFailed, result.Error)
	}

	if result.RowsAffected == 0 {
		return nil, duplicateError()
	}

	return submission, nil
}

func (wr *waitlistRepository) List(ctx context.Context, limit int) ([]*models.Submission, error) {
	if limit <= 0 || limit > constants.ListingSafetyCap {
		limit = constants.ListingSafetyCap
	}

	ctx, cancel := context.WithTimeout(ctx, wr.timeout)
	defer cancel()

	var submissions []*models.Submission
	if err := wr.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&submissions).Error; err != nil {
		return nil, apperrors.NewDatabaseError("unable to fetch waitlist submissions", err)
	}

	return submissions, nil
}

func duplicateError() error {
	return apperrors.NewConflictError(msgDuplicate, ErrDuplicateSubmission)
}
