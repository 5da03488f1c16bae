package repository

import (
	"context"
	"errors"

	"clickbag.eco/backend/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubmissionRepository interface {
	// Create inserts a submission record without touching any aggregate.
	// Used for rejected-verdict audit rows; approved submissions go
	// through LedgerRepository.CommitApproved instead.
	Create(ctx context.Context, submission *model.Submission) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Submission, error)
	ExistsByImageHash(ctx context.Context, imageHash string) (bool, error)
	ExistsByUserAndReceiptHash(ctx context.Context, userID uuid.UUID, receiptHash string) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.Submission, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*model.Submission, error)
	CountByStatus(ctx context.Context, status model.SubmissionStatus) (int64, error)
}

type submissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, submission *model.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	var submission model.Submission
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&submission).Error; err != nil {
		return nil, err
	}

	return &submission, nil
}

func (r *submissionRepository) ExistsByImageHash(ctx context.Context, imageHash string) (bool, error) {
	var submission model.Submission
	err := r.db.WithContext(ctx).
		Select("id").
		Where("image_hash = ?", imageHash).
		First(&submission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *submissionRepository) ExistsByUserAndReceiptHash(ctx context.Context, userID uuid.UUID, receiptHash string) (bool, error) {
	var submission model.Submission
	err := r.db.WithContext(ctx).
		Select("id").
		Where("user_id = ? AND receipt_content_hash = ?", userID, receiptHash).
		First(&submission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *submissionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.Submission, error) {
	var submissions []*model.Submission
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) ListRecent(ctx context.Context, limit, offset int) ([]*model.Submission, error) {
	var submissions []*model.Submission
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) CountByStatus(ctx context.Context, status model.SubmissionStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
