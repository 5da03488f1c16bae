package repository

import (
	"context"
	"errors"
	"fmt"

	"clickbag.eco/backend/internal/ledger"
	"clickbag.eco/backend/internal/model"
	"clickbag.eco/backend/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository owns every mutation that spans more than one document:
// submission commits, reversals and admin point edits. Each method is one
// database transaction; the caller either sees all effects or none.
type LedgerRepository interface {
	// CommitApproved writes an approved submission and folds its award
	// into the owner's totals and the community counters. The user row is
	// created on first ledger write, capturing the caller's email and
	// display name.
	CommitApproved(ctx context.Context, identity model.CallerIdentity, submission *model.Submission) error
	// Reverse undoes a submission's ledger effects and deletes it,
	// returning the deleted record. Rejected submissions carry no
	// aggregate effect, so only the row is removed.
	Reverse(ctx context.Context, submissionID uuid.UUID) (*model.Submission, error)
	// SetUserPoints overwrites a user's point total. The delta ripples
	// into the community click-point counter; trees planted never move.
	SetUserPoints(ctx context.Context, userID uuid.UUID, newTotalPoints int) (*model.User, error)
	// SetUserCap updates the per-user contribution cap. No aggregate ripple.
	SetUserCap(ctx context.Context, userID uuid.UUID, newLimit int) (*model.User, error)
	GetCommunityStats(ctx context.Context) (*model.CommunityStats, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) CommitApproved(ctx context.Context, identity model.CallerIdentity, submission *model.Submission) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(submission).Error; err != nil {
			return err
		}

		user, err := lockUser(tx, submission.UserID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			// First ledger write for this identity.
			user = &model.User{
				ID:          identity.UID,
				Email:       identity.Email,
				DisplayName: identity.DisplayName,
			}
			if err := tx.Create(user).Error; err != nil {
				return err
			}
		}

		newPoints, newTrees := ledger.ApplyAward(user.TotalPoints, submission.Points)
		if err := tx.Model(&model.User{}).
			Where("id = ?", user.ID).
			Updates(map[string]interface{}{
				"total_points": newPoints,
				"total_trees":  newTrees,
			}).Error; err != nil {
			return err
		}

		stats, err := lockCommunityStats(tx)
		if err != nil {
			return err
		}
		return tx.Model(&model.CommunityStats{}).
			Where("id = ?", model.CommunityStatsID).
			Updates(map[string]interface{}{
				"total_click_points":  stats.TotalClickPoints + submission.Points,
				"total_trees_planted": stats.TotalTreesPlanted + ledger.TreesPerValidation,
			}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		return fmt.Errorf("%w: %v", apperror.ErrCommitFailure, err)
	}
	return nil
}

func (r *ledgerRepository) Reverse(ctx context.Context, submissionID uuid.UUID) (*model.Submission, error) {
	var reversed *model.Submission
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var submission model.Submission
		if err := tx.Where("id = ?", submissionID).First(&submission).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.ErrNotFound
			}
			return err
		}

		// The owner may have been deleted out of band; the reversal still
		// proceeds against the community counters.
		user, err := lockUser(tx, submission.UserID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if user != nil {
			newPoints, newTrees := ledger.ApplyReversal(user.TotalPoints, submission.Points)
			if err := tx.Model(&model.User{}).
				Where("id = ?", user.ID).
				Updates(map[string]interface{}{
					"total_points": newPoints,
					"total_trees":  newTrees,
				}).Error; err != nil {
				return err
			}
		}

		if submission.Status == model.SubmissionApproved {
			stats, err := lockCommunityStats(tx)
			if err != nil {
				return err
			}
			if err := tx.Model(&model.CommunityStats{}).
				Where("id = ?", model.CommunityStatsID).
				Updates(map[string]interface{}{
					"total_click_points":  ledger.ClampNonNegative(stats.TotalClickPoints - submission.Points),
					"total_trees_planted": ledger.ClampNonNegative(stats.TotalTreesPlanted - ledger.TreesPerValidation),
				}).Error; err != nil {
				return err
			}
		}

		if err := tx.Delete(&model.Submission{}, "id = ?", submission.ID).Error; err != nil {
			return err
		}

		reversed = &submission
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", apperror.ErrCommitFailure, err)
	}
	return reversed, nil
}

func (r *ledgerRepository) SetUserPoints(ctx context.Context, userID uuid.UUID, newTotalPoints int) (*model.User, error) {
	var updated *model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.ErrNotFound
			}
			return err
		}

		delta := newTotalPoints - user.TotalPoints
		newTrees := ledger.TreesFor(newTotalPoints)
		if err := tx.Model(&model.User{}).
			Where("id = ?", user.ID).
			Updates(map[string]interface{}{
				"total_points": newTotalPoints,
				"total_trees":  newTrees,
			}).Error; err != nil {
			return err
		}

		stats, err := lockCommunityStats(tx)
		if err != nil {
			return err
		}
		// Point edits never fabricate or erase planted trees.
		if err := tx.Model(&model.CommunityStats{}).
			Where("id = ?", model.CommunityStatsID).
			Update("total_click_points", stats.TotalClickPoints+delta).Error; err != nil {
			return err
		}

		user.TotalPoints = newTotalPoints
		user.TotalTrees = newTrees
		updated = user
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", apperror.ErrCommitFailure, err)
	}
	return updated, nil
}

func (r *ledgerRepository) SetUserCap(ctx context.Context, userID uuid.UUID, newLimit int) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("max_trees", newLimit).Error; err != nil {
		return nil, err
	}

	user.MaxTrees = newLimit
	return &user, nil
}

func (r *ledgerRepository) GetCommunityStats(ctx context.Context) (*model.CommunityStats, error) {
	var stats model.CommunityStats
	err := r.db.WithContext(ctx).Where("id = ?", model.CommunityStatsID).First(&stats).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.CommunityStats{ID: model.CommunityStatsID}, nil
		}
		return nil, err
	}
	return &stats, nil
}

func lockUser(tx *gorm.DB, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// lockCommunityStats loads the singleton row for update, creating it on the
// first ever commit.
func lockCommunityStats(tx *gorm.DB) (*model.CommunityStats, error) {
	var stats model.CommunityStats
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", model.CommunityStatsID).
		First(&stats).Error
	if err == nil {
		return &stats, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	stats = model.CommunityStats{ID: model.CommunityStatsID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&stats).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
