package service

import (
	"context"
	"log"

	"clickbag.eco/backend/internal/dto"
	"clickbag.eco/backend/internal/model"
	"clickbag.eco/backend/internal/repository"
	"clickbag.eco/backend/pkg/apperror"
	"clickbag.eco/backend/pkg/storage"
	"github.com/google/uuid"
)

// AdminService holds the privileged overrides. Every entry point checks the
// caller against the configured administrator address; route middleware is
// a convenience on top, not the enforcement point.
type AdminService interface {
	SetUserPoints(ctx context.Context, caller model.CallerIdentity, userID uuid.UUID, input dto.SetPointsInput) (*model.User, error)
	SetUserTreeLimit(ctx context.Context, caller model.CallerIdentity, userID uuid.UUID, input dto.SetTreeLimitInput) (*model.User, error)
	DeleteSubmission(ctx context.Context, caller model.CallerIdentity, submissionID uuid.UUID) error
	ListUsers(ctx context.Context, caller model.CallerIdentity) ([]*model.User, error)
	ListSubmissions(ctx context.Context, caller model.CallerIdentity, limit, offset int) ([]*model.Submission, error)
}

type adminService struct {
	userRepo       repository.UserRepository
	submissionRepo repository.SubmissionRepository
	ledgerRepo     repository.LedgerRepository
	photos         storage.PhotoStorage
	search         SearchService
	stats          StatsService
	adminEmail     string
}

func NewAdminService(
	userRepo repository.UserRepository,
	submissionRepo repository.SubmissionRepository,
	ledgerRepo repository.LedgerRepository,
	photos storage.PhotoStorage,
	search SearchService,
	stats StatsService,
	adminEmail string,
) AdminService {
	return &adminService{
		userRepo:       userRepo,
		submissionRepo: submissionRepo,
		ledgerRepo:     ledgerRepo,
		photos:         photos,
		search:         search,
		stats:          stats,
		adminEmail:     adminEmail,
	}
}

// authorize implements the single-admin capability check.
func (s *adminService) authorize(caller model.CallerIdentity) error {
	if s.adminEmail == "" || caller.Email != s.adminEmail {
		return apperror.ErrForbidden
	}
	return nil
}

func (s *adminService) SetUserPoints(ctx context.Context, caller model.CallerIdentity, userID uuid.UUID, input dto.SetPointsInput) (*model.User, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}

	user, err := s.ledgerRepo.SetUserPoints(ctx, userID, *input.TotalPoints)
	if err != nil {
		return nil, err
	}

	s.stats.NotifyChanged(ctx)
	user.PasswordHash = ""
	return user, nil
}

func (s *adminService) SetUserTreeLimit(ctx context.Context, caller model.CallerIdentity, userID uuid.UUID, input dto.SetTreeLimitInput) (*model.User, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}

	user, err := s.ledgerRepo.SetUserCap(ctx, userID, input.MaxTrees)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *adminService) DeleteSubmission(ctx context.Context, caller model.CallerIdentity, submissionID uuid.UUID) error {
	if err := s.authorize(caller); err != nil {
		return err
	}

	reversed, err := s.ledgerRepo.Reverse(ctx, submissionID)
	if err != nil {
		return err
	}

	// Cleanup outside the transaction: the ledger is already consistent,
	// a failed CDN or index delete only leaves orphans.
	if s.photos != nil && reversed.PhotoURL != nil {
		if err := s.photos.DeletePhoto(ctx, *reversed.PhotoURL); err != nil {
			log.Printf("failed to delete photo of submission %s: %v", reversed.ID, err)
		}
	}
	if s.search != nil {
		if err := s.search.DeleteSubmission(reversed.ID.String()); err != nil {
			log.Printf("failed to unindex submission %s: %v", reversed.ID, err)
		}
	}

	if reversed.Status == model.SubmissionApproved {
		s.stats.NotifyChanged(ctx)
	}
	return nil
}

func (s *adminService) ListUsers(ctx context.Context, caller model.CallerIdentity) ([]*model.User, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}

	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		u.PasswordHash = ""
	}
	return users, nil
}

func (s *adminService) ListSubmissions(ctx context.Context, caller model.CallerIdentity, limit, offset int) ([]*model.Submission, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}

	return s.submissionRepo.ListRecent(ctx, limit, offset)
}
