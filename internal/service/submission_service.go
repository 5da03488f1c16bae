package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"clickbag.eco/backend/internal/agent"
	"clickbag.eco/backend/internal/dto"
	"clickbag.eco/backend/internal/ledger"
	"clickbag.eco/backend/internal/model"
	"clickbag.eco/backend/internal/repository"
	"clickbag.eco/backend/pkg/apperror"
	"clickbag.eco/backend/pkg/fingerprint"
	"clickbag.eco/backend/pkg/imaging"
	"clickbag.eco/backend/pkg/storage"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	actionSubmit = "submit_bag"

	reasonLimitReached     = "You have reached your tree planting limit. Thank you for all your contributions!"
	reasonDuplicateImage   = "This photo has already been submitted. Each bag photo can only be credited once."
	reasonDuplicateReceipt = "A receipt with the same store, date and total has already been credited to your account."
)

type SubmissionService interface {
	// Submit runs one upload attempt end to end: eligibility gate, image
	// normalization, image dedup, AI validation, receipt dedup, ledger
	// commit. Expected rejections come back as a non-valid result; only
	// faults (decode, validator outage, commit failure) return errors.
	Submit(ctx context.Context, identity model.CallerIdentity, photo []byte, input dto.SubmissionInput) (*dto.SubmissionResult, error)
	ListMine(ctx context.Context, identity model.CallerIdentity, limit, offset int) ([]*model.Submission, error)
	Profile(ctx context.Context, identity model.CallerIdentity) (*dto.ProfileResponse, error)
}

type submissionService struct {
	userRepo       repository.UserRepository
	submissionRepo repository.SubmissionRepository
	ledgerRepo     repository.LedgerRepository
	validator      agent.ReceiptValidator
	photos         storage.PhotoStorage
	photoFolder    string
	search         SearchService
	stats          StatsService
	redisClient    *redis.Client
	rateWindow     time.Duration
	sanitizer      *bluemonday.Policy
}

func NewSubmissionService(
	userRepo repository.UserRepository,
	submissionRepo repository.SubmissionRepository,
	ledgerRepo repository.LedgerRepository,
	validator agent.ReceiptValidator,
	photos storage.PhotoStorage,
	photoFolder string,
	search SearchService,
	stats StatsService,
	redisClient *redis.Client,
	rateWindow time.Duration,
) SubmissionService {
	return &submissionService{
		userRepo:       userRepo,
		submissionRepo: submissionRepo,
		ledgerRepo:     ledgerRepo,
		validator:      validator,
		photos:         photos,
		photoFolder:    photoFolder,
		search:         search,
		stats:          stats,
		redisClient:    redisClient,
		rateWindow:     rateWindow,
		sanitizer:      bluemonday.StrictPolicy(),
	}
}

func (s *submissionService) Submit(ctx context.Context, identity model.CallerIdentity, photo []byte, input dto.SubmissionInput) (*dto.SubmissionResult, error) {
	allowed, err := CheckAndSetRateLimit(ctx, s.redisClient, identity.UID, actionSubmit, s.rateWindow)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperror.ErrRateLimitExceeded
	}

	// Eligibility gate: must run before any AI cost and before any write.
	user, err := s.userRepo.FindByID(ctx, identity.UID.String())
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if user != nil {
		if ledger.TreesFor(user.TotalPoints) >= ledger.EffectiveMaxTrees(user.MaxTrees) {
			return rejected(reasonLimitReached), nil
		}
	}

	normalized, err := imaging.Normalize(photo)
	if err != nil {
		// A broken upload shouldn't burn the user's rate window.
		s.clearRateLimit(ctx, identity)
		return nil, err
	}

	// Image dedup happens before validation so duplicates never spend an AI
	// call. The lookup runs outside the commit transaction; the unique
	// index on image_hash backstops the narrow concurrent-submit race.
	imageHash := fingerprint.Image(normalized)
	exists, err := s.submissionRepo.ExistsByImageHash(ctx, imageHash)
	if err != nil {
		return nil, err
	}
	if exists {
		return rejected(reasonDuplicateImage), nil
	}

	var geo *agent.GeoHint
	if input.Latitude != nil && input.Longitude != nil {
		geo = &agent.GeoHint{Latitude: *input.Latitude, Longitude: *input.Longitude}
	}

	verdict, err := s.validator.Validate(ctx, normalized, time.Now(), geo)
	if err != nil {
		return nil, err
	}

	details := s.sanitizer.Sanitize(verdict.ValidationDetails)
	geolocation := verdict.Geolocation
	if geolocation == "" {
		geolocation = "N/A"
	}

	var receiptHash *string
	if verdict.IsValid && verdict.StoreName != "" && verdict.ReceiptDate != "" && verdict.TotalAmount != "" {
		hash := fingerprint.Receipt(verdict.StoreName, verdict.ReceiptDate, verdict.TotalAmount)
		dup, err := s.submissionRepo.ExistsByUserAndReceiptHash(ctx, identity.UID, hash)
		if err != nil {
			return nil, err
		}
		if dup {
			// Blocked before the commit stage: no audit row is written,
			// unlike the image dedup path.
			return rejected(reasonDuplicateReceipt), nil
		}
		receiptHash = &hash
	}

	submission := &model.Submission{
		UserID:             identity.UID,
		Geolocation:        geolocation,
		ValidationDetails:  details,
		ImageHash:          imageHash,
		ReceiptContentHash: receiptHash,
		PhotoURL:           s.persistPhoto(ctx, identity, normalized),
	}

	if !verdict.IsValid {
		submission.Status = model.SubmissionRejected
		submission.Points = 0
		if err := s.submissionRepo.Create(ctx, submission); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return rejected(reasonDuplicateImage), nil
			}
			return nil, fmt.Errorf("%w: %v", apperror.ErrCommitFailure, err)
		}
		s.indexAsync(submission, identity.Email)

		return &dto.SubmissionResult{
			IsValid:     false,
			ClickPoints: 0,
			Reason:      details,
			Submission:  submission,
		}, nil
	}

	// The fixed award applies regardless of what number the model returned.
	submission.Status = model.SubmissionApproved
	submission.Points = ledger.ClickPointsPerValidation

	if err := s.ledgerRepo.CommitApproved(ctx, identity, submission); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return rejected(reasonDuplicateImage), nil
		}
		return nil, err
	}

	s.indexAsync(submission, identity.Email)
	s.stats.NotifyChanged(ctx)

	return &dto.SubmissionResult{
		IsValid:     true,
		ClickPoints: submission.Points,
		Reason:      details,
		Submission:  submission,
	}, nil
}

func (s *submissionService) ListMine(ctx context.Context, identity model.CallerIdentity, limit, offset int) ([]*model.Submission, error) {
	return s.submissionRepo.ListByUser(ctx, identity.UID, limit, offset)
}

func (s *submissionService) Profile(ctx context.Context, identity model.CallerIdentity) (*dto.ProfileResponse, error) {
	user, err := s.userRepo.FindByID(ctx, identity.UID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	user.PasswordHash = ""
	maxTrees := ledger.EffectiveMaxTrees(user.MaxTrees)

	return &dto.ProfileResponse{
		User:           user,
		MaxTrees:       maxTrees,
		RemainingTrees: ledger.ClampNonNegative(maxTrees - user.TotalTrees),
	}, nil
}

// persistPhoto uploads the normalized photo for admin review. Best-effort:
// the ledger must not depend on a CDN write.
func (s *submissionService) persistPhoto(ctx context.Context, identity model.CallerIdentity, normalized []byte) *string {
	if s.photos == nil {
		return nil
	}

	fileName := fmt.Sprintf("%s.jpg", identity.UID)
	url, err := s.photos.UploadPhoto(ctx, bytes.NewReader(normalized), s.photoFolder, fileName)
	if err != nil {
		log.Printf("failed to persist submission photo for user %s: %v", identity.UID, err)
		return nil
	}
	return &url
}

func (s *submissionService) indexAsync(submission *model.Submission, ownerEmail string) {
	if s.search == nil {
		return
	}
	sub := *submission
	go func() {
		if err := s.search.IndexSubmission(&sub, ownerEmail); err != nil {
			log.Printf("failed to index submission %s: %v", sub.ID, err)
		}
	}()
}

func (s *submissionService) clearRateLimit(ctx context.Context, identity model.CallerIdentity) {
	if err := ClearRateLimit(ctx, s.redisClient, identity.UID, actionSubmit); err != nil {
		log.Printf("failed to clear rate limit for user %s: %v", identity.UID, err)
	}
}

func rejected(reason string) *dto.SubmissionResult {
	return &dto.SubmissionResult{
		IsValid:     false,
		ClickPoints: 0,
		Reason:      reason,
	}
}
