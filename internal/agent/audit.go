package agent

import (
	"context"
	"log"

	"clickbag.eco/backend/internal/ledger"
	"clickbag.eco/backend/internal/model"
	"clickbag.eco/backend/internal/repository"
)

// LedgerAudit verifies the ledger invariants that must always hold:
// per-user totalTrees == floor(totalPoints / PointsPerTree), and the
// community trees-planted counter equals the approved submission count.
// It is read-only. TotalClickPoints is deliberately not reconciled against
// submissions because admin point edits legitimately move it.
type LedgerAudit struct {
	userRepo       repository.UserRepository
	submissionRepo repository.SubmissionRepository
	ledgerRepo     repository.LedgerRepository
	schedule       string
}

func NewLedgerAudit(
	userRepo repository.UserRepository,
	submissionRepo repository.SubmissionRepository,
	ledgerRepo repository.LedgerRepository,
	schedule string,
) *LedgerAudit {
	return &LedgerAudit{
		userRepo:       userRepo,
		submissionRepo: submissionRepo,
		ledgerRepo:     ledgerRepo,
		schedule:       schedule,
	}
}

func (a *LedgerAudit) GetName() string     { return "ledger-audit" }
func (a *LedgerAudit) GetSchedule() string { return a.schedule }

func (a *LedgerAudit) Execute(ctx context.Context) error {
	users, err := a.userRepo.FindAll(ctx)
	if err != nil {
		return err
	}

	violations := 0
	for _, user := range users {
		if want := ledger.TreesFor(user.TotalPoints); user.TotalTrees != want {
			violations++
			log.Printf("[ledger-audit] user %s: total_trees=%d, expected %d from %d points",
				user.ID, user.TotalTrees, want, user.TotalPoints)
		}
	}

	approved, err := a.submissionRepo.CountByStatus(ctx, model.SubmissionApproved)
	if err != nil {
		return err
	}

	stats, err := a.ledgerRepo.GetCommunityStats(ctx)
	if err != nil {
		return err
	}

	if int64(stats.TotalTreesPlanted) != approved {
		violations++
		log.Printf("[ledger-audit] community trees_planted=%d, approved submissions=%d",
			stats.TotalTreesPlanted, approved)
	}

	if violations == 0 {
		log.Printf("[ledger-audit] %d users checked, no violations", len(users))
	} else {
		log.Printf("[ledger-audit] %d violation(s) found", violations)
	}
	return nil
}
