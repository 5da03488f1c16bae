package service

import (
	"context"
	"sync"
	"time"

	"clickbag.eco/backend/internal/agent"
	"clickbag.eco/backend/internal/ledger"
	"clickbag.eco/backend/internal/model"
	"clickbag.eco/backend/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memStore is a shared in-memory backing for the repository fakes. It mirrors
// the transactional semantics of the real repositories closely enough to
// exercise the service layer, including the unique image-hash constraint and
// the aggregate ripple on commit and reversal.
type memStore struct {
	mu          sync.Mutex
	users       map[uuid.UUID]*model.User
	submissions map[uuid.UUID]*model.Submission
	stats       model.CommunityStats
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[uuid.UUID]*model.User),
		submissions: make(map[uuid.UUID]*model.Submission),
		stats:       model.CommunityStats{ID: model.CommunityStatsID},
	}
}

func (m *memStore) addUser(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *memStore) userByID(id uuid.UUID) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *memStore) submissionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.submissions)
}

func (m *memStore) imageHashTaken(hash string) bool {
	for _, sub := range m.submissions {
		if sub.ImageHash == hash {
			return true
		}
	}
	return false
}

type fakeUserRepo struct {
	store *memStore
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.users[uid]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindAll(ctx context.Context) ([]*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	users := make([]*model.User, 0, len(r.store.users))
	for _, user := range r.store.users {
		copied := *user
		users = append(users, &copied)
	}
	return users, nil
}

func (r *fakeUserRepo) Count(ctx context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.users)), nil
}

type fakeSubmissionRepo struct {
	store *memStore
}

func (r *fakeSubmissionRepo) Create(ctx context.Context, submission *model.Submission) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.imageHashTaken(submission.ImageHash) {
		return gorm.ErrDuplicatedKey
	}
	if submission.ID == uuid.Nil {
		submission.ID = uuid.New()
	}
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now()
	}
	copied := *submission
	r.store.submissions[submission.ID] = &copied
	return nil
}

func (r *fakeSubmissionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sub, ok := r.store.submissions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *sub
	return &copied, nil
}

func (r *fakeSubmissionRepo) ExistsByImageHash(ctx context.Context, imageHash string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.imageHashTaken(imageHash), nil
}

func (r *fakeSubmissionRepo) ExistsByUserAndReceiptHash(ctx context.Context, userID uuid.UUID, receiptHash string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, sub := range r.store.submissions {
		if sub.UserID == userID && sub.ReceiptContentHash != nil && *sub.ReceiptContentHash == receiptHash {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSubmissionRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.Submission, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var subs []*model.Submission
	for _, sub := range r.store.submissions {
		if sub.UserID == userID {
			copied := *sub
			subs = append(subs, &copied)
		}
	}
	return subs, nil
}

func (r *fakeSubmissionRepo) ListRecent(ctx context.Context, limit, offset int) ([]*model.Submission, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var subs []*model.Submission
	for _, sub := range r.store.submissions {
		copied := *sub
		subs = append(subs, &copied)
	}
	return subs, nil
}

func (r *fakeSubmissionRepo) CountByStatus(ctx context.Context, status model.SubmissionStatus) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var count int64
	for _, sub := range r.store.submissions {
		if sub.Status == status {
			count++
		}
	}
	return count, nil
}

type fakeLedgerRepo struct {
	store *memStore
}

func (r *fakeLedgerRepo) CommitApproved(ctx context.Context, identity model.CallerIdentity, submission *model.Submission) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.imageHashTaken(submission.ImageHash) {
		return gorm.ErrDuplicatedKey
	}
	if submission.ID == uuid.Nil {
		submission.ID = uuid.New()
	}
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now()
	}
	copied := *submission
	r.store.submissions[submission.ID] = &copied

	user, ok := r.store.users[submission.UserID]
	if !ok {
		user = &model.User{
			ID:          identity.UID,
			Email:       identity.Email,
			DisplayName: identity.DisplayName,
		}
		r.store.users[user.ID] = user
	}
	user.TotalPoints, user.TotalTrees = ledger.ApplyAward(user.TotalPoints, submission.Points)

	r.store.stats.TotalClickPoints += submission.Points
	r.store.stats.TotalTreesPlanted += ledger.TreesPerValidation
	return nil
}

func (r *fakeLedgerRepo) Reverse(ctx context.Context, submissionID uuid.UUID) (*model.Submission, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	submission, ok := r.store.submissions[submissionID]
	if !ok {
		return nil, apperror.ErrNotFound
	}

	if user, ok := r.store.users[submission.UserID]; ok {
		user.TotalPoints, user.TotalTrees = ledger.ApplyReversal(user.TotalPoints, submission.Points)
	}
	if submission.Status == model.SubmissionApproved {
		r.store.stats.TotalClickPoints = ledger.ClampNonNegative(r.store.stats.TotalClickPoints - submission.Points)
		r.store.stats.TotalTreesPlanted = ledger.ClampNonNegative(r.store.stats.TotalTreesPlanted - ledger.TreesPerValidation)
	}

	delete(r.store.submissions, submissionID)
	copied := *submission
	return &copied, nil
}

func (r *fakeLedgerRepo) SetUserPoints(ctx context.Context, userID uuid.UUID, newTotalPoints int) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	user, ok := r.store.users[userID]
	if !ok {
		return nil, apperror.ErrNotFound
	}

	delta := newTotalPoints - user.TotalPoints
	user.TotalPoints = newTotalPoints
	user.TotalTrees = ledger.TreesFor(newTotalPoints)
	r.store.stats.TotalClickPoints += delta

	copied := *user
	return &copied, nil
}

func (r *fakeLedgerRepo) SetUserCap(ctx context.Context, userID uuid.UUID, newLimit int) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	user, ok := r.store.users[userID]
	if !ok {
		return nil, apperror.ErrNotFound
	}

	user.MaxTrees = newLimit
	copied := *user
	return &copied, nil
}

func (r *fakeLedgerRepo) GetCommunityStats(ctx context.Context) (*model.CommunityStats, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := r.store.stats
	return &copied, nil
}

// fakeValidator returns a scripted verdict or error and records whether it
// was consulted at all.
type fakeValidator struct {
	verdict *agent.Verdict
	err     error
	called  bool
}

func (v *fakeValidator) Validate(ctx context.Context, normalizedJPEG []byte, now time.Time, geo *agent.GeoHint) (*agent.Verdict, error) {
	v.called = true
	if v.err != nil {
		return nil, v.err
	}
	copied := *v.verdict
	return &copied, nil
}

func (v *fakeValidator) Close() {}
