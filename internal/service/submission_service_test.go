package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"clickbag.eco/backend/internal/agent"
	"clickbag.eco/backend/internal/dto"
	"clickbag.eco/backend/internal/model"
	"clickbag.eco/backend/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submissionFixture struct {
	store     *memStore
	validator *fakeValidator
	svc       SubmissionService
}

func newSubmissionFixture(t *testing.T, verdict *agent.Verdict, validatorErr error) *submissionFixture {
	t.Helper()

	store := newMemStore()
	userRepo := &fakeUserRepo{store: store}
	subRepo := &fakeSubmissionRepo{store: store}
	ledgerRepo := &fakeLedgerRepo{store: store}
	validator := &fakeValidator{verdict: verdict, err: validatorErr}
	stats := NewStatsService(ledgerRepo, NewStatsHub())

	svc := NewSubmissionService(userRepo, subRepo, ledgerRepo, validator, nil, "", nil, stats, nil, time.Second)
	return &submissionFixture{store: store, validator: validator, svc: svc}
}

// testPhoto produces a small decodable upload; distinct seeds give distinct
// normalized bytes and therefore distinct image hashes.
func testPhoto(t *testing.T, seed uint8) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, color.RGBA{R: seed, G: uint8(x), B: uint8(y), A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testIdentity() model.CallerIdentity {
	return model.CallerIdentity{
		UID:         uuid.New(),
		Email:       "alice@example.com",
		DisplayName: "Alice",
	}
}

func approvedVerdict() *agent.Verdict {
	return &agent.Verdict{
		IsValid:           true,
		ClickPoints:       10,
		Geolocation:       "Jakarta, Indonesia",
		ValidationDetails: "Bag and matching receipt verified.",
		StoreName:         "GreenMart",
		ReceiptDate:       "2026-08-27",
		TotalAmount:       "45.90",
	}
}

func TestSubmitApprovedFlow(t *testing.T) {
	verdict := approvedVerdict()
	// The award is fixed server-side no matter what number the model returns.
	verdict.ClickPoints = 999

	fx := newSubmissionFixture(t, verdict, nil)
	identity := testIdentity()

	result, err := fx.svc.Submit(context.Background(), identity, testPhoto(t, 1), dto.SubmissionInput{})
	require.NoError(t, err)
	require.True(t, result.IsValid)
	assert.Equal(t, 10, result.ClickPoints)
	require.NotNil(t, result.Submission)
	assert.Equal(t, model.SubmissionApproved, result.Submission.Status)
	assert.Equal(t, 10, result.Submission.Points)
	assert.NotNil(t, result.Submission.ReceiptContentHash)
	assert.Equal(t, "Jakarta, Indonesia", result.Submission.Geolocation)

	// First ledger write creates the user row from the caller identity.
	user := fx.store.userByID(identity.UID)
	require.NotNil(t, user)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, 10, user.TotalPoints)
	assert.Equal(t, 1, user.TotalTrees)

	assert.Equal(t, 10, fx.store.stats.TotalClickPoints)
	assert.Equal(t, 1, fx.store.stats.TotalTreesPlanted)
	assert.Equal(t, 1, fx.store.submissionCount())
}

func TestSubmitDeniedWhenCapReached(t *testing.T) {
	fx := newSubmissionFixture(t, approvedVerdict(), nil)
	identity := testIdentity()
	fx.store.addUser(&model.User{
		ID:          identity.UID,
		Email:       identity.Email,
		TotalPoints: 200,
		TotalTrees:  20,
	})

	result, err := fx.svc.Submit(context.Background(), identity, testPhoto(t, 2), dto.SubmissionInput{})
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, 0, result.ClickPoints)
	assert.Equal(t, reasonLimitReached, result.Reason)

	// The gate denies before the validator spends anything and before any row
	// is written.
	assert.False(t, fx.validator.called)
	assert.Equal(t, 0, fx.store.submissionCount())
	user := fx.store.userByID(identity.UID)
	assert.Equal(t, 200, user.TotalPoints)
}

func TestSubmitHonorsCustomCap(t *testing.T) {
	fx := newSubmissionFixture(t, approvedVerdict(), nil)
	identity := testIdentity()
	fx.store.addUser(&model.User{
		ID:          identity.UID,
		Email:       identity.Email,
		TotalPoints: 30,
		TotalTrees:  3,
		MaxTrees:    3,
	})

	result, err := fx.svc.Submit(context.Background(), identity, testPhoto(t, 3), dto.SubmissionInput{})
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, reasonLimitReached, result.Reason)
	assert.False(t, fx.validator.called)
}

func TestSubmitDuplicateImage(t *testing.T) {
	fx := newSubmissionFixture(t, approvedVerdict(), nil)
	identity := testIdentity()
	photo := testPhoto(t, 4)

	first, err := fx.svc.Submit(context.Background(), identity, photo, dto.SubmissionInput{})
	require.NoError(t, err)
	require.True(t, first.IsValid)

	// The same photo again, even from another user, is rejected without a
	// second award or a second row.
	other := testIdentity()
	second, err := fx.svc.Submit(context.Background(), other, photo, dto.SubmissionInput{})
	require.NoError(t, err)
	assert.False(t, second.IsValid)
	assert.Equal(t, reasonDuplicateImage, second.Reason)

	assert.Equal(t, 1, fx.store.submissionCount())
	assert.Nil(t, fx.store.userByID(other.UID))
}

func TestSubmitRejectedVerdictWritesAuditRow(t *testing.T) {
	verdict := &agent.Verdict{
		IsValid:           false,
		ValidationDetails: "No reusable bag is visible in the photo.",
	}
	fx := newSubmissionFixture(t, verdict, nil)
	identity := testIdentity()

	result, err := fx.svc.Submit(context.Background(), identity, testPhoto(t, 5), dto.SubmissionInput{})
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, 0, result.ClickPoints)
	assert.Equal(t, "No reusable bag is visible in the photo.", result.Reason)

	// A rejected verdict leaves an audit row but never touches aggregates.
	require.NotNil(t, result.Submission)
	assert.Equal(t, model.SubmissionRejected, result.Submission.Status)
	assert.Equal(t, 0, result.Submission.Points)
	assert.Equal(t, "N/A", result.Submission.Geolocation)
	assert.Equal(t, 1, fx.store.submissionCount())
	assert.Nil(t, fx.store.userByID(identity.UID))

	assert.Equal(t, 0, fx.store.stats.TotalClickPoints)
	assert.Equal(t, 0, fx.store.stats.TotalTreesPlanted)
}

func TestSubmitDuplicateReceipt(t *testing.T) {
	fx := newSubmissionFixture(t, approvedVerdict(), nil)
	identity := testIdentity()

	first, err := fx.svc.Submit(context.Background(), identity, testPhoto(t, 6), dto.SubmissionInput{})
	require.NoError(t, err)
	require.True(t, first.IsValid)

	// A different photo of the same receipt is blocked before commit and
	// leaves no audit row.
	second, err := fx.svc.Submit(context.Background(), identity, testPhoto(t, 7), dto.SubmissionInput{})
	require.NoError(t, err)
	assert.False(t, second.IsValid)
	assert.Equal(t, reasonDuplicateReceipt, second.Reason)
	assert.Nil(t, second.Submission)

	assert.Equal(t, 1, fx.store.submissionCount())
	user := fx.store.userByID(identity.UID)
	assert.Equal(t, 10, user.TotalPoints)
}

func TestSubmitSameReceiptDifferentUsers(t *testing.T) {
	fx := newSubmissionFixture(t, approvedVerdict(), nil)

	first, err := fx.svc.Submit(context.Background(), testIdentity(), testPhoto(t, 8), dto.SubmissionInput{})
	require.NoError(t, err)
	require.True(t, first.IsValid)

	// Receipt dedup is scoped per user; a housemate crediting the same
	// shopping trip is allowed.
	second, err := fx.svc.Submit(context.Background(), testIdentity(), testPhoto(t, 9), dto.SubmissionInput{})
	require.NoError(t, err)
	assert.True(t, second.IsValid)
	assert.Equal(t, 2, fx.store.submissionCount())
}

func TestSubmitValidatorUnavailable(t *testing.T) {
	fx := newSubmissionFixture(t, nil, apperror.ErrValidationUnavailable)
	identity := testIdentity()

	result, err := fx.svc.Submit(context.Background(), identity, testPhoto(t, 10), dto.SubmissionInput{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperror.ErrValidationUnavailable)

	assert.Equal(t, 0, fx.store.submissionCount())
	assert.Nil(t, fx.store.userByID(identity.UID))
}

func TestSubmitUndecodablePhoto(t *testing.T) {
	fx := newSubmissionFixture(t, approvedVerdict(), nil)

	result, err := fx.svc.Submit(context.Background(), testIdentity(), []byte("not an image"), dto.SubmissionInput{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperror.ErrDecode)
	assert.False(t, fx.validator.called)
}

func TestProfile(t *testing.T) {
	fx := newSubmissionFixture(t, approvedVerdict(), nil)
	identity := testIdentity()
	fx.store.addUser(&model.User{
		ID:          identity.UID,
		Email:       identity.Email,
		TotalPoints: 35,
		TotalTrees:  3,
	})

	profile, err := fx.svc.Profile(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, 20, profile.MaxTrees)
	assert.Equal(t, 17, profile.RemainingTrees)
	assert.Empty(t, profile.User.PasswordHash)
}

func TestProfileNotFound(t *testing.T) {
	fx := newSubmissionFixture(t, approvedVerdict(), nil)

	_, err := fx.svc.Profile(context.Background(), testIdentity())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
