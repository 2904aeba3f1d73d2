package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bodaconnect/review-service/internal/booking"
	"github.com/bodaconnect/review-service/internal/domain"
	"github.com/bodaconnect/review-service/internal/event"
	"github.com/bodaconnect/review-service/internal/repository"
	apperrors "github.com/bodaconnect/review-service/pkg/errors"
	"github.com/bodaconnect/review-service/pkg/pagination"

	pkgkafka "github.com/bodaconnect/review-service/pkg/kafka"
)

// --- Mock Review Repository ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) List(ctx context.Context, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) ListForBooking(ctx context.Context, bookingID string) ([]domain.Review, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepository) HasReviewed(ctx context.Context, bookingID, reviewerID string) (bool, error) {
	args := m.Called(ctx, bookingID, reviewerID)
	return args.Bool(0), args.Error(1)
}

func (m *mockReviewRepository) UpdateContent(ctx context.Context, id string, rating float64, comment string, tags, photoRefs []string) error {
	args := m.Called(ctx, id, rating, comment, tags, photoRefs)
	return args.Error(0)
}

func (m *mockReviewRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepository) TransitionStatus(ctx context.Context, id, from, to, flagReason string) error {
	args := m.Called(ctx, id, from, to, flagReason)
	return args.Error(0)
}

func (m *mockReviewRepository) SetResponse(ctx context.Context, id, response string) error {
	args := m.Called(ctx, id, response)
	return args.Error(0)
}

// --- Mock Aggregate Repository ---

type mockAggregateRepository struct {
	mock.Mock
}

func (m *mockAggregateRepository) Get(ctx context.Context, subjectID, subjectRole string) (*domain.SubjectAggregate, error) {
	args := m.Called(ctx, subjectID, subjectRole)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubjectAggregate), args.Error(1)
}

func (m *mockAggregateRepository) Rebuild(ctx context.Context, subjectID, subjectRole string) (*domain.SubjectAggregate, error) {
	args := m.Called(ctx, subjectID, subjectRole)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubjectAggregate), args.Error(1)
}

// --- Mock Booking Gateway ---

type mockBookingGateway struct {
	mock.Mock
}

func (m *mockBookingGateway) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestProducer() *event.Producer {
	logger := newTestLogger()
	// Publishing fails silently in tests (no real broker).
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func newTestReviewService(repo *mockReviewRepository, bookings *mockBookingGateway, autoApprove bool) *ReviewService {
	return NewReviewService(repo, bookings, newTestProducer(), autoApprove, newTestLogger())
}

func completedBooking() *booking.Booking {
	return &booking.Booking{
		ID:              "booking-1",
		ClientID:        "client-1",
		SupplierID:      "supplier-1",
		Status:          booking.StatusCompleted,
		ServiceCategory: "photography",
		ServiceDate:     time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	}
}

// --- Submit ---

func TestSubmitReview_Success(t *testing.T) {
	repo := new(mockReviewRepository)
	bookings := new(mockBookingGateway)
	svc := newTestReviewService(repo, bookings, false)
	ctx := context.Background()

	bookings.On("GetBooking", ctx, "booking-1").Return(completedBooking(), nil)
	repo.On("Create", ctx, mock.AnythingOfType("*domain.Review")).Return(nil)

	review, err := svc.SubmitReview(ctx, SubmitReviewInput{
		BookingID:  "booking-1",
		ReviewerID: "client-1",
		Rating:     4.5,
		Comment:    "great photographer",
		Tags:       []string{"professional", "punctual"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, review.ID)
	assert.Equal(t, domain.RoleClient, review.ReviewerRole)
	assert.Equal(t, "supplier-1", review.SubjectID)
	assert.Equal(t, domain.RoleSupplier, review.SubjectRole)
	assert.Equal(t, domain.StatusPending, review.Status)
	assert.False(t, review.Visibility)
	assert.Equal(t, "photography", review.ServiceCategory)

	repo.AssertExpectations(t)
	bookings.AssertExpectations(t)
}

func TestSubmitReview_AutoApprove(t *testing.T) {
	repo := new(mockReviewRepository)
	bookings := new(mockBookingGateway)
	svc := newTestReviewService(repo, bookings, true)
	ctx := context.Background()

	bookings.On("GetBooking", ctx, "booking-1").Return(completedBooking(), nil)
	repo.On("Create", ctx, mock.MatchedBy(func(r *domain.Review) bool {
		return r.Status == domain.StatusApproved && r.Visibility
	})).Return(nil)

	review, err := svc.SubmitReview(ctx, SubmitReviewInput{
		BookingID:  "booking-1",
		ReviewerID: "supplier-1",
		Rating:     5,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, review.Status)
	assert.Equal(t, "client-1", review.SubjectID)

	repo.AssertExpectations(t)
}

func TestSubmitReview_BookingNotCompleted(t *testing.T) {
	repo := new(mockReviewRepository)
	bookings := new(mockBookingGateway)
	svc := newTestReviewService(repo, bookings, false)
	ctx := context.Background()

	bk := completedBooking()
	bk.Status = "confirmed"
	bookings.On("GetBooking", ctx, "booking-1").Return(bk, nil)

	_, err := svc.SubmitReview(ctx, SubmitReviewInput{
		BookingID:  "booking-1",
		ReviewerID: "client-1",
		Rating:     4,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	assert.Contains(t, err.Error(), "confirmed")
	repo.AssertNotCalled(t, "Create")
}

func TestSubmitReview_ReviewerNotParty(t *testing.T) {
	repo := new(mockReviewRepository)
	bookings := new(mockBookingGateway)
	svc := newTestReviewService(repo, bookings, false)
	ctx := context.Background()

	bookings.On("GetBooking", ctx, "booking-1").Return(completedBooking(), nil)

	_, err := svc.SubmitReview(ctx, SubmitReviewInput{
		BookingID:  "booking-1",
		ReviewerID: "stranger",
		Rating:     4,
	})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestSubmitReview_Duplicate(t *testing.T) {
	repo := new(mockReviewRepository)
	bookings := new(mockBookingGateway)
	svc := newTestReviewService(repo, bookings, false)
	ctx := context.Background()

	bookings.On("GetBooking", ctx, "booking-1").Return(completedBooking(), nil)
	repo.On("Create", ctx, mock.AnythingOfType("*domain.Review")).
		Return(apperrors.Conflict("a review already exists for this booking and reviewer"))

	_, err := svc.SubmitReview(ctx, SubmitReviewInput{
		BookingID:  "booking-1",
		ReviewerID: "client-1",
		Rating:     3,
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestSubmitReview_InvalidContent(t *testing.T) {
	repo := new(mockReviewRepository)
	bookings := new(mockBookingGateway)
	svc := newTestReviewService(repo, bookings, false)
	ctx := context.Background()

	longComment := make([]byte, domain.MaxCommentLength+1)
	for i := range longComment {
		longComment[i] = 'a'
	}

	cases := []struct {
		name  string
		input SubmitReviewInput
	}{
		{"missing booking", SubmitReviewInput{ReviewerID: "client-1", Rating: 4}},
		{"missing reviewer", SubmitReviewInput{BookingID: "booking-1", Rating: 4}},
		{"rating too low", SubmitReviewInput{BookingID: "booking-1", ReviewerID: "client-1", Rating: 0.5}},
		{"rating too high", SubmitReviewInput{BookingID: "booking-1", ReviewerID: "client-1", Rating: 5.5}},
		{"comment too long", SubmitReviewInput{BookingID: "booking-1", ReviewerID: "client-1", Rating: 4, Comment: string(longComment)}},
		{"too many photos", SubmitReviewInput{BookingID: "booking-1", ReviewerID: "client-1", Rating: 4, PhotoRefs: []string{"a", "b", "c", "d", "e", "f"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SubmitReview(ctx, tc.input)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}

	repo.AssertNotCalled(t, "Create")
}

func TestSubmitReview_TagOutsideVocabulary(t *testing.T) {
	repo := new(mockReviewRepository)
	bookings := new(mockBookingGateway)
	svc := newTestReviewService(repo, bookings, false)
	ctx := context.Background()

	bookings.On("GetBooking", ctx, "booking-1").Return(completedBooking(), nil)

	// clear_brief belongs to the supplier vocabulary, not the client's.
	_, err := svc.SubmitReview(ctx, SubmitReviewInput{
		BookingID:  "booking-1",
		ReviewerID: "client-1",
		Rating:     4,
		Tags:       []string{"clear_brief"},
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	repo.AssertNotCalled(t, "Create")
}

// --- Update ---

func TestUpdateReview_Success(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := newTestReviewService(repo, new(mockBookingGateway), false)
	ctx := context.Background()

	existing := &domain.Review{
		ID:           "rev-1",
		ReviewerID:   "client-1",
		ReviewerRole: domain.RoleClient,
		Status:       domain.StatusApproved,
		Rating:       3,
	}
	repo.On("GetByID", ctx, "rev-1").Return(existing, nil)
	repo.On("UpdateContent", ctx, "rev-1", 5.0, "changed my mind", []string{"friendly"}, []string(nil)).Return(nil)

	updated, err := svc.UpdateReview(ctx, "rev-1", "client-1", UpdateReviewInput{
		Rating:  5,
		Comment: "changed my mind",
		Tags:    []string{"friendly"},
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, updated.Rating)
	assert.Equal(t, "changed my mind", updated.Comment)

	repo.AssertExpectations(t)
}

func TestUpdateReview_NotOwner(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := newTestReviewService(repo, new(mockBookingGateway), false)
	ctx := context.Background()

	repo.On("GetByID", ctx, "rev-1").Return(&domain.Review{
		ID: "rev-1", ReviewerID: "client-1", Status: domain.StatusApproved,
	}, nil)

	_, err := svc.UpdateReview(ctx, "rev-1", "someone-else", UpdateReviewInput{Rating: 4})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	repo.AssertNotCalled(t, "UpdateContent")
}

func TestUpdateReview_RejectedIsImmutable(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := newTestReviewService(repo, new(mockBookingGateway), false)
	ctx := context.Background()

	repo.On("GetByID", ctx, "rev-1").Return(&domain.Review{
		ID: "rev-1", ReviewerID: "client-1", Status: domain.StatusRejected,
	}, nil)

	_, err := svc.UpdateReview(ctx, "rev-1", "client-1", UpdateReviewInput{Rating: 4})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	repo.AssertNotCalled(t, "UpdateContent")
}

// --- Delete ---

func TestDeleteReview_Success(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := newTestReviewService(repo, new(mockBookingGateway), false)
	ctx := context.Background()

	repo.On("GetByID", ctx, "rev-1").Return(&domain.Review{
		ID: "rev-1", ReviewerID: "client-1", Status: domain.StatusApproved,
	}, nil)
	repo.On("Delete", ctx, "rev-1").Return(nil)

	require.NoError(t, svc.DeleteReview(ctx, "rev-1", "client-1"))
	repo.AssertExpectations(t)
}

func TestDeleteReview_NotOwner(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := newTestReviewService(repo, new(mockBookingGateway), false)
	ctx := context.Background()

	repo.On("GetByID", ctx, "rev-1").Return(&domain.Review{
		ID: "rev-1", ReviewerID: "client-1", Status: domain.StatusPending,
	}, nil)

	err := svc.DeleteReview(ctx, "rev-1", "supplier-1")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	repo.AssertNotCalled(t, "Delete")
}

// --- Respond ---

func TestRespondToReview_Success(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := newTestReviewService(repo, new(mockBookingGateway), false)
	ctx := context.Background()

	repo.On("GetByID", ctx, "rev-1").Return(&domain.Review{
		ID: "rev-1", ReviewerID: "client-1", SubjectID: "supplier-1", Status: domain.StatusApproved,
	}, nil)
	repo.On("SetResponse", ctx, "rev-1", "thank you!").Return(nil)

	review, err := svc.RespondToReview(ctx, "rev-1", "supplier-1", "thank you!")
	require.NoError(t, err)
	assert.Equal(t, "thank you!", review.Response)
	require.NotNil(t, review.RespondedAt)

	repo.AssertExpectations(t)
}

func TestRespondToReview_NotSubject(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := newTestReviewService(repo, new(mockBookingGateway), false)
	ctx := context.Background()

	repo.On("GetByID", ctx, "rev-1").Return(&domain.Review{
		ID: "rev-1", ReviewerID: "client-1", SubjectID: "supplier-1", Status: domain.StatusApproved,
	}, nil)

	_, err := svc.RespondToReview(ctx, "rev-1", "client-1", "objection")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestRespondToReview_PendingNotEligible(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := newTestReviewService(repo, new(mockBookingGateway), false)
	ctx := context.Background()

	repo.On("GetByID", ctx, "rev-1").Return(&domain.Review{
		ID: "rev-1", SubjectID: "supplier-1", Status: domain.StatusPending,
	}, nil)

	_, err := svc.RespondToReview(ctx, "rev-1", "supplier-1", "thanks")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

// --- Queries ---

func TestListForSubject_OnlyApproved(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := newTestReviewService(repo, new(mockBookingGateway), false)
	ctx := context.Background()

	repo.On("List", ctx, mock.MatchedBy(func(f repository.ReviewFilter) bool {
		return f.SubjectID != nil && *f.SubjectID == "supplier-1" &&
			f.Status != nil && *f.Status == domain.StatusApproved
	})).Return([]domain.Review{{ID: "rev-1"}}, 1, nil)

	result, err := svc.ListForSubject(ctx, "supplier-1", domain.RoleSupplier, pagination.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalCount)
	assert.Len(t, result.Data, 1)
}

func TestListForSubject_InvalidRole(t *testing.T) {
	svc := newTestReviewService(new(mockReviewRepository), new(mockBookingGateway), false)

	_, err := svc.ListForSubject(context.Background(), "supplier-1", "vendor", pagination.DefaultParams())
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestHasReviewed(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := newTestReviewService(repo, new(mockBookingGateway), false)
	ctx := context.Background()

	repo.On("HasReviewed", ctx, "booking-1", "client-1").Return(true, nil)

	ok, err := svc.HasReviewed(ctx, "booking-1", "client-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
