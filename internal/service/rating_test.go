package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bodaconnect/review-service/internal/domain"
	apperrors "github.com/bodaconnect/review-service/pkg/errors"
)

func TestGetSubjectRating_Existing(t *testing.T) {
	aggs := new(mockAggregateRepository)
	svc := NewRatingService(aggs, newTestLogger())
	ctx := context.Background()

	aggs.On("Get", ctx, "supplier-1", domain.RoleSupplier).Return(&domain.SubjectAggregate{
		SubjectID:   "supplier-1",
		SubjectRole: domain.RoleSupplier,
		SumRatings:  13.5,
		ReviewCount: 3,
		UpdatedAt:   time.Now().UTC(),
	}, nil)

	rating, err := svc.GetSubjectRating(ctx, "supplier-1", domain.RoleSupplier)
	require.NoError(t, err)
	assert.Equal(t, 4.5, rating.AverageRating)
	assert.Equal(t, 3, rating.ReviewCount)
}

func TestGetSubjectRating_NoReviewsDefaultsToFive(t *testing.T) {
	aggs := new(mockAggregateRepository)
	svc := NewRatingService(aggs, newTestLogger())
	ctx := context.Background()

	aggs.On("Get", ctx, "client-9", domain.RoleClient).Return(&domain.SubjectAggregate{
		SubjectID:   "client-9",
		SubjectRole: domain.RoleClient,
	}, nil)

	rating, err := svc.GetSubjectRating(ctx, "client-9", domain.RoleClient)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAverageRating, rating.AverageRating)
	assert.Equal(t, 0, rating.ReviewCount)
}

func TestGetSubjectRating_InvalidRole(t *testing.T) {
	svc := NewRatingService(new(mockAggregateRepository), newTestLogger())

	_, err := svc.GetSubjectRating(context.Background(), "supplier-1", "vendor")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRebuildSubjectRating(t *testing.T) {
	aggs := new(mockAggregateRepository)
	svc := NewRatingService(aggs, newTestLogger())
	ctx := context.Background()

	aggs.On("Rebuild", ctx, "supplier-1", domain.RoleSupplier).Return(&domain.SubjectAggregate{
		SubjectID:   "supplier-1",
		SubjectRole: domain.RoleSupplier,
		SumRatings:  11,
		ReviewCount: 3,
		UpdatedAt:   time.Now().UTC(),
	}, nil)

	rating, err := svc.RebuildSubjectRating(ctx, "supplier-1", domain.RoleSupplier)
	require.NoError(t, err)
	assert.Equal(t, 3.7, rating.AverageRating)
	assert.Equal(t, 3, rating.ReviewCount)

	aggs.AssertExpectations(t)
}
