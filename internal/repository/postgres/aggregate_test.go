package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bodaconnect/review-service/internal/domain"
	"github.com/bodaconnect/review-service/pkg/database"
)

func newTestAggRepo(t *testing.T) (*AggregateRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewAggregateRepository(mock), mock
}

func TestAggregateRepository_Get_Found(t *testing.T) {
	repo, mock := newTestAggRepo(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT sum_ratings, review_count, updated_at FROM subject_aggregates").
		WithArgs("subject-1", domain.RoleSupplier).
		WillReturnRows(pgxmock.NewRows([]string{"sum_ratings", "review_count", "updated_at"}).
			AddRow(13.5, 3, now))

	agg, err := repo.Get(context.Background(), "subject-1", domain.RoleSupplier)
	require.NoError(t, err)
	assert.Equal(t, 3, agg.ReviewCount)
	assert.Equal(t, 4.5, agg.AverageRating())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateRepository_Get_NoRow_DefaultAggregate(t *testing.T) {
	repo, mock := newTestAggRepo(t)

	mock.ExpectQuery("SELECT sum_ratings, review_count, updated_at FROM subject_aggregates").
		WithArgs("new-subject", domain.RoleSupplier).
		WillReturnError(pgx.ErrNoRows)

	agg, err := repo.Get(context.Background(), "new-subject", domain.RoleSupplier)
	require.NoError(t, err)
	assert.Equal(t, 0, agg.ReviewCount)
	assert.Equal(t, domain.DefaultAverageRating, agg.AverageRating())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateRepository_Rebuild(t *testing.T) {
	repo, mock := newTestAggRepo(t)

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO subject_aggregates").
		WithArgs("subject-1", domain.RoleSupplier, pgxmock.AnyArg(), domain.StatusApproved).
		WillReturnRows(pgxmock.NewRows([]string{"sum_ratings", "review_count", "updated_at"}).
			AddRow(9.0, 2, now))

	agg, err := repo.Rebuild(context.Background(), "subject-1", domain.RoleSupplier)
	require.NoError(t, err)
	assert.Equal(t, 2, agg.ReviewCount)
	assert.Equal(t, 4.5, agg.AverageRating())

	assert.NoError(t, mock.ExpectationsWereMet())
}
