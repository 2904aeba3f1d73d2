package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bodaconnect/review-service/internal/domain"
	"github.com/bodaconnect/review-service/pkg/database"
)

// AggregateRepository implements repository.AggregateRepository using
// PostgreSQL. The counters are written only by the review repository's
// transactional deltas and by Rebuild; this type is otherwise read-only.
type AggregateRepository struct {
	pool database.DBTX
}

// NewAggregateRepository creates a new PostgreSQL-backed aggregate repository.
func NewAggregateRepository(pool database.DBTX) *AggregateRepository {
	return &AggregateRepository{pool: pool}
}

// Get returns the subject's aggregate. A subject with no row has zero
// approved reviews; callers read the default average off the zero value.
func (r *AggregateRepository) Get(ctx context.Context, subjectID, subjectRole string) (*domain.SubjectAggregate, error) {
	agg := &domain.SubjectAggregate{SubjectID: subjectID, SubjectRole: subjectRole}

	err := r.pool.QueryRow(ctx,
		`SELECT sum_ratings, review_count, updated_at FROM subject_aggregates WHERE subject_id = $1 AND subject_role = $2`,
		subjectID, subjectRole,
	).Scan(&agg.SumRatings, &agg.ReviewCount, &agg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return agg, nil
		}
		return nil, fmt.Errorf("get subject aggregate: %w", err)
	}

	return agg, nil
}

// Rebuild recomputes the counters from the approved review set and
// overwrites the stored values in one atomic statement.
func (r *AggregateRepository) Rebuild(ctx context.Context, subjectID, subjectRole string) (*domain.SubjectAggregate, error) {
	agg := &domain.SubjectAggregate{SubjectID: subjectID, SubjectRole: subjectRole}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO subject_aggregates (subject_id, subject_role, sum_ratings, review_count, updated_at)
		 SELECT $1, $2, COALESCE(SUM(rating), 0), COUNT(*), $3
		 FROM reviews
		 WHERE subject_id = $1 AND subject_role = $2 AND status = $4
		 ON CONFLICT (subject_id, subject_role) DO UPDATE
		 SET sum_ratings = EXCLUDED.sum_ratings,
		     review_count = EXCLUDED.review_count,
		     updated_at = EXCLUDED.updated_at
		 RETURNING sum_ratings, review_count, updated_at`,
		subjectID, subjectRole, time.Now().UTC(), domain.StatusApproved,
	).Scan(&agg.SumRatings, &agg.ReviewCount, &agg.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("rebuild subject aggregate: %w", err)
	}

	return agg, nil
}
