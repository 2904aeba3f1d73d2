package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bodaconnect/review-service/internal/domain"
	"github.com/bodaconnect/review-service/internal/repository"
	"github.com/bodaconnect/review-service/pkg/database"
	apperrors "github.com/bodaconnect/review-service/pkg/errors"
)

const reviewColumns = `id, booking_id, reviewer_id, reviewer_role, subject_id, subject_role,
		rating, comment, tags, photo_refs, service_category, service_date,
		status, visibility, flag_reason, response, responded_at, created_at, updated_at`

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new review. If the review enters the store already
// approved, the subject's counters are updated in the same transaction.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO reviews (id, booking_id, reviewer_id, reviewer_role, subject_id, subject_role, rating, comment, tags, photo_refs, service_category, service_date, status, visibility, flag_reason, response, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err = tx.Exec(ctx, query,
		review.ID,
		review.BookingID,
		review.ReviewerID,
		review.ReviewerRole,
		review.SubjectID,
		review.SubjectRole,
		review.Rating,
		review.Comment,
		review.Tags,
		review.PhotoRefs,
		review.ServiceCategory,
		review.ServiceDate,
		review.Status,
		review.Visibility,
		review.FlagReason,
		review.Response,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("a review already exists for this booking and reviewer")
		}
		return fmt.Errorf("insert review: %w", err)
	}

	if domain.CountsTowardAggregate(review.Status) {
		if err := applyDelta(ctx, tx, review.SubjectID, review.SubjectRole, domain.Include(review.Rating)); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1`, reviewColumns)

	review, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}

	return review, nil
}

// List returns reviews matching the filter, newest first, with the total count.
func (r *ReviewRepository) List(ctx context.Context, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.SubjectID != nil {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", argIndex))
		args = append(args, *filter.SubjectID)
		argIndex++
	}

	if filter.SubjectRole != nil {
		conditions = append(conditions, fmt.Sprintf("subject_role = $%d", argIndex))
		args = append(args, *filter.SubjectRole)
		argIndex++
	}

	if filter.ReviewerID != nil {
		conditions = append(conditions, fmt.Sprintf("reviewer_id = $%d", argIndex))
		args = append(args, *filter.ReviewerID)
		argIndex++
	}

	if filter.ReviewerRole != nil {
		conditions = append(conditions, fmt.Sprintf("reviewer_role = $%d", argIndex))
		args = append(args, *filter.ReviewerRole)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM reviews
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		reviewColumns, whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var totalCount int
	reviews := make([]domain.Review, 0)

	for rows.Next() {
		review, err := scanReviewWithCount(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, *review)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, totalCount, nil
}

// ListForBooking returns the reviews of a booking, at most one per direction.
func (r *ReviewRepository) ListForBooking(ctx context.Context, bookingID string) ([]domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE booking_id = $1 ORDER BY created_at`, reviewColumns)

	rows, err := r.pool.Query(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list booking reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0, 2)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, *review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}

// HasReviewed reports whether the reviewer already reviewed the booking.
func (r *ReviewRepository) HasReviewed(ctx context.Context, bookingID, reviewerID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE booking_id = $1 AND reviewer_id = $2)`,
		bookingID, reviewerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check reviewed: %w", err)
	}
	return exists, nil
}

// UpdateContent replaces the reviewer-owned content fields. A rating change
// on an approved review shifts the subject's rating sum by the difference.
func (r *ReviewRepository) UpdateContent(ctx context.Context, id string, rating float64, comment string, tags, photoRefs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		oldRating   float64
		status      string
		subjectID   string
		subjectRole string
	)
	err = tx.QueryRow(ctx,
		`SELECT rating, status, subject_id, subject_role FROM reviews WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&oldRating, &status, &subjectID, &subjectRole)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("review", id)
		}
		return fmt.Errorf("lock review: %w", err)
	}

	// The status may have moved since the caller's policy check. The locked
	// row is authoritative.
	if !domain.IsMutableStatus(status) {
		return apperrors.InvalidState(fmt.Sprintf("review is %s and can no longer be edited", status))
	}

	_, err = tx.Exec(ctx,
		`UPDATE reviews SET rating = $1, comment = $2, tags = $3, photo_refs = $4, updated_at = $5 WHERE id = $6`,
		rating, comment, tags, photoRefs, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update review content: %w", err)
	}

	if domain.CountsTowardAggregate(status) && rating != oldRating {
		delta := domain.AggregateDelta{SumDelta: rating - oldRating}
		if err := applyDelta(ctx, tx, subjectID, subjectRole, delta); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Delete removes the review, excluding it from the aggregate if it was
// approved.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		rating      float64
		status      string
		subjectID   string
		subjectRole string
	)
	// Conditional on a mutable status so a concurrent rejection cannot race
	// the caller's policy check.
	err = tx.QueryRow(ctx,
		`DELETE FROM reviews WHERE id = $1 AND status = ANY($2) RETURNING rating, status, subject_id, subject_role`,
		id, domain.MutableStatuses(),
	).Scan(&rating, &status, &subjectID, &subjectRole)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var current string
			err := r.pool.QueryRow(ctx, `SELECT status FROM reviews WHERE id = $1`, id).Scan(&current)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return apperrors.NotFound("review", id)
				}
				return fmt.Errorf("read review status: %w", err)
			}
			return apperrors.InvalidState(fmt.Sprintf("review is %s and can no longer be deleted", current))
		}
		return fmt.Errorf("delete review: %w", err)
	}

	if domain.CountsTowardAggregate(status) {
		if err := applyDelta(ctx, tx, subjectID, subjectRole, domain.Exclude(rating)); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// TransitionStatus moves the review from one status to another. The update
// is conditional on the expected current status, so a concurrent or replayed
// transition matches zero rows and applies no delta twice.
func (r *ReviewRepository) TransitionStatus(ctx context.Context, id, from, to, flagReason string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		rating      float64
		subjectID   string
		subjectRole string
	)
	err = tx.QueryRow(ctx,
		`UPDATE reviews SET status = $1, visibility = $2, flag_reason = $3, updated_at = $4
		 WHERE id = $5 AND status = $6
		 RETURNING rating, subject_id, subject_role`,
		to, to == domain.StatusApproved, flagReason, time.Now().UTC(), id, from,
	).Scan(&rating, &subjectID, &subjectRole)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.transitionMismatch(ctx, id, to)
		}
		return fmt.Errorf("transition review status: %w", err)
	}

	wasIncluded := domain.CountsTowardAggregate(from)
	nowIncluded := domain.CountsTowardAggregate(to)

	var delta domain.AggregateDelta
	switch {
	case !wasIncluded && nowIncluded:
		delta = domain.Include(rating)
	case wasIncluded && !nowIncluded:
		delta = domain.Exclude(rating)
	}

	if !delta.IsZero() {
		if err := applyDelta(ctx, tx, subjectID, subjectRole, delta); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// transitionMismatch classifies a zero-row conditional update: the review is
// missing, the transition already happened (replay, a no-op), or the review
// sits in a state the transition does not permit.
func (r *ReviewRepository) transitionMismatch(ctx context.Context, id, to string) error {
	var current string
	err := r.pool.QueryRow(ctx, `SELECT status FROM reviews WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("review", id)
		}
		return fmt.Errorf("read review status: %w", err)
	}

	if current == to {
		return nil
	}

	return apperrors.InvalidState(fmt.Sprintf("review is %s, cannot transition to %s", current, to))
}

// SetResponse records the subject's response text and timestamp.
func (r *ReviewRepository) SetResponse(ctx context.Context, id, response string) error {
	now := time.Now().UTC()
	ct, err := r.pool.Exec(ctx,
		`UPDATE reviews SET response = $1, responded_at = $2, updated_at = $3 WHERE id = $4`,
		response, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("set review response: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}
	return nil
}

// applyDelta atomically shifts the subject's rating counters inside the
// caller's transaction.
func applyDelta(ctx context.Context, tx pgx.Tx, subjectID, subjectRole string, delta domain.AggregateDelta) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO subject_aggregates (subject_id, subject_role, sum_ratings, review_count, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (subject_id, subject_role) DO UPDATE
		 SET sum_ratings = subject_aggregates.sum_ratings + EXCLUDED.sum_ratings,
		     review_count = subject_aggregates.review_count + EXCLUDED.review_count,
		     updated_at = EXCLUDED.updated_at`,
		subjectID, subjectRole, delta.SumDelta, delta.CountDelta, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("apply aggregate delta: %w", err)
	}
	return nil
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (*domain.Review, error) {
	var review domain.Review
	err := row.Scan(
		&review.ID,
		&review.BookingID,
		&review.ReviewerID,
		&review.ReviewerRole,
		&review.SubjectID,
		&review.SubjectRole,
		&review.Rating,
		&review.Comment,
		&review.Tags,
		&review.PhotoRefs,
		&review.ServiceCategory,
		&review.ServiceDate,
		&review.Status,
		&review.Visibility,
		&review.FlagReason,
		&review.Response,
		&review.RespondedAt,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func scanReviewWithCount(row rowScanner, totalCount *int) (*domain.Review, error) {
	var review domain.Review
	err := row.Scan(
		&review.ID,
		&review.BookingID,
		&review.ReviewerID,
		&review.ReviewerRole,
		&review.SubjectID,
		&review.SubjectRole,
		&review.Rating,
		&review.Comment,
		&review.Tags,
		&review.PhotoRefs,
		&review.ServiceCategory,
		&review.ServiceDate,
		&review.Status,
		&review.Visibility,
		&review.FlagReason,
		&review.Response,
		&review.RespondedAt,
		&review.CreatedAt,
		&review.UpdatedAt,
		totalCount,
	)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
