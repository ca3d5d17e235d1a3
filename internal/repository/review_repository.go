package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"book-store/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrReviewNotFound  = errors.New("review not found")
	ErrInvalidCustomer = errors.New("referenced customer does not exist")
)

const reviewColumns = `id, product_id, customer_id, value, created_at, updated_at`

type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	Update(ctx context.Context, review *domain.Review) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Review, error)
	List(ctx context.Context, productID *uuid.UUID, page, pageSize int) ([]*domain.Review, int, error)
	// Stats aggregates count and mean of the product's review values.
	Stats(ctx context.Context, productID uuid.UUID) (domain.ReviewStats, error)
}

type reviewRepository struct {
	db DBTX
}

func NewReviewRepository(db DBTX) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		review.ID,
		review.ProductID,
		review.CustomerID,
		review.Value,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			if violatedConstraint(err) == "fk_reviews_customer" {
				return ErrInvalidCustomer
			}
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

func (r *reviewRepository) Update(ctx context.Context, review *domain.Review) error {
	query := `
		UPDATE reviews
		SET product_id = $2, value = $3
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query, review.ID, review.ProductID, review.Value).Scan(&review.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReviewNotFound
		}
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to update review: %w", err)
	}

	return nil
}

func (r *reviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return checkAffected(result, ErrReviewNotFound)
}

func (r *reviewRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	review, err := scanReview(r.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	return review, nil
}

func (r *reviewRepository) List(ctx context.Context, productID *uuid.UUID, page, pageSize int) ([]*domain.Review, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE $1::uuid IS NULL OR product_id = $1`,
		nullableUUID(productID),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE $1::uuid IS NULL OR product_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, nullableUUID(productID), pageSize, offset(page, pageSize))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []*domain.Review{}
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating reviews: %w", err)
	}

	return reviews, total, nil
}

func (r *reviewRepository) Stats(ctx context.Context, productID uuid.UUID) (domain.ReviewStats, error) {
	var (
		stats   domain.ReviewStats
		average sql.NullFloat64
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(value) FROM reviews WHERE product_id = $1`,
		productID,
	).Scan(&stats.Count, &average)
	if err != nil {
		return domain.ReviewStats{}, fmt.Errorf("failed to aggregate reviews: %w", err)
	}

	stats.Average = average.Float64
	return stats, nil
}

func scanReview(row rowScanner) (*domain.Review, error) {
	review := &domain.Review{}
	err := row.Scan(
		&review.ID,
		&review.ProductID,
		&review.CustomerID,
		&review.Value,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return review, nil
}
