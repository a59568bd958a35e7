package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"boutique/internal/domain"
)

var ErrReviewNotFound = errors.New("review not found")

// ReviewRepository defines the interface for review data access
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	FindByID(ctx context.Context, id int64) (*domain.Review, error)
	ListByProduct(ctx context.Context, productID int64) ([]*domain.Review, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Review, error)
	Delete(ctx context.Context, id int64) error
}

type reviewRepository struct {
	db *sql.DB
}

// NewReviewRepository creates a new instance of ReviewRepository
func NewReviewRepository(db *sql.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

const selectReview = `
	SELECT r.id, r.user_id, r.product_id, r.review, r.stars, r.created_at,
	       COALESCE(u.name, ''), COALESCE(p.title, '')
	FROM reviews r
	LEFT JOIN users u ON u.id = r.user_id
	LEFT JOIN products p ON p.id = r.product_id
`

// Create inserts a review; missing users or products surface as ErrReferenceNotFound
func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (user_id, product_id, review, stars)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, review.UserID, review.ProductID, review.Review, review.Stars).
		Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		switch {
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: %s", ErrReferenceNotFound, constraintName(err))
		case isCheckViolation(err):
			return fmt.Errorf("%w: %s", ErrConstraintViolation, constraintName(err))
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

// FindByID retrieves a single review with its author and product names
func (r *reviewRepository) FindByID(ctx context.Context, id int64) (*domain.Review, error) {
	review, err := scanReview(r.db.QueryRowContext(ctx, selectReview+"WHERE r.id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to find review by ID: %w", err)
	}
	return review, nil
}

// ListByProduct returns the reviews of a product, newest first
func (r *reviewRepository) ListByProduct(ctx context.Context, productID int64) ([]*domain.Review, error) {
	return r.list(ctx, selectReview+"WHERE r.product_id = $1 ORDER BY r.created_at DESC, r.id DESC", productID)
}

// ListByUser returns the reviews written by a user, newest first
func (r *reviewRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Review, error) {
	return r.list(ctx, selectReview+"WHERE r.user_id = $1 ORDER BY r.created_at DESC, r.id DESC", userID)
}

// Delete removes a review by id
func (r *reviewRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

func (r *reviewRepository) list(ctx context.Context, query string, id int64) ([]*domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []*domain.Review{}
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	return reviews, nil
}

func scanReview(row rowScanner) (*domain.Review, error) {
	review := &domain.Review{}
	err := row.Scan(
		&review.ID,
		&review.UserID,
		&review.ProductID,
		&review.Review,
		&review.Stars,
		&review.CreatedAt,
		&review.UserName,
		&review.ProductTitle,
	)
	if err != nil {
		return nil, err
	}
	return review, nil
}
