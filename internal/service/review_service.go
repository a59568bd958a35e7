package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"boutique/internal/domain"
	"boutique/internal/repository"

	"go.uber.org/zap"
)

// ReviewService defines the review operations
type ReviewService interface {
	Create(ctx context.Context, actor Actor, review *domain.Review) error
	ListByProduct(ctx context.Context, productID int64) ([]*domain.Review, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Review, error)
	Delete(ctx context.Context, actor Actor, id int64) error
}

type reviewService struct {
	reviewRepo repository.ReviewRepository
	logger     *zap.Logger
}

// NewReviewService creates a new instance of ReviewService
func NewReviewService(reviewRepo repository.ReviewRepository, logger *zap.Logger) ReviewService {
	return &reviewService{reviewRepo: reviewRepo, logger: logger}
}

// Create stores a review after checking its fields; nothing is written on rejection
func (s *reviewService) Create(ctx context.Context, actor Actor, review *domain.Review) error {
	if err := validateReview(review); err != nil {
		return err
	}

	if !actor.CanActFor(review.UserID) {
		return ErrForbidden
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrReferenceNotFound) || errors.Is(err, repository.ErrConstraintViolation) {
			return err
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	s.logger.Info("Review created",
		zap.Int64("review_id", review.ID),
		zap.Int64("product_id", review.ProductID),
		zap.Int("stars", review.Stars),
	)
	return nil
}

func (s *reviewService) ListByProduct(ctx context.Context, productID int64) ([]*domain.Review, error) {
	reviews, err := s.reviewRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list product reviews: %w", err)
	}
	return reviews, nil
}

func (s *reviewService) ListByUser(ctx context.Context, userID int64) ([]*domain.Review, error) {
	reviews, err := s.reviewRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user reviews: %w", err)
	}
	return reviews, nil
}

// Delete removes a review written by the actor, or any review for an admin
func (s *reviewService) Delete(ctx context.Context, actor Actor, id int64) error {
	review, err := s.reviewRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return err
		}
		return fmt.Errorf("failed to load review: %w", err)
	}

	if !actor.CanActFor(review.UserID) {
		return ErrForbidden
	}

	if err := s.reviewRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete review: %w", err)
	}

	return nil
}

func validateReview(review *domain.Review) error {
	if review.UserID <= 0 {
		return invalid("user_id", "user_id is required")
	}
	if review.ProductID <= 0 {
		return invalid("product_id", "product_id is required")
	}
	review.Review = strings.TrimSpace(review.Review)
	if review.Review == "" {
		return invalid("review", "review text is required")
	}
	if review.Stars < domain.MinStars || review.Stars > domain.MaxStars {
		return invalid("stars", fmt.Sprintf("stars must be between %d and %d", domain.MinStars, domain.MaxStars))
	}
	return nil
}
