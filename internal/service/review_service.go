package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidReview = errors.New("rating must be between 1 and 5 and a name is required")

// ReviewList is a product's reviews with their aggregate
type ReviewList struct {
	Reviews []*domain.Review      `json:"reviews"`
	Summary *domain.ReviewSummary `json:"summary"`
}

// ReviewService manages append-only product reviews
type ReviewService interface {
	List(ctx context.Context, productID uuid.UUID) (*ReviewList, error)
	Create(ctx context.Context, productID uuid.UUID, userName string, rating int, comment string) (*domain.Review, error)
}

type reviewService struct {
	reviews  repository.ReviewRepository
	products repository.ProductRepository
	logger   *zap.Logger
}

// NewReviewService creates a new instance of ReviewService
func NewReviewService(reviews repository.ReviewRepository, products repository.ProductRepository, logger *zap.Logger) ReviewService {
	return &reviewService{reviews: reviews, products: products, logger: logger}
}

// List returns the reviews of a product, newest first. An unknown product is
// ErrProductNotFound, as it is for Create.
func (s *reviewService) List(ctx context.Context, productID uuid.UUID) (*ReviewList, error) {
	list := &ReviewList{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.products.FindByID(gctx, productID)
		return err
	})
	g.Go(func() error {
		var err error
		list.Reviews, err = s.reviews.ListByProduct(gctx, productID)
		return err
	})
	g.Go(func() error {
		var err error
		list.Summary, err = s.reviews.Summary(gctx, productID)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	return list, nil
}

func (s *reviewService) Create(ctx context.Context, productID uuid.UUID, userName string, rating int, comment string) (*domain.Review, error) {
	userName = strings.TrimSpace(userName)
	if rating < 1 || rating > 5 || userName == "" {
		return nil, ErrInvalidReview
	}

	review := &domain.Review{
		ID:        uuid.New(),
		ProductID: productID,
		UserName:  userName,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	s.logger.Info("Review added", zap.String("product_id", productID.String()), zap.Int("rating", rating))
	return review, nil
}
