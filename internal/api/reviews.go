package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Skotchmaster/bookstore/internal/models"
	"github.com/Skotchmaster/bookstore/internal/transport"
)

// ReviewService manages product reviews. The backend takes the author from
// the access token.
type ReviewService struct {
	c client
}

func (s *ReviewService) ByProduct(ctx context.Context, productID uint) ([]models.Review, error) {
	var out []models.Review
	err := s.c.call(ctx, "reviews.by_product", http.MethodGet, fmt.Sprintf("/api/reviews/product/%d", productID), nil, &out)
	return out, err
}

func (s *ReviewService) Get(ctx context.Context, id uint) (*models.Review, error) {
	var out models.Review
	if err := s.c.call(ctx, "reviews.get", http.MethodGet, fmt.Sprintf("/api/reviews/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ReviewService) Add(ctx context.Context, req transport.ReviewRequest) (*models.Review, error) {
	if err := validateReview(req); err != nil {
		return nil, err
	}
	if req.ProductID == 0 {
		return nil, invalid("product is required")
	}
	var out models.Review
	if err := s.c.call(ctx, "reviews.add", http.MethodPost, "/api/reviews", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ReviewService) Update(ctx context.Context, id uint, req transport.ReviewRequest) (*models.Review, error) {
	if err := validateReview(req); err != nil {
		return nil, err
	}
	var out models.Review
	if err := s.c.call(ctx, "reviews.update", http.MethodPut, fmt.Sprintf("/api/reviews/%d", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ReviewService) Delete(ctx context.Context, id uint) error {
	return s.c.call(ctx, "reviews.delete", http.MethodDelete, fmt.Sprintf("/api/reviews/%d", id), nil, nil)
}
