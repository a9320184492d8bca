package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Skotchmaster/bookstore/internal/models"
	"github.com/Skotchmaster/bookstore/internal/transport"
	"github.com/Skotchmaster/bookstore/pkg/util"
)

type CategoryService struct {
	c client
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := s.c.call(ctx, "categories.list", http.MethodGet, "/api/categories", nil, &out)
	return out, err
}

func (s *CategoryService) Get(ctx context.Context, id uint) (*models.Category, error) {
	var out models.Category
	if err := s.c.call(ctx, "categories.get", http.MethodGet, fmt.Sprintf("/api/categories/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CategoryService) Create(ctx context.Context, req transport.CategoryRequest) (*models.Category, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	var out models.Category
	if err := s.c.call(ctx, "categories.create", http.MethodPost, "/api/categories", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CategoryService) Update(ctx context.Context, id uint, req transport.CategoryRequest) (*models.Category, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	var out models.Category
	if err := s.c.call(ctx, "categories.update", http.MethodPut, fmt.Sprintf("/api/categories/%d", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	return s.c.call(ctx, "categories.delete", http.MethodDelete, fmt.Sprintf("/api/categories/%d", id), nil, nil)
}

type ProductService struct {
	c client
}

func pageQuery(path string, page, size int) string {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = util.DefaultPageSize
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	return path + "?" + q.Encode()
}

func (s *ProductService) List(ctx context.Context, page, size int) (*models.Page[models.Product], error) {
	var out models.Page[models.Product]
	if err := s.c.call(ctx, "products.list", http.MethodGet, pageQuery("/api/products", page, size), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ProductService) ByCategory(ctx context.Context, categoryID uint) ([]models.Product, error) {
	var out []models.Product
	err := s.c.call(ctx, "products.by_category", http.MethodGet, fmt.Sprintf("/api/products/category/%d", categoryID), nil, &out)
	return out, err
}

func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	var out models.Product
	if err := s.c.call(ctx, "products.get", http.MethodGet, fmt.Sprintf("/api/products/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ProductService) Details(ctx context.Context, id uint) (*models.ProductDetails, error) {
	var out models.ProductDetails
	if err := s.c.call(ctx, "products.details", http.MethodGet, fmt.Sprintf("/api/products/%d/details", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ProductService) Featured(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	err := s.c.call(ctx, "products.featured", http.MethodGet, "/api/products/featured", nil, &out)
	return out, err
}

func (s *ProductService) Create(ctx context.Context, req transport.ProductRequest) (*models.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}
	var out models.Product
	if err := s.c.call(ctx, "products.create", http.MethodPost, "/api/products", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ProductService) Update(ctx context.Context, id uint, req transport.ProductRequest) (*models.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}
	var out models.Product
	if err := s.c.call(ctx, "products.update", http.MethodPut, fmt.Sprintf("/api/products/%d", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ProductService) Delete(ctx context.Context, id uint) error {
	return s.c.call(ctx, "products.delete", http.MethodDelete, fmt.Sprintf("/api/products/%d", id), nil, nil)
}
