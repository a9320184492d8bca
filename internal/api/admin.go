package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Skotchmaster/bookstore/internal/models"
	"github.com/Skotchmaster/bookstore/internal/transport"
)

type RoleService struct {
	c client
}

func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	var out []models.Role
	err := s.c.call(ctx, "roles.list", http.MethodGet, "/api/roles", nil, &out)
	return out, err
}

func (s *RoleService) Get(ctx context.Context, id uint) (*models.Role, error) {
	var out models.Role
	if err := s.c.call(ctx, "roles.get", http.MethodGet, fmt.Sprintf("/api/roles/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *RoleService) Create(ctx context.Context, req transport.RoleRequest) (*models.Role, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	var out models.Role
	if err := s.c.call(ctx, "roles.create", http.MethodPost, "/api/roles", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *RoleService) Update(ctx context.Context, id uint, req transport.RoleRequest) (*models.Role, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	var out models.Role
	if err := s.c.call(ctx, "roles.update", http.MethodPut, fmt.Sprintf("/api/roles/%d", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *RoleService) Delete(ctx context.Context, id uint) error {
	return s.c.call(ctx, "roles.delete", http.MethodDelete, fmt.Sprintf("/api/roles/%d", id), nil, nil)
}

type UserService struct {
	c client
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := s.c.call(ctx, "users.list", http.MethodGet, "/api/users", nil, &out)
	return out, err
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var out models.User
	if err := s.c.call(ctx, "users.get", http.MethodGet, fmt.Sprintf("/api/users/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the profile of the signed-in user.
func (s *UserService) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := s.c.call(ctx, "users.me", http.MethodGet, "/api/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *UserService) Update(ctx context.Context, id uint, req transport.UpdateUserRequest) (*models.User, error) {
	var out models.User
	if err := s.c.call(ctx, "users.update", http.MethodPut, fmt.Sprintf("/api/users/%d", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *UserService) Delete(ctx context.Context, id uint) error {
	return s.c.call(ctx, "users.delete", http.MethodDelete, fmt.Sprintf("/api/users/%d", id), nil, nil)
}
