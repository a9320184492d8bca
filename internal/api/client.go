// Package api holds the bookstore resource clients. Every call goes through
// the session gateway.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Skotchmaster/bookstore/internal/credstore"
	"github.com/Skotchmaster/bookstore/internal/events"
)

// Doer sends requests with session handling.
type Doer interface {
	NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error)
	Do(req *http.Request) (*http.Response, error)
}

// Session is the credential side of the gateway used by AuthService.
type Session interface {
	Doer
	Store() credstore.Store
	SetAuthToken(scheme, token string)
	Logout(ctx context.Context) error
}

type client struct {
	d Doer
}

func (c client) call(ctx context.Context, op, method, path string, in, out any) error {
	req, err := c.d.NewRequest(ctx, method, path, in)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.d.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// API groups the resource clients over one gateway.
type API struct {
	Auth       *AuthService
	Categories *CategoryService
	Products   *ProductService
	Reviews    *ReviewService
	Roles      *RoleService
	Users      *UserService
}

func New(s Session, pub events.Publisher, topic string) *API {
	c := client{d: s}
	return &API{
		Auth:       NewAuthService(s, pub, topic),
		Categories: &CategoryService{c: c},
		Products:   &ProductService{c: c},
		Reviews:    &ReviewService{c: c},
		Roles:      &RoleService{c: c},
		Users:      &UserService{c: c},
	}
}
