// Package credstore persists the single session credential of the client.
package credstore

import (
	"context"
	"errors"

	"github.com/Skotchmaster/bookstore/pkg/tokens"
)

// DefaultKey is the name the credential is stored under.
const DefaultKey = "user"

const DefaultScheme = "Bearer"

var ErrNotFound = errors.New("credential not found")

type Identity struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Credential is the access/refresh pair plus the identity needed for
// client-side gating. Its JSON form is the login response body.
type Credential struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Scheme       string `json:"type,omitempty"`
	Identity
}

// AuthorizationValue renders the Authorization header for the access token.
func (c *Credential) AuthorizationValue() string {
	return HeaderValue(c.Scheme, c.AccessToken)
}

// WithTokens returns a copy carrying the new pair. Identity and scheme stay.
// An empty refresh token keeps the current one.
func (c Credential) WithTokens(accessToken, refreshToken string) *Credential {
	c.AccessToken = accessToken
	if refreshToken != "" {
		c.RefreshToken = refreshToken
	}
	return &c
}

// FillIdentity copies email and role from the access token when the server
// response left them out.
func (c *Credential) FillIdentity() {
	if c.Email != "" && c.Role != "" {
		return
	}
	email, role, err := tokens.UserInfo(c.AccessToken)
	if err != nil {
		return
	}
	if c.Email == "" {
		c.Email = email
	}
	if c.Role == "" {
		c.Role = role
	}
}

func (c *Credential) IsAdmin() bool {
	return c.Role == tokens.RoleAdmin
}

func HeaderValue(scheme, token string) string {
	if scheme == "" {
		scheme = DefaultScheme
	}
	return scheme + " " + token
}

// Store holds at most one credential. Save replaces it whole; Clear on an
// empty store is a no-op.
type Store interface {
	Load(ctx context.Context) (*Credential, error)
	Save(ctx context.Context, cred *Credential) error
	Clear(ctx context.Context) error
}
