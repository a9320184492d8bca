package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Skotchmaster/bookstore/internal/credstore"
	"github.com/Skotchmaster/bookstore/internal/events"
	"github.com/Skotchmaster/bookstore/internal/transport"
	"github.com/Skotchmaster/bookstore/pkg/logging"
)

const (
	loginPath    = "/api/auth/login"
	registerPath = "/api/auth/register"
)

type AuthService struct {
	c      client
	s      Session
	events events.Publisher
	topic  string
}

func NewAuthService(s Session, pub events.Publisher, topic string) *AuthService {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	if topic == "" {
		topic = events.TopicUserEvents
	}
	return &AuthService{c: client{d: s}, s: s, events: pub, topic: topic}
}

// UserInfo is what the client knows about the signed-in user.
type UserInfo struct {
	Email         string `json:"email"`
	Role          string `json:"role"`
	IsAdmin       bool   `json:"isAdmin"`
	Authenticated bool   `json:"authenticated"`
}

func (a *AuthService) Login(ctx context.Context, req transport.LoginRequest) (*credstore.Credential, error) {
	if err := validateLogin(req); err != nil {
		return nil, err
	}
	req.Email = strings.TrimSpace(req.Email)
	return a.startSession(ctx, "auth.login", loginPath, req, events.TypeLoggedIn)
}

func (a *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*credstore.Credential, error) {
	if err := validateRegister(req); err != nil {
		return nil, err
	}
	req.Email = strings.TrimSpace(req.Email)
	req.PhoneNumber = strings.Join(strings.Fields(req.PhoneNumber), "")
	return a.startSession(ctx, "auth.register", registerPath, req, events.TypeRegistered)
}

func (a *AuthService) startSession(ctx context.Context, op, path string, body any, eventType string) (*credstore.Credential, error) {
	l := logging.FromContext(ctx).With("svc", op)

	var cred transport.AuthResponse
	if err := a.c.call(ctx, op, http.MethodPost, path, body, &cred); err != nil {
		l.Warn("session_start_failed", "error", err)
		return nil, err
	}
	if cred.AccessToken == "" {
		return nil, fmt.Errorf("%s: response carried no token", op)
	}
	cred.FillIdentity()

	if err := a.s.Store().Save(ctx, &cred); err != nil {
		return nil, fmt.Errorf("%s: save credential: %w", op, err)
	}
	a.s.SetAuthToken(cred.Scheme, cred.AccessToken)

	a.publish(ctx, events.New(eventType, cred.Email, ""))
	l.Info("session_started", "email", cred.Email, "role", cred.Role)
	return &cred, nil
}

// Logout ends the local session. It is safe to call without one.
func (a *AuthService) Logout(ctx context.Context) error {
	var email string
	if cred, err := a.s.Store().Load(ctx); err == nil {
		email = cred.Email
	}
	if err := a.s.Logout(ctx); err != nil {
		return fmt.Errorf("auth.logout: %w", err)
	}
	if email != "" {
		a.publish(ctx, events.New(events.TypeLoggedOut, email, ""))
	}
	return nil
}

// CurrentUser returns the stored credential, or nil when signed out.
func (a *AuthService) CurrentUser(ctx context.Context) (*credstore.Credential, UserInfo, error) {
	cred, err := a.s.Store().Load(ctx)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, UserInfo{}, nil
	}
	if err != nil {
		return nil, UserInfo{}, fmt.Errorf("auth.current_user: %w", err)
	}
	cred.FillIdentity()
	return cred, UserInfo{
		Email:         cred.Email,
		Role:          cred.Role,
		IsAdmin:       cred.IsAdmin(),
		Authenticated: true,
	}, nil
}

func (a *AuthService) publish(ctx context.Context, ev events.Event) {
	if err := a.events.PublishEvent(ctx, a.topic, ev.Email, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "type", ev.Type, "error", err)
	}
}
