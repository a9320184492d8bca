package devserver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/bookstore/internal/credstore"
	"github.com/Skotchmaster/bookstore/internal/models"
	"github.com/Skotchmaster/bookstore/internal/transport"
	"github.com/Skotchmaster/bookstore/pkg/hash"
	"github.com/Skotchmaster/bookstore/pkg/logging"
	"github.com/Skotchmaster/bookstore/pkg/tokens"
)

const RoleUser = "user"

type AuthService struct {
	Repo          *GormRepo
	JWTSecret     []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Now           func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// issue signs a new token pair for user and records the refresh token.
func (s *AuthService) issue(user *models.User) (*transport.AuthResponse, models.RefreshToken, error) {
	now := s.now()

	access, err := tokens.SignAccessToken(user.Email, user.Role, now.Add(s.AccessTTL), s.JWTSecret)
	if err != nil {
		return nil, models.RefreshToken{}, err
	}

	jti := uuid.NewString()
	refreshExp := now.Add(s.RefreshTTL)
	refresh, err := tokens.SignRefreshToken(strconv.FormatUint(uint64(user.ID), 10), jti, refreshExp, s.RefreshSecret)
	if err != nil {
		return nil, models.RefreshToken{}, err
	}

	record := models.RefreshToken{
		JTI:       jti,
		TokenHash: sha256Hex(refresh),
		UserID:    user.ID,
		ExpiresAt: refreshExp,
	}
	return &transport.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		Scheme:       credstore.DefaultScheme,
		Identity:     credstore.Identity{Email: user.Email, Role: user.Role},
	}, record, nil
}

func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*transport.AuthResponse, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: pwHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		Role:         RoleUser,
		IsActive:     true,
	}
	if role, err := s.Repo.RoleByName(ctx, RoleUser); err == nil {
		user.RoleID = role.ID
	}

	if err := s.Repo.CreateUserIfNotExists(ctx, &user); err != nil {
		if errors.Is(err, ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 409, "reason", "user already exist")
		} else {
			l.Error("register_error", "status", 500, "error", err)
		}
		return nil, err
	}

	return s.startSession(ctx, &user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*transport.AuthResponse, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "email", email)

	user, err := s.Repo.UserByCredentials(ctx, email, password)
	if err != nil {
		l.Warn("login_failed", "error", err)
		return nil, err
	}
	return s.startSession(ctx, user)
}

func (s *AuthService) startSession(ctx context.Context, user *models.User) (*transport.AuthResponse, error) {
	res, record, err := s.issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	if err := s.Repo.AddRefreshToken(ctx, record); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return res, nil
}

// Refresh rotates a refresh token: the old one is revoked and a new pair is
// issued. Reusing a rotated token fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*transport.AuthResponse, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		l.Warn("refresh_failed", "reason", "invalid token", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidRefreshToken)
	}
	user, err := s.Repo.UserByID(ctx, uint(userID))
	if err != nil {
		return nil, fmt.Errorf("%w: unknown user", ErrInvalidRefreshToken)
	}

	res, next, err := s.issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	if err := s.Repo.RotateRefreshToken(ctx, claims.ID, refreshToken, next, s.now()); err != nil {
		l.Warn("refresh_failed", "reason", "rotation rejected", "error", err)
		return nil, err
	}

	l.Info("refresh_success", "user_id", user.ID)
	return res, nil
}
