// Package devserver is a stand-in bookstore backend. It implements the auth
// and catalog endpoints the client talks to, for local runs and tests.
package devserver

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	loggingmw "github.com/Skotchmaster/bookstore/pkg/middleware/logging"
)

type Options struct {
	JWTSecret     []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Now           func() time.Time
}

// New builds the echo server over an already migrated database.
func New(db *gorm.DB, opts Options, log *slog.Logger) *echo.Echo {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(echomw.Recover())
	e.Use(loggingmw.RequestLogger(log))

	repo := &GormRepo{DB: db}
	Register(e, &Deps{
		AuthHandler: &AuthHTTP{Svc: &AuthService{
			Repo:          repo,
			JWTSecret:     opts.JWTSecret,
			RefreshSecret: opts.RefreshSecret,
			AccessTTL:     opts.AccessTTL,
			RefreshTTL:    opts.RefreshTTL,
			Now:           opts.Now,
		}},
		CatalogHandler: &CatalogHTTP{Repo: repo},
		UserHandler:    &UserHTTP{Repo: repo},
		JWTSecret:      opts.JWTSecret,
		Ready: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return sqlDB.PingContext(ctx)
		},
	})
	return e
}
