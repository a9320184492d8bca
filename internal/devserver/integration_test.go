package devserver

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/bookstore/internal/transport"
	"github.com/Skotchmaster/bookstore/pkg/db"
)

func newPostgresService(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()

	dsn := os.Getenv("AUTH_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("AUTH_TEST_DATABASE_URL is required for tests")
	}

	ctx := context.Background()
	gdb, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, gdb))
	require.NoError(t, Seed(ctx, gdb, nil))

	t.Cleanup(func() {
		gdb.Exec("TRUNCATE TABLE refresh_tokens, users RESTART IDENTITY CASCADE")
		_ = db.Close(gdb)
	})

	return &AuthService{
		Repo:          &GormRepo{DB: gdb},
		JWTSecret:     []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}, gdb
}

func TestPostgresRegisterConflict(t *testing.T) {
	svc, _ := newPostgresService(t)
	ctx := context.Background()
	email := "u_" + uuid.NewString() + "@example.com"

	_, err := svc.Register(ctx, transport.RegisterRequest{Email: email, Password: "Secret123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, transport.RegisterRequest{Email: email, Password: "Secret123"})
	assert.ErrorIs(t, err, ErrUserAlreadyExist)
}

// Concurrent rotations of one refresh token: exactly one may win.
func TestPostgresConcurrentRotation(t *testing.T) {
	svc, _ := newPostgresService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, transport.RegisterRequest{Email: "u_" + uuid.NewString() + "@example.com", Password: "Secret123"})
	require.NoError(t, err)

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Refresh(ctx, res.RefreshToken); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}
