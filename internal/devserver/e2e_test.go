package devserver_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/bookstore/internal/api"
	"github.com/Skotchmaster/bookstore/internal/credstore"
	"github.com/Skotchmaster/bookstore/internal/devserver"
	"github.com/Skotchmaster/bookstore/internal/events"
	"github.com/Skotchmaster/bookstore/internal/gateway"
	"github.com/Skotchmaster/bookstore/internal/transport"
	"github.com/Skotchmaster/bookstore/pkg/db"
	"github.com/Skotchmaster/bookstore/pkg/logging"
)

type skewClock struct{ skew atomic.Int64 }

func (c *skewClock) Now() time.Time { return time.Now().Add(time.Duration(c.skew.Load())) }

type stack struct {
	api    *api.API
	gw     *gateway.Gateway
	store  credstore.Store
	clock  *skewClock
	events *events.Recorder
	reg    *prometheus.Registry

	mu   sync.Mutex
	navs []string
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()

	gdb, err := db.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	require.NoError(t, devserver.Migrate(ctx, gdb))
	require.NoError(t, devserver.Seed(ctx, gdb, &devserver.SeedAdmin{Email: "admin@example.com", Password: "admin-pass"}))

	clk := &skewClock{}
	srv := httptest.NewServer(devserver.New(gdb, devserver.Options{
		JWTSecret:     []byte("e2e-access"),
		RefreshSecret: []byte("e2e-refresh"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Now:           clk.Now,
	}, logging.Discard()))
	t.Cleanup(srv.Close)

	store, err := credstore.NewGormStore(ctx, gdb, credstore.DefaultKey)
	require.NoError(t, err)

	s := &stack{store: store, clock: clk, events: &events.Recorder{}, reg: prometheus.NewRegistry()}
	s.gw, err = gateway.New(gateway.Config{BaseURL: srv.URL}, gateway.Deps{
		Store:   store,
		Events:  s.events,
		Metrics: gateway.NewMetrics(s.reg),
		Logger:  logging.Discard(),
		Navigator: gateway.NavigatorFunc(func(_ context.Context, target string) {
			s.mu.Lock()
			s.navs = append(s.navs, target)
			s.mu.Unlock()
		}),
	})
	require.NoError(t, err)
	s.api = api.New(s.gw, s.events, "")
	return s
}

func (s *stack) navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navs...)
}

func (s *stack) refreshCount(t *testing.T, outcome string) float64 {
	t.Helper()
	families, err := s.reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "bookstore_gateway_refresh_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

// loginExpired signs in with tokens that are already past their expiry.
func (s *stack) loginExpired(t *testing.T) *credstore.Credential {
	t.Helper()
	s.clock.skew.Store(int64(-5 * time.Minute))
	cred, err := s.api.Auth.Login(context.Background(), transport.LoginRequest{Email: "admin@example.com", Password: "admin-pass"})
	require.NoError(t, err)
	s.clock.skew.Store(0)
	return cred
}

func TestSessionRefreshedOnceAgainstDevServer(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	old := s.loginExpired(t)

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = s.api.Users.List(ctx)
			} else {
				_, errs[i] = s.api.Roles.List(ctx)
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1.0, s.refreshCount(t, "success"))

	stored, err := s.store.Load(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, old.AccessToken, stored.AccessToken)
	assert.NotEqual(t, old.RefreshToken, stored.RefreshToken)
	assert.Equal(t, "admin@example.com", stored.Email)
	assert.Equal(t, "admin", stored.Role)
	assert.Empty(t, s.navigations())
	assert.Equal(t, []string{events.TypeLoggedIn, events.TypeSessionRefresh}, s.events.Types())
}

func TestRevokedRefreshTokenEndsSession(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	s.loginExpired(t)

	cred, err := s.store.Load(ctx)
	require.NoError(t, err)
	// rotate behind the gateway's back so the stored refresh token is spent
	resp, err := s.gw.Do(refreshRequest(t, s.gw, cred.RefreshToken))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	_, err = s.api.Users.List(ctx)
	require.ErrorIs(t, err, gateway.ErrRefreshFailed)

	_, err = s.store.Load(ctx)
	assert.ErrorIs(t, err, credstore.ErrNotFound)
	assert.Equal(t, []string{"/login?session=expired"}, s.navigations())
	assert.Zero(t, s.refreshCount(t, "success"))
	assert.Equal(t, 1.0, s.refreshCount(t, "failure"))
	assert.Equal(t, []string{events.TypeLoggedIn, events.TypeSessionExpired}, s.events.Types())

	_, info, err := s.api.Auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.False(t, info.Authenticated)
}

func refreshRequest(t *testing.T, gw *gateway.Gateway, refreshToken string) *http.Request {
	t.Helper()
	req, err := gw.NewRequest(context.Background(), http.MethodPost, gateway.DefaultRefreshPath, map[string]string{"refreshToken": refreshToken})
	require.NoError(t, err)
	return req
}
