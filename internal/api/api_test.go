package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/bookstore/internal/credstore"
	"github.com/Skotchmaster/bookstore/internal/events"
	"github.com/Skotchmaster/bookstore/internal/gateway"
	"github.com/Skotchmaster/bookstore/internal/models"
	"github.com/Skotchmaster/bookstore/internal/transport"
	"github.com/Skotchmaster/bookstore/pkg/logging"
	"github.com/Skotchmaster/bookstore/pkg/tokens"
)

var secret = []byte("api-test-secret")

type backend struct {
	mu       sync.Mutex
	requests []string
	token    string
}

func (b *backend) note(c echo.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, c.Request().Method+" "+c.Request().URL.RequestURI()+" "+c.Request().Header.Get("Authorization"))
}

func (b *backend) seen() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

func (b *backend) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Header.Get("Authorization") != "Bearer "+b.token {
			return echo.NewHTTPError(http.StatusUnauthorized)
		}
		return next(c)
	}
}

func newBackend(t *testing.T, token string) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{token: token}

	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			b.note(c)
			return next(c)
		}
	})

	e.POST("/api/auth/login", func(c echo.Context) error {
		var req transport.LoginRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest)
		}
		if req.Password != "secret1" {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return c.JSON(http.StatusOK, map[string]string{"token": token, "refreshToken": "R1", "type": "Bearer"})
	})
	e.POST("/api/auth/register", func(c echo.Context) error {
		var body map[string]any
		if err := c.Bind(&body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest)
		}
		if _, ok := body["confirmPassword"]; ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unexpected field")
		}
		return c.JSON(http.StatusCreated, map[string]string{"token": token, "refreshToken": "R1", "email": body["email"].(string)})
	})

	e.GET("/api/categories", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []models.Category{{ID: 1, Name: "Fiction"}, {ID: 2, Name: "Science"}})
	})
	e.GET("/api/products", func(c echo.Context) error {
		page, _ := strconv.Atoi(c.QueryParam("page"))
		size, _ := strconv.Atoi(c.QueryParam("size"))
		return c.JSON(http.StatusOK, models.Page[models.Product]{
			Data: []models.Product{{ID: 3, Name: "Dune", Price: 9.5, CategoryID: 1}},
			Meta: models.PageMeta{Page: page, Size: size, Total: 1, TotalPages: 1},
		})
	})
	e.GET("/api/products/featured", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []models.Product{{ID: 3, Name: "Dune", Featured: true}})
	})
	e.GET("/api/products/:id/details", func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.ProductDetails{
			Product: models.Product{ID: 3, Name: "Dune"},
			Reviews: []models.Review{{ID: 1, ProductID: 3, Rating: 5, Comment: "great"}},
		})
	})
	e.GET("/api/products/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	})

	admin := e.Group("/api", b.requireAuth)
	admin.POST("/products", func(c echo.Context) error {
		var req transport.ProductRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest)
		}
		return c.JSON(http.StatusCreated, models.Product{ID: 10, Name: req.Name, Price: req.Price, CategoryID: req.CategoryID})
	})
	admin.DELETE("/categories/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	admin.GET("/roles", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []models.Role{{ID: 1, Name: "admin"}, {ID: 2, Name: "user"}})
	})
	admin.GET("/users/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.User{ID: 7, Email: "reader@example.com", Role: "admin"})
	})
	admin.PUT("/reviews/:id", func(c echo.Context) error {
		var req transport.ReviewRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest)
		}
		id, _ := strconv.Atoi(c.Param("id"))
		return c.JSON(http.StatusOK, models.Review{ID: uint(id), Rating: req.Rating, Comment: req.Comment})
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return b, srv
}

type fixture struct {
	api     *API
	gw      *gateway.Gateway
	store   *credstore.MemoryStore
	backend *backend
	events  *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	token, err := tokens.SignAccessToken("reader@example.com", tokens.RoleAdmin, time.Now().Add(time.Hour), secret)
	require.NoError(t, err)

	b, srv := newBackend(t, token)
	store := credstore.NewMemoryStore()
	rec := &events.Recorder{}

	gw, err := gateway.New(gateway.Config{BaseURL: srv.URL}, gateway.Deps{
		Store:     store,
		Logger:    logging.Discard(),
		Navigator: gateway.NavigatorFunc(func(context.Context, string) {}),
	})
	require.NoError(t, err)

	return &fixture{api: New(gw, rec, ""), gw: gw, store: store, backend: b, events: rec}
}

func (f *fixture) login(t *testing.T) *credstore.Credential {
	t.Helper()
	cred, err := f.api.Auth.Login(context.Background(), transport.LoginRequest{Email: " reader@example.com ", Password: "secret1"})
	require.NoError(t, err)
	return cred
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	cred := f.login(t)
	assert.Equal(t, "reader@example.com", cred.Email)
	assert.Equal(t, tokens.RoleAdmin, cred.Role)
	assert.Equal(t, "R1", cred.RefreshToken)

	stored, err := f.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cred.AccessToken, stored.AccessToken)

	_, info, err := f.api.Auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, UserInfo{Email: "reader@example.com", Role: "admin", IsAdmin: true, Authenticated: true}, info)
	assert.Equal(t, []string{events.TypeLoggedIn}, f.events.Types())

	me, err := f.api.Users.Me(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 7, me.ID)
}

func TestAuthService_LoginRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.api.Auth.Login(context.Background(), transport.LoginRequest{Email: "reader@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, gateway.IsStatus(err, http.StatusUnauthorized))
	assert.NotErrorIs(t, err, gateway.ErrRefreshFailed)
	assert.Contains(t, err.Error(), "auth.login")

	_, err = f.store.Load(context.Background())
	assert.ErrorIs(t, err, credstore.ErrNotFound)
	assert.Empty(t, f.events.Types())
}

func TestAuthService_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.api.Auth.Login(ctx, transport.LoginRequest{Password: "x"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.api.Auth.Login(ctx, transport.LoginRequest{Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrValidation)

	valid := transport.RegisterRequest{
		FirstName:       "Ann",
		LastName:        "Lee",
		Email:           "ann@example.com",
		PhoneNumber:     "0912 345 678",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}

	cases := map[string]func(r *transport.RegisterRequest){
		"no first name":  func(r *transport.RegisterRequest) { r.FirstName = " " },
		"no last name":   func(r *transport.RegisterRequest) { r.LastName = "" },
		"no email":       func(r *transport.RegisterRequest) { r.Email = "" },
		"bad email":      func(r *transport.RegisterRequest) { r.Email = "ann.example.com" },
		"short password": func(r *transport.RegisterRequest) { r.Password, r.ConfirmPassword = "abc", "abc" },
		"mismatch":       func(r *transport.RegisterRequest) { r.ConfirmPassword = "secret2" },
		"bad phone":      func(r *transport.RegisterRequest) { r.PhoneNumber = "12ab" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := valid
			mutate(&req)
			_, err := f.api.Auth.Register(ctx, req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Empty(t, f.backend.seen())

	cred, err := f.api.Auth.Register(ctx, valid)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", cred.Email)
	assert.Equal(t, []string{events.TypeRegistered}, f.events.Types())
}

func TestAuthService_LogoutIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.api.Auth.Logout(ctx))
	assert.Empty(t, f.events.Types())

	f.login(t)
	require.NoError(t, f.api.Auth.Logout(ctx))
	require.NoError(t, f.api.Auth.Logout(ctx))
	assert.Equal(t, []string{events.TypeLoggedIn, events.TypeLoggedOut}, f.events.Types())

	cred, info, err := f.api.Auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, cred)
	assert.False(t, info.Authenticated)
}

func TestCatalogServices(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	cats, err := f.api.Categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 2)

	page, err := f.api.Products.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, 1, page.Meta.Page)
	assert.Equal(t, 20, page.Meta.Size)

	featured, err := f.api.Products.Featured(ctx)
	require.NoError(t, err)
	assert.True(t, featured[0].Featured)

	details, err := f.api.Products.Details(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Dune", details.Name)
	require.Len(t, details.Reviews, 1)

	_, err = f.api.Products.Get(ctx, 404)
	require.Error(t, err)
	var se *gateway.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Contains(t, err.Error(), "products.get")

	for _, r := range f.backend.seen() {
		assert.NotContains(t, r, "Bearer", "public calls go out without a credential")
	}
}

func TestProtectedServices(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.login(t)

	_, err := f.api.Products.Create(ctx, transport.ProductRequest{Name: "Dune", Description: "desert", Price: 0, CategoryID: 1})
	assert.ErrorIs(t, err, ErrValidation)

	p, err := f.api.Products.Create(ctx, transport.ProductRequest{Name: "Dune", Description: "desert", Price: 12, CategoryID: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 10, p.ID)

	require.NoError(t, f.api.Categories.Delete(ctx, 1))

	roles, err := f.api.Roles.List(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 2)

	_, err = f.api.Reviews.Update(ctx, 4, transport.ReviewRequest{Rating: 6})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.api.Reviews.Add(ctx, transport.ReviewRequest{Rating: 4})
	assert.ErrorIs(t, err, ErrValidation)

	rv, err := f.api.Reviews.Update(ctx, 4, transport.ReviewRequest{Rating: 4, Comment: "good"})
	require.NoError(t, err)
	assert.EqualValues(t, 4, rv.ID)
	assert.Equal(t, 4, rv.Rating)

	_, err = f.api.Roles.Create(ctx, transport.RoleRequest{Name: " "})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.api.Categories.Create(ctx, transport.CategoryRequest{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRegisterRequestOmitsConfirmation(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(transport.RegisterRequest{Email: "a@b.c", Password: "p", ConfirmPassword: "p"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "confirm")
}
