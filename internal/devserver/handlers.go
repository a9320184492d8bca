package devserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/bookstore/internal/models"
	"github.com/Skotchmaster/bookstore/internal/transport"
	"github.com/Skotchmaster/bookstore/pkg/logging"
	mw "github.com/Skotchmaster/bookstore/pkg/middleware/auth"
	"github.com/Skotchmaster/bookstore/pkg/util"
)

type AuthHTTP struct {
	Svc *AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || len(req.Password) < 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "email and a password of at least 6 characters are required")
	}

	res, err := h.Svc.Register(ctx, req)
	if err != nil {
		if errors.Is(err, ErrUserAlreadyExist) {
			return echo.NewHTTPError(http.StatusConflict, "user already exist")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "register failed")
	}

	l.Info("register_success", "email", req.Email)
	return c.JSON(http.StatusCreated, res)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	l.Info("login_successful")
	return c.JSON(http.StatusOK, res)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		l.Warn("refresh_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "refreshToken is required")
	}

	res, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "refresh failed")
	}
	return c.JSON(http.StatusOK, res)
}

type CatalogHTTP struct {
	Repo *GormRepo
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}
	return uint(id), nil
}

func notFoundOr500(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, what+" not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "cannot load "+what)
}

func (h *CatalogHTTP) GetCategories(c echo.Context) error {
	cats, err := h.Repo.Categories(c.Request().Context())
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("get_categories_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load categories")
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *CatalogHTTP) GetCategory(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	cat, err := h.Repo.Category(c.Request().Context(), id)
	if err != nil {
		return notFoundOr500(err, "category")
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	if page < 1 {
		page = 1
	}
	offset, limit := util.Calculate(page, util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize))

	total, items, err := h.Repo.Products(ctx, offset, limit)
	if err != nil {
		l.Error("get_products_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get products")
	}

	return c.JSON(http.StatusOK, models.Page[models.Product]{
		Data: items,
		Meta: models.PageMeta{
			Page:       page,
			Size:       limit,
			Total:      total,
			TotalPages: util.TotalPages(total, limit),
			HasPrev:    page > 1,
			HasNext:    int64(offset+limit) < total,
		},
	})
}

func (h *CatalogHTTP) GetFeatured(c echo.Context) error {
	items, err := h.Repo.ProductsWhere(c.Request().Context(), "featured = ?", true)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get products")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHTTP) GetByCategory(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	items, err := h.Repo.ProductsWhere(c.Request().Context(), "category_id = ?", id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get products")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.Repo.Product(c.Request().Context(), id)
	if err != nil {
		return notFoundOr500(err, "product")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) GetProductDetails(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.Repo.Product(ctx, id)
	if err != nil {
		return notFoundOr500(err, "product")
	}
	reviews, err := h.Repo.Reviews(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load reviews")
	}
	return c.JSON(http.StatusOK, models.ProductDetails{Product: *p, Reviews: reviews})
}

func (h *CatalogHTTP) GetReviews(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	reviews, err := h.Repo.Reviews(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load reviews")
	}
	return c.JSON(http.StatusOK, reviews)
}

type UserHTTP struct {
	Repo *GormRepo
}

func (h *UserHTTP) GetUsers(c echo.Context) error {
	users, err := h.Repo.Users(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load users")
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHTTP) GetMe(c echo.Context) error {
	email, _ := c.Get(mw.CtxEmail).(string)
	user, err := h.Repo.UserByEmail(c.Request().Context(), email)
	if err != nil {
		return notFoundOr500(err, "user")
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHTTP) GetRoles(c echo.Context) error {
	roles, err := h.Repo.Roles(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load roles")
	}
	return c.JSON(http.StatusOK, roles)
}
