package devserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	mw "github.com/Skotchmaster/bookstore/pkg/middleware/auth"
	"github.com/Skotchmaster/bookstore/pkg/tokens"
)

type Deps struct {
	AuthHandler    *AuthHTTP
	CatalogHandler *CatalogHTTP
	UserHandler    *UserHTTP
	JWTSecret      []byte
	Ready          func() error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready")
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := mw.NewBearer(d.JWTSecret)

	auth := e.Group("/api/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh-token", d.AuthHandler.Refresh)

	api := e.Group("/api")
	api.GET("/categories", d.CatalogHandler.GetCategories)
	api.GET("/categories/:id", d.CatalogHandler.GetCategory)
	api.GET("/products", d.CatalogHandler.GetProducts)
	api.GET("/products/featured", d.CatalogHandler.GetFeatured)
	api.GET("/products/category/:id", d.CatalogHandler.GetByCategory)
	api.GET("/products/:id", d.CatalogHandler.GetProduct)
	api.GET("/products/:id/details", d.CatalogHandler.GetProductDetails)
	api.GET("/reviews/product/:id", d.CatalogHandler.GetReviews)

	private := api.Group("", authMW.RequireAuth)
	private.GET("/users/me", d.UserHandler.GetMe)

	admin := private.Group("", mw.RequireRole(tokens.RoleAdmin))
	admin.GET("/users", d.UserHandler.GetUsers)
	admin.GET("/roles", d.UserHandler.GetRoles)
}
