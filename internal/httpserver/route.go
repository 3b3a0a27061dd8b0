package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
)

type Deps struct {
	CartHandler     *CartHTTP
	CouponHandler   *CouponHTTP
	CheckoutHandler *CheckoutHTTP
	OrderHandler    *OrderHTTP
	CatalogHandler  *CatalogHTTP

	JWTSecret  []byte
	AuthClient middleware.Refresher

	// Ready reports whether the service can take traffic. Nil means always.
	Ready func(ctx context.Context) error
	// CSRF, when set, guards every /api/v1 route.
	CSRF echo.MiddlewareFunc
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				logging.FromContext(c.Request().Context()).Warn("readiness_failed", "error", err)
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.AuthClient)
	auth, admin := authMW.RequireAuth, authMW.RequireAdmin

	v1 := e.Group("/api/v1")
	if d.CSRF != nil {
		v1.Use(d.CSRF)
	}

	products := v1.Group("/products")
	products.GET("", d.CatalogHandler.GetProducts)
	products.GET("/search", d.CatalogHandler.Search)
	products.GET("/:id", d.CatalogHandler.GetProduct)
	products.POST("", d.CatalogHandler.CreateProduct, admin)
	products.PATCH("/:id", d.CatalogHandler.PatchProduct, admin)

	cart := v1.Group("/cart", auth)
	cart.GET("", d.CartHandler.GetCart)
	cart.DELETE("", d.CartHandler.ClearCart)
	cart.POST("/items/:productId", d.CartHandler.UpsertItem)
	cart.DELETE("/items/:productId", d.CartHandler.RemoveItem)

	coupons := v1.Group("/coupons")
	coupons.POST("/apply", d.CouponHandler.Apply, auth)
	coupons.DELETE("/apply", d.CouponHandler.Remove, auth)
	coupons.GET("/available", d.CouponHandler.ListAvailable, auth)
	coupons.POST("", d.CouponHandler.Create, admin)
	coupons.GET("", d.CouponHandler.List, admin)
	coupons.GET("/:id", d.CouponHandler.Get, admin)
	coupons.PATCH("/:id", d.CouponHandler.Update, admin)
	coupons.DELETE("/:id", d.CouponHandler.Delete, admin)
	coupons.PATCH("/:id/status", d.CouponHandler.SetStatus, admin)

	orders := v1.Group("/orders")
	orders.POST("/razorpay", d.CheckoutHandler.CreateRazorpay, auth)
	orders.POST("/razorpay/verify", d.CheckoutHandler.VerifyRazorpay, auth)
	orders.POST("/paypal", d.CheckoutHandler.CreatePaypal, auth)
	orders.POST("/paypal/verify", d.CheckoutHandler.VerifyPaypal, auth)
	orders.GET("/mine", d.OrderHandler.ListMine, auth)
	orders.GET("/:id", d.OrderHandler.Get, auth)
	orders.GET("", d.OrderHandler.ListAdmin, admin)
	orders.PATCH("/:id/status", d.OrderHandler.UpdateStatus, admin)

	users := v1.Group("/users", admin)
	users.POST("/:id/cart", d.CartHandler.ProvisionCart)
}
