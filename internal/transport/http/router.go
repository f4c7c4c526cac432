package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/internal/handlers"
	"github.com/Skotchmaster/marketplace/internal/session"
)

type Deps struct {
	DB              *gorm.DB
	JWTSecret       []byte
	MediaDir        string
	AuthHandler     *handlers.AuthHandler
	ProductHandler  *handlers.ProductHandler
	CartHandler     *handlers.CartHandler
	PurchaseHandler *handlers.PurchaseHandler
}

// Register wires every route. Paths are registered without the trailing
// slash, RemoveTrailingSlash in front of the router makes /cart/ and /cart
// equivalent.
func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	e.GET("/login", d.AuthHandler.LoginForm)
	e.POST("/login", d.AuthHandler.Login)
	e.GET("/signup", d.AuthHandler.SignupForm)
	e.POST("/signup", d.AuthHandler.Signup)
	e.GET("/logout", d.AuthHandler.Logout)

	if d.MediaDir != "" {
		e.Static("/media", d.MediaDir)
	}

	authed := e.Group("", session.RequireLogin(d.JWTSecret))

	authed.GET("/", d.ProductHandler.Feed)
	authed.GET("/add-product", d.ProductHandler.AddProductForm)
	authed.POST("/add-product", d.ProductHandler.AddProduct)
	authed.GET("/my-listings", d.ProductHandler.MyListings)
	authed.GET("/product/:id", d.ProductHandler.ProductDetail)
	authed.GET("/dashboard", d.ProductHandler.Dashboard)

	authed.GET("/cart", d.CartHandler.ViewCart)
	authed.POST("/cart/add/:product_id", d.CartHandler.AddToCart)
	authed.POST("/cart/remove/:cart_item_id", d.CartHandler.RemoveFromCart)

	authed.POST("/checkout", d.PurchaseHandler.Checkout)
	authed.GET("/purchases", d.PurchaseHandler.History)
}
