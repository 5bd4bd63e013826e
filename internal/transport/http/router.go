package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"meatstore/internal/handlers"
	mwauth "meatstore/internal/middleware/auth"
)

type Deps struct {
	Session        *mwauth.Session
	AuthHandler    *handlers.AuthHandler
	CartHandler    *handlers.CartHandler
	ProductHandler *handlers.ProductHandler
	SearchHandler  *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	auth := e.Group("/auth")

	auth.POST("/signup", d.AuthHandler.Signup)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/logout", d.AuthHandler.Logout)
	auth.POST("/send-otp", d.AuthHandler.SendOtp)
	auth.POST("/verify-email", d.AuthHandler.VerifyEmail)
	auth.POST("/forgot-password", d.AuthHandler.ForgotPassword)
	auth.POST("/reset-password/:token", d.AuthHandler.ResetPassword)

	auth.GET("/check-auth", d.AuthHandler.CheckAuth, d.Session.RequireSession)
	auth.GET("/check-admin-auth", d.AuthHandler.CheckAdminAuth, d.Session.RequireSession)

	// maintenance endpoints for initial setup and test cleanup;
	// keep these off any public deployment
	auth.POST("/add-admin-role", d.AuthHandler.AddAdminRole)
	auth.POST("/delete-user-by-email", d.AuthHandler.DeleteUserByEmail)

	users := auth.Group("/users", d.Session.RequireSession, d.Session.RequireAdmin)
	users.GET("", d.AuthHandler.GetAllUsers)
	users.GET("/:id", d.AuthHandler.GetUserByID)
	users.PUT("/:id/role", d.AuthHandler.UpdateUserRole)
	users.DELETE("/:id", d.AuthHandler.DeleteUser)

	cart := e.Group("/cart", d.Session.RequireSession)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("/add", d.CartHandler.AddToCart)
	cart.POST("/add-multiple", d.CartHandler.AddMultipleToCart)
	cart.POST("/remove", d.CartHandler.RemoveFromCart)
	cart.POST("/update", d.CartHandler.UpdateCartItem)
	cart.POST("/clear", d.CartHandler.ClearCart)

	products := e.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	adminProducts := e.Group("/products", d.Session.RequireSession, d.Session.RequireAdmin)
	adminProducts.POST("", d.ProductHandler.CreateProduct)
	adminProducts.PATCH("/:id", d.ProductHandler.PatchProduct)
	adminProducts.DELETE("/:id", d.ProductHandler.DeleteProduct)

	if d.SearchHandler != nil {
		e.GET("/search", d.SearchHandler.Search)
	}
}
