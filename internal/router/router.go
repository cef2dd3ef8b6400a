package router // package router defines how HTTP routes are registered for the storefront

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/service-storefront/internal/handler"
	"github.com/iliyamo/service-storefront/internal/metrics"
)

// RegisterRoutes registers the operational endpoints that never look at a
// session: health check and Prometheus metrics.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// Storefront groups the middleware every page route runs behind.
type Storefront struct {
	Session echo.MiddlewareFunc // restores the session from the cookie
	Guard   echo.MiddlewareFunc // applies the authorization state machine
	Limit   echo.MiddlewareFunc // rate limits form submissions
	Cache   echo.MiddlewareFunc // caches catalog pages
}

// RegisterStorefront registers every page and form route.  All of them
// run behind Session and Guard; the route's class (guest, user, admin,
// any signed-in, public) is decided by the guard from the path alone.
func RegisterStorefront(e *echo.Echo, h *handler.Handler, mw Storefront) {
	g := e.Group("", mw.Session, mw.Guard)

	// Public pages and the boot endpoint.
	g.GET("/contact", h.Contact)
	g.GET("/privacy", h.Privacy)
	g.GET("/session", h.SessionInfo)
	g.POST("/logout", h.Logout)
	// "/" only ever redirects; the guard answers before this handler runs.
	g.GET("/", h.SessionInfo)

	// Guest-only.
	g.GET("/login", h.LoginPage)
	g.POST("/login", h.Login, mw.Limit)
	g.GET("/register", h.RegisterPage)
	g.POST("/register", h.Register, mw.Limit)

	// Plain users.
	g.GET("/dashboard", h.Dashboard)
	g.GET("/service/:id", h.ServiceDetail, mw.Cache)
	g.POST("/service/:id/order", h.PlaceOrder, mw.Limit)
	g.GET("/orders", h.Orders)
	g.GET("/add-money", h.AddMoneyPage)
	g.POST("/add-money", h.AddMoney, mw.Limit)

	// Any signed-in user.
	g.GET("/profile", h.Profile)
	g.POST("/profile", h.UpdateProfile, mw.Limit)

	// Admins.
	a := g.Group("/admin")
	a.GET("", h.AdminStats)
	a.POST("/profile", h.UpdateAdminProfile, mw.Limit)

	a.GET("/users", handler.ListTable(h, h.Tables.Users))
	a.POST("/users/:id", h.EditUser)
	a.POST("/users/:id/delete", handler.ApplyTable(h, h.Tables.Users, "delete", nil))

	a.GET("/orders", handler.ListTable(h, h.Tables.Orders))
	a.POST("/orders/:id/:action", handler.ApplyTable(h, h.Tables.Orders, "", nil))

	a.GET("/topups", handler.ListTable(h, h.Tables.TopUps))
	a.POST("/topups/:id/:action", handler.ApplyTable(h, h.Tables.TopUps, "", nil))

	a.GET("/services", handler.ListTable(h, h.Tables.Services))
	a.POST("/services", h.CreateService)
	a.POST("/services/:id", h.UpdateService)
	a.POST("/services/:id/delete", handler.ApplyTable(h, h.Tables.Services, "delete", h.PurgeCatalog))
}
