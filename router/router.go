package router

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/controllers"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/services"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	Engine        *services.Engine
	Hub           *kds.Hub
	JWTSecret     []byte
	AllowedOrigin string
	// RateLimitPerSecond per client IP; zero disables the limiter.
	RateLimitPerSecond float64
}

func SetupRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Apply security middlewares
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(deps.AllowedOrigin))
	r.Use(middlewares.LoggerMiddleware())
	if deps.RateLimitPerSecond > 0 {
		burst := int(deps.RateLimitPerSecond * 2)
		r.Use(middlewares.NewRateLimiter(deps.RateLimitPerSecond, burst).RateLimit())
	}

	// Inisialisasi controller
	orderCtrl := controllers.NewOrderController(deps.Engine)
	tableCtrl := controllers.NewTableController(deps.Engine)
	menuCtrl := controllers.NewMenuController(deps.Engine)
	paymentCtrl := controllers.NewPaymentController(deps.Engine)
	kdsCtrl := controllers.NewKDSController(deps.Hub)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// ----------------------------------------------------------------
	//            AUTHENTICATED ROUTES (scoped per restaurant)
	// ----------------------------------------------------------------
	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware(deps.JWTSecret))

	api.GET("/snapshot", orderCtrl.Snapshot)
	api.GET("/menus", menuCtrl.GetAllMenus)
	api.GET("/inventory", menuCtrl.GetInventory)

	// TABLES
	api.GET("/tables", tableCtrl.GetAllTables)
	api.GET("/tables/:table_id", tableCtrl.GetTable)
	api.POST("/tables/:table_id/reset",
		middlewares.RequireRole(middlewares.RoleCashier), tableCtrl.ResetTable)

	// ORDERS
	api.POST("/orders",
		middlewares.RequireRole(middlewares.RoleCashier, middlewares.RoleWaiter), orderCtrl.PlaceOrder)
	api.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	api.PATCH("/orders/:order_id/status",
		middlewares.RequireRole(middlewares.RoleCashier, middlewares.RoleWaiter, middlewares.RoleKitchen), orderCtrl.UpdateOrderStatus)
	api.PATCH("/orders/:order_id/discount",
		middlewares.RequireRole(middlewares.RoleCashier), orderCtrl.ApplyDiscount)
	api.POST("/orders/:order_id/serve",
		middlewares.RequireRole(middlewares.RoleCashier, middlewares.RoleWaiter), orderCtrl.ServeReady)

	// KDS item-level
	api.PATCH("/order-items/:item_id/status",
		middlewares.RequireRole(middlewares.RoleKitchen), orderCtrl.UpdateItemStatus)

	// PAYMENTS
	payments := api.Group("/payments")
	payments.Use(middlewares.RequireRole(middlewares.RoleCashier))
	{
		payments.GET("", paymentCtrl.GetAllPayments)
		payments.GET("/metrics", paymentCtrl.GetMetrics)
		payments.POST("/tables/:table_id", paymentCtrl.PayTable)
		payments.POST("/orders/:order_id", paymentCtrl.PayOrder)
	}

	// WebSocket change feed
	r.GET("/ws", middlewares.AuthMiddleware(deps.JWTSecret), kdsCtrl.KDSHandler)

	return r
}
