package api

import (
	"net/http"
	"time"

	"commerce-api/internal/models"
	"commerce-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	authService      *service.AuthService
	productService   *service.ProductService
	orderService     *service.OrderService
	inventoryService *service.InventoryService
	debug            bool
}

// NewHandler creates a new HTTP handler
func NewHandler(
	authService *service.AuthService,
	productService *service.ProductService,
	orderService *service.OrderService,
	inventoryService *service.InventoryService,
	debug bool,
) *Handler {
	return &Handler{
		authService:      authService,
		productService:   productService,
		orderService:     orderService,
		inventoryService: inventoryService,
		debug:            debug,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
		auth.POST("/logout", h.authRequired(), h.logout)
		auth.POST("/refresh", h.refresh)
		auth.GET("/me", h.authRequired(), h.me)
	}

	products := v1.Group("/products", h.authRequired())
	{
		products.GET("", h.listProducts)
		products.GET("/search", h.searchProducts)
		products.POST("", h.roleRequired(models.RoleAdmin, models.RoleVendor), h.createProduct)
		products.POST("/import", h.roleRequired(models.RoleAdmin, models.RoleVendor), h.importProducts)
		products.GET("/:id", h.getProduct)
		products.PUT("/:id", h.roleRequired(models.RoleAdmin, models.RoleVendor), h.updateProduct)
		products.DELETE("/:id", h.roleRequired(models.RoleAdmin, models.RoleVendor), h.deleteProduct)
	}

	orders := v1.Group("/orders", h.authRequired())
	{
		orders.GET("", h.listOrders)
		orders.POST("", h.roleRequired(models.RoleCustomer), h.createOrder)
		orders.GET("/:id", h.getOrder)
		orders.PATCH("/:id/status", h.roleRequired(models.RoleAdmin, models.RoleVendor), h.updateOrderStatus)
		orders.POST("/:id/cancel", h.cancelOrder)
	}

	inventory := v1.Group("/inventory", h.authRequired())
	{
		inventory.POST("/variants/:id/add", h.roleRequired(models.RoleAdmin, models.RoleVendor), h.addStock)
		inventory.POST("/variants/:id/adjust", h.roleRequired(models.RoleAdmin, models.RoleVendor), h.adjustStock)
		inventory.GET("/variants/:id/logs", h.roleRequired(models.RoleAdmin, models.RoleVendor), h.listInventoryLogs)
		inventory.GET("/alerts", h.roleRequired(models.RoleAdmin, models.RoleVendor), h.listAlerts)
		inventory.POST("/alerts/:id/resolve", h.roleRequired(models.RoleAdmin, models.RoleVendor), h.resolveAlert)
		inventory.GET("/stock-summary", h.roleRequired(models.RoleAdmin, models.RoleVendor), h.stockSummary)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}
