// README: HTTP router registration.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bazaar/internal/http/handlers"
	"bazaar/internal/http/middleware"
	"bazaar/internal/modules/delivery"
	"bazaar/internal/modules/notify"
	"bazaar/internal/modules/order"
)

type RouterDeps struct {
	Orders       *order.Service
	Delivery     *delivery.Service
	Notify       *notify.Service
	JWTSecret    string
	SSEHeartbeat time.Duration
}

func NewRouter(deps RouterDeps) http.Handler {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	orderHandler := handlers.NewOrderHandler(deps.Orders)
	otpHandler := handlers.NewOTPHandler(deps.Orders)
	trackingHandler := handlers.NewTrackingHandler(deps.Orders)
	deliveryHandler := handlers.NewDeliveryHandler(deps.Delivery)
	sellerHandler := handlers.NewSellerHandler(deps.Orders)
	notifyHandler := handlers.NewNotifyHandler(deps.Notify, deps.SSEHeartbeat)

	// Storefront-facing surface.
	r.POST("/orders", orderHandler.Create)
	r.GET("/orders", orderHandler.List)
	r.GET("/orders/:id", orderHandler.Get)
	r.POST("/orders/:id/cancel", orderHandler.Cancel)
	r.GET("/order/tracking", trackingHandler.Timeline)
	r.GET("/realtime/notifications", notifyHandler.Stream)

	auth := middleware.Auth(deps.JWTSecret)

	agent := r.Group("/", auth, middleware.RequireRole("agent", "admin"))
	agent.POST("/order/generate-otp", otpHandler.Generate)
	agent.POST("/order/verify-otp", otpHandler.Verify)
	agent.PATCH("/agents/:id/availability", deliveryHandler.SetAvailability)
	agent.PUT("/agents/:id/location", deliveryHandler.UpdateLocation)

	admin := r.Group("/", auth, middleware.RequireRole("admin"))
	admin.POST("/delivery/assign", deliveryHandler.Assign)
	admin.GET("/delivery/assign", deliveryHandler.AssignByQuery)
	admin.POST("/admin/tracking", trackingHandler.Append)
	admin.GET("/admin/tracking/recent", trackingHandler.Recent)
	admin.POST("/agents", deliveryHandler.Register)
	admin.GET("/agents/available", deliveryHandler.ListAvailable)

	seller := r.Group("/", auth, middleware.RequireRole("seller", "admin"))
	seller.PATCH("/seller/orders/:id/status", sellerHandler.UpdateStatus)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
