package router

import (
	"github.com/labstack/echo/v4"

	"tradelink/internal/adapter/api/handler"
	"tradelink/internal/adapter/api/middleware"
	"tradelink/internal/infrastructure/ratelimit"
)

// SetupRFQRouter mounts the quote-request endpoints.
func SetupRFQRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.Limiter) {
	rfqHandler := handler.GetRFQHandler()

	group := e.Group("/v1/rfq")
	group.Use(authMiddleware.Authenticate)

	group.POST("", rfqHandler.CreateRFQ,
		middleware.RateLimit(limiter, ratelimit.ActionCreateRFQ))
	group.GET("", rfqHandler.ListRFQs)
	group.GET("/:id", rfqHandler.GetRFQ)
	group.PUT("/:id", rfqHandler.UpdateRFQ)
}
