package router

import (
	"github.com/labstack/echo/v4"

	"tradelink/internal/adapter/api/middleware"
	"tradelink/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.Limiter) {
	SetupConversationRouter(e, authMiddleware, limiter)
	SetupRFQRouter(e, authMiddleware, limiter)
	SetupHealthRouter(e)
}
