package router

import (
	"github.com/labstack/echo/v4"

	"tradelink/internal/adapter/api/handler"
	"tradelink/internal/adapter/api/middleware"
	"tradelink/internal/infrastructure/ratelimit"
)

// SetupConversationRouter mounts the conversation and message endpoints.
func SetupConversationRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.Limiter) {
	conversationHandler := handler.GetConversationHandler()

	group := e.Group("/v1/conversations")
	group.Use(authMiddleware.Authenticate)

	group.POST("", conversationHandler.StartConversation,
		middleware.RateLimit(limiter, ratelimit.ActionStartConversation))
	group.GET("", conversationHandler.ListConversations)
	group.GET("/:id", conversationHandler.GetConversation)
	group.POST("/:id", conversationHandler.SendMessage,
		middleware.RateLimit(limiter, ratelimit.ActionSendMessage))
	group.PUT("/:id/read", conversationHandler.MarkRead)
}
