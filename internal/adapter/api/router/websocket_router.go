package router

import (
	"github.com/labstack/echo/v4"

	"tradelink/internal/adapter/api/handler"
)

// SetupWebSocketRouter mounts the real-time endpoint. Auth is handled inside
// the handler via the token query parameter.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws", wsHandler.HandleWebSocket)
}
