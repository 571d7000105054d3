package server

import (
	"github.com/labstack/echo/v4"

	"example.com/banking-assistant/backend/internal/handlers"
)

func registerRoutes(
	e *echo.Echo,
	chatHandler *handlers.ChatHandler,
	toolsHandler *handlers.ToolsHandler,
	chatRateLimiter echo.MiddlewareFunc,
) {
	e.GET("/health", handlers.Health)

	e.POST("/chat", chatHandler.Chat, chatRateLimiter)

	tools := e.Group("/tool")
	tools.GET("/transactions", toolsHandler.ListTransactions)
	tools.GET("/transactions/:txId", toolsHandler.GetTransaction)
	tools.GET("/balances", toolsHandler.GetBalance)
}
