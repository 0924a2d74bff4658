package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/rmarquez/prestia/prestia-backend/internal/middleware"
)

// RegisterRoutes wires all HTTP routes
func RegisterRoutes(
	e *echo.Echo,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
	loanHandler *LoanHandler,
	paymentHandler *PaymentHandler,
	statsHandler *StatsHandler,
	syncHandler *SyncHandler,
	imageHandler *ImageHandler,
	wsHandler *WebSocketHandler,
) {
	e.GET("/healthz", Healthz)

	// WebSocket authenticates via token query param, not the auth middleware
	e.GET("/ws", wsHandler.HandleWS)

	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())
	api.Use(middleware.RateLimitMiddleware(rateLimiter))

	loans := api.Group("/loans")
	loans.POST("", loanHandler.CreateLoan)
	loans.GET("", loanHandler.GetLoans)
	loans.GET("/:id", loanHandler.GetLoan)
	loans.PUT("/:id", loanHandler.UpdateLoan)
	loans.PATCH("/:id/photo", loanHandler.UpdateLoanPhoto)
	loans.DELETE("/:id", loanHandler.DeleteLoan)
	loans.GET("/:id/cycles", loanHandler.GetCycleHistory)
	loans.POST("/:id/payments", paymentHandler.RecordPayment)
	loans.POST("/:id/payments/validate", paymentHandler.ValidatePayment)
	loans.GET("/:id/payments", paymentHandler.GetPaymentsByLoan)
	loans.GET("/:id/payments/stats", paymentHandler.GetPaymentStats)

	api.GET("/payments/recent", paymentHandler.GetRecentPayments)
	api.GET("/cycles/:id/payments", paymentHandler.GetPaymentsByCycle)

	api.GET("/stats/summary", statsHandler.GetSummary)
	api.GET("/stats/status-counts", statsHandler.GetStatusCounts)
	api.GET("/notifications", statsHandler.GetNotifications)

	api.POST("/sync", syncHandler.TriggerSync)
	api.GET("/sync/status", syncHandler.GetSyncStatus)

	api.POST("/images", imageHandler.UploadImage)
	api.GET("/images/url", imageHandler.PresignImage)
	api.DELETE("/images", imageHandler.DeleteImage)
}
