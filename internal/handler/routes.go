package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/anyulbade/furniture-credit/internal/middleware"
)

type Handlers struct {
	Orders  *OrderHandler
	Credit  *CreditHandler
	Webhook *WebhookHandler
	Admin   *AdminHandler
}

// RegisterRoutes mounts the /api/v1 surface. Webhooks are unauthenticated
// and rely on the payload signature instead.
func RegisterRoutes(router *gin.Engine, h Handlers, jwtSecret string, webhookTest bool) {
	api := router.Group("/api/v1")

	hooks := api.Group("/webhooks")
	{
		hooks.POST("/credit-provider", h.Webhook.CreditProvider)
		if webhookTest {
			hooks.POST("/test", h.Webhook.Test)
			hooks.GET("/test", h.Webhook.Test)
		}
	}

	authed := api.Group("", middleware.Auth(jwtSecret))

	orders := authed.Group("/orders")
	{
		orders.POST("", h.Orders.Create)
		orders.GET("", h.Orders.List)
		orders.GET("/:id", h.Orders.Get)
		orders.POST("/:id/cancel", h.Orders.Cancel)
		orders.GET("/:id/credit-details", h.Orders.CreditDetails)
		orders.POST("/:id/payment-instruction", h.Orders.RegenerateInstruction)
		orders.POST("/:id/activate", middleware.RequireAdmin(), h.Orders.Activate)
		orders.POST("/:id/cancel-credit", middleware.RequireAdmin(), h.Orders.CancelCredit)
	}

	credit := authed.Group("/credit")
	{
		credit.POST("/check-eligibility", h.Credit.CheckEligibility)
		credit.POST("/apply", h.Credit.Apply)
		credit.GET("/profile", h.Credit.Profile)
		credit.GET("/orders", h.Orders.ListCredit)
		credit.GET("/orders/:orderId/installments", h.Credit.Installments)
		credit.GET("/orders/:orderId/installments/:installmentId/instructions", h.Credit.ActiveInstructions)
		credit.GET("/orders/:orderId/instructions/:instructionId", h.Credit.Instruction)
		credit.PATCH("/orders/:orderId/instructions/:instructionId/view", h.Credit.MarkInstructionViewed)
		credit.POST("/orders/:orderId/instructions/:instructionId/regenerate", h.Credit.RegenerateInstruction)
		credit.POST("/payment-confirmation", h.Credit.ConfirmPayment)
		credit.GET("/payment-methods/:orderId", h.Credit.PaymentMethods)
		credit.GET("/installment-options", h.Credit.InstallmentOptions)
	}

	admin := authed.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/settings", h.Admin.GetSettings)
		admin.PATCH("/settings", h.Admin.UpdateSettings)
		admin.POST("/settings/reset", h.Admin.ResetSettings)
		admin.GET("/credit/fees", h.Admin.CalculateFees)
		admin.GET("/credit/reservations", h.Admin.Reservations)
		admin.GET("/credit/reservations/stats", h.Admin.ReservationStats)
		admin.GET("/credit/installments/:id", h.Admin.ProviderInstallment)
		admin.POST("/credit/reminders", h.Admin.SendReminders)
	}
}
