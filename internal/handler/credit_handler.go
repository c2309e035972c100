package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/anyulbade/furniture-credit/internal/dto"
	"github.com/anyulbade/furniture-credit/internal/middleware"
	"github.com/anyulbade/furniture-credit/internal/service"
)

type CreditHandler struct {
	credit   *service.CreditService
	payments *service.InstallmentService
	settings *service.SettingsService
}

func NewCreditHandler(credit *service.CreditService, payments *service.InstallmentService, settings *service.SettingsService) *CreditHandler {
	return &CreditHandler{credit: credit, payments: payments, settings: settings}
}

func (h *CreditHandler) CheckEligibility(c *gin.Context) {
	var req dto.EligibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorListResponse{Error: "validation failed: " + err.Error()})
		return
	}

	resp, err := h.credit.CheckEligibility(c.Request.Context(), middleware.UserID(c), req.PurchaseAmount)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CreditHandler) Apply(c *gin.Context) {
	var req dto.CreditApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorListResponse{Error: "validation failed: " + err.Error()})
		return
	}

	cr, err := h.credit.Apply(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, cr)
}

func (h *CreditHandler) Profile(c *gin.Context) {
	resp, err := h.credit.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CreditHandler) Installments(c *gin.Context) {
	resp, err := h.credit.Installments(c.Request.Context(), middleware.UserID(c), c.Param("orderId"), middleware.IsAdmin(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CreditHandler) ConfirmPayment(c *gin.Context) {
	var req dto.PaymentConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorListResponse{Error: "validation failed: " + err.Error()})
		return
	}

	inst, o, err := h.payments.ConfirmPayment(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"installment":        inst,
		"order_status":       o.Status,
		"reservation_status": o.Payment.Credit.Status,
		"payment_status":     o.Payment.Status,
	})
}

func (h *CreditHandler) PaymentMethods(c *gin.Context) {
	resp, err := h.credit.PaymentMethods(c.Request.Context(), middleware.UserID(c), c.Param("orderId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CreditHandler) InstallmentOptions(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil || amount <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "amount must be a positive number"})
		return
	}

	options, err := h.settings.InstallmentOptions(c.Request.Context(), amount)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.FeeOptionsResponse{Amount: amount, Options: options})
}

func (h *CreditHandler) ActiveInstructions(c *gin.Context) {
	list, err := h.credit.ActiveInstructions(c.Request.Context(), middleware.UserID(c), c.Param("orderId"), c.Param("installmentId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *CreditHandler) Instruction(c *gin.Context) {
	pi, err := h.credit.Instruction(c.Request.Context(), middleware.UserID(c), c.Param("orderId"), c.Param("instructionId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, pi)
}

func (h *CreditHandler) MarkInstructionViewed(c *gin.Context) {
	pi, err := h.credit.MarkInstructionViewed(c.Request.Context(), middleware.UserID(c), c.Param("orderId"), c.Param("instructionId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, pi)
}

func (h *CreditHandler) RegenerateInstruction(c *gin.Context) {
	hours, _ := strconv.Atoi(c.DefaultQuery("validity_hours", "72"))
	if hours <= 0 || hours > 720 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "validity_hours must be between 1 and 720"})
		return
	}

	pi, err := h.credit.RegenerateInstructionByID(c.Request.Context(), middleware.UserID(c), c.Param("orderId"), c.Param("instructionId"), hours)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, pi)
}
