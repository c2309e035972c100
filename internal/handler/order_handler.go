package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anyulbade/furniture-credit/internal/dto"
	"github.com/anyulbade/furniture-credit/internal/middleware"
	"github.com/anyulbade/furniture-credit/internal/model"
	"github.com/anyulbade/furniture-credit/internal/repository"
	"github.com/anyulbade/furniture-credit/internal/service"
)

type OrderHandler struct {
	orders *service.OrderService
	recon  *service.ReconciliationService
}

func NewOrderHandler(orders *service.OrderService, recon *service.ReconciliationService) *OrderHandler {
	return &OrderHandler{orders: orders, recon: recon}
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorListResponse{
			Error: "validation failed: " + err.Error(),
		})
		return
	}

	res, err := h.orders.CreateOrder(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.OrderResponse{
		Order:               res.Order,
		PaymentPendingRetry: res.PaymentPendingRetry,
		Warnings:            res.Warnings,
	})
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.orders.GetOrder(c.Request.Context(), middleware.UserID(c), c.Param("id"), middleware.IsAdmin(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderResponse{Order: o})
}

func (h *OrderHandler) List(c *gin.Context) {
	h.list(c, false)
}

// ListCredit lists the caller's credit orders only.
func (h *OrderHandler) ListCredit(c *gin.Context) {
	h.list(c, true)
}

func (h *OrderHandler) list(c *gin.Context, creditOnly bool) {
	p := dto.ParsePagination(c)
	status := c.Query("status")

	orders, total, err := h.orders.ListOrders(c.Request.Context(), repository.OrderFilter{
		UserID:     middleware.UserID(c),
		CreditOnly: creditOnly,
		Status:     status,
		Limit:      p.PageSize,
		Offset:     p.Offset,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	c.JSON(http.StatusOK, dto.OrderListResponse{
		Data:       orders,
		Pagination: dto.NewPagination(p.Page, p.PageSize, total),
	})
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	o, err := h.orders.CancelOrder(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderResponse{Order: o})
}

// CreditDetails reconciles the order with the provider before answering.
// An unreachable provider still yields 200 with the cached data.
func (h *OrderHandler) CreditDetails(c *gin.Context) {
	res, err := h.recon.SyncOrder(c.Request.Context(), middleware.UserID(c), c.Param("id"), middleware.IsAdmin(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	msg := "Credit details synchronized"
	if res.SyncError != "" {
		msg = "Credit provider unavailable, showing cached details"
	}
	c.JSON(http.StatusOK, dto.CreditDetailsResponse{
		Order:       res.Order,
		Reservation: res.Order.Payment.Credit,
		Updated:     res.Updated,
		SyncError:   res.SyncError,
		Message:     msg,
	})
}

func (h *OrderHandler) RegenerateInstruction(c *gin.Context) {
	var req dto.InstructionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorListResponse{
				Error: "validation failed: " + err.Error(),
			})
			return
		}
	}

	o, pi, err := h.orders.RegenerateInstruction(c.Request.Context(), middleware.UserID(c), c.Param("id"), middleware.IsAdmin(c), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_id":    o.ID,
		"instruction": pi,
	})
}

func (h *OrderHandler) Activate(c *gin.Context) {
	o, err := h.recon.ActivateReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderResponse{Order: o})
}

func (h *OrderHandler) CancelCredit(c *gin.Context) {
	o, err := h.recon.CancelReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderResponse{Order: o})
}
