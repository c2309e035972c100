package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/anyulbade/furniture-credit/internal/dto"
	"github.com/anyulbade/furniture-credit/internal/middleware"
	"github.com/anyulbade/furniture-credit/internal/service"
)

type AdminHandler struct {
	settings *service.SettingsService
	credit   *service.CreditService
}

func NewAdminHandler(settings *service.SettingsService, credit *service.CreditService) *AdminHandler {
	return &AdminHandler{settings: settings, credit: credit}
}

func (h *AdminHandler) GetSettings(c *gin.Context) {
	s, err := h.settings.Get(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var patch dto.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorListResponse{Error: "validation failed: " + err.Error()})
		return
	}

	s, err := h.settings.Update(c.Request.Context(), middleware.UserID(c), &patch)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *AdminHandler) ResetSettings(c *gin.Context) {
	s, err := h.settings.Reset(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *AdminHandler) CalculateFees(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil || amount <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "amount must be a positive number"})
		return
	}
	months, err := strconv.Atoi(c.DefaultQuery("months", "12"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "months must be an integer"})
		return
	}

	b, err := h.settings.Fees(c.Request.Context(), amount, months)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *AdminHandler) ReservationStats(c *gin.Context) {
	stats, err := h.credit.ReservationStats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) Reservations(c *gin.Context) {
	list, err := h.credit.Reservations(c.Request.Context(), c.Query("status"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *AdminHandler) ProviderInstallment(c *gin.Context) {
	inst, err := h.credit.ProviderInstallment(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (h *AdminHandler) SendReminders(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days_ahead", "3"))
	if err != nil || days < 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "days_ahead must be a non-negative integer"})
		return
	}
	report, err := h.credit.SendReminders(c.Request.Context(), days)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upcoming": report.Upcoming, "sent": report.Sent, "failed": report.Failed})
}
