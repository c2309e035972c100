package dto

import (
	"time"

	"github.com/anyulbade/furniture-credit/internal/fees"
	"github.com/anyulbade/furniture-credit/internal/model"
)

type ValidationError struct {
	Index   int    `json:"index,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorListResponse struct {
	Error  string            `json:"error"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ErrorResponse is the body of every mapped service error. Details carry the
// underlying cause and are dropped in production.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Reasons []string `json:"reasons,omitempty"`
	Details string   `json:"details,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

type OrderResponse struct {
	Order               *model.Order `json:"order"`
	PaymentPendingRetry bool         `json:"payment_pending_retry,omitempty"`
	Warnings            []string     `json:"warnings,omitempty"`
}

type OrderListResponse struct {
	Data       []model.Order `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

type EligibilityResponse struct {
	Eligible              bool                       `json:"eligible"`
	Reasons               []string                   `json:"reasons"`
	EstimatedInstallments []fees.InstallmentEstimate `json:"estimated_installments"`
	CreditLimit           float64                    `json:"credit_limit"`
	AvailableCredit       float64                    `json:"available_credit"`
}

type InstallmentStats struct {
	Total   int `json:"total"`
	Paid    int `json:"paid"`
	Pending int `json:"pending"`
	Overdue int `json:"overdue"`
}

type InstallmentView struct {
	model.Installment
	SequenceNumber int  `json:"sequence_number"`
	IsOverdue      bool `json:"is_overdue"`
}

type InstallmentsResponse struct {
	OrderID          string                    `json:"order_id"`
	OrderNumber      string                    `json:"order_number"`
	OrderStatus      string                    `json:"order_status"`
	ReservationID    string                    `json:"reservation_id"`
	Status           string                    `json:"status"`
	MonthlyPayment   float64                   `json:"monthly_payment"`
	InstallmentCount int                       `json:"installment_count"`
	TotalAmount      float64                   `json:"total_amount"`
	Installments     []InstallmentView         `json:"installments"`
	Stats            InstallmentStats          `json:"stats"`
	NextInstallment  *InstallmentView          `json:"next_installment"`
	PaymentMethods   map[string]map[string]any `json:"payment_methods,omitempty"`
}

type CreditDetailsResponse struct {
	Order       *model.Order             `json:"order"`
	Reservation *model.CreditReservation `json:"reservation"`
	Updated     bool                     `json:"updated"`
	SyncError   string                   `json:"sync_error,omitempty"`
	Message     string                   `json:"message"`
}

type CreditUtilization struct {
	Percentage float64 `json:"percentage"`
	Ratio      string  `json:"ratio"`
}

type CreditStatistics struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Defaulted int `json:"defaulted"`
}

type CreditProfileResponse struct {
	CreditLimit       float64               `json:"credit_limit"`
	AvailableCredit   float64               `json:"available_credit"`
	UsedCredit        float64               `json:"used_credit"`
	OutstandingAmount float64               `json:"outstanding_amount"`
	Utilization       CreditUtilization     `json:"utilization"`
	Statistics        CreditStatistics      `json:"statistics"`
	Requests          []model.CreditRequest `json:"requests"`
}

type PaymentMethodsResponse struct {
	OrderID          string                    `json:"order_id"`
	Instructions     map[string]map[string]any `json:"instructions"`
	AvailableMethods []string                  `json:"available_methods"`
}

type FeeOptionsResponse struct {
	Amount  float64             `json:"amount"`
	Options []fees.FeeBreakdown `json:"options"`
}

type WebhookAck struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}
