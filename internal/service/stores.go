package service

import (
	"context"

	"github.com/anyulbade/furniture-credit/internal/kredika"
	"github.com/anyulbade/furniture-credit/internal/model"
	"github.com/anyulbade/furniture-credit/internal/repository"
)

type OrderStore interface {
	Create(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, id string) (*model.Order, error)
	FindByReservationID(ctx context.Context, reservationID string) (*model.Order, error)
	Update(ctx context.Context, o *model.Order) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f repository.OrderFilter) ([]model.Order, int, error)
	ListByCreditStatus(ctx context.Context, statuses ...model.ReservationStatus) ([]model.Order, error)
}

type ProductStore interface {
	FindByID(ctx context.Context, id string) (*model.Product, error)
	IncrementStock(ctx context.Context, id string, delta int) error
}

type UserStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type SettingsStore interface {
	Get(ctx context.Context) (model.Settings, error)
	Save(ctx context.Context, s model.Settings) error
}

type CreditRequestStore interface {
	Create(ctx context.Context, cr *model.CreditRequest) error
	ListByUser(ctx context.Context, userID string) ([]model.CreditRequest, error)
}

// CreditProvider is the subset of the Kredika client the services call.
type CreditProvider interface {
	CreateReservation(ctx context.Context, req kredika.CreateReservationRequest) (*kredika.Reservation, error)
	GetReservationByID(ctx context.Context, id string) (*kredika.Reservation, error)
	GetReservationByExternalRef(ctx context.Context, ref string) (*kredika.Reservation, error)
	ListReservations(ctx context.Context, status string) ([]kredika.Reservation, error)
	ActivateReservation(ctx context.Context, id string) (*kredika.Reservation, error)
	CancelReservation(ctx context.Context, id string) (*kredika.Reservation, error)
	GetReservationStats(ctx context.Context) (*kredika.ReservationStats, error)
	ListInstallments(ctx context.Context, reservationID string) ([]kredika.Installment, error)
	GetInstallmentByID(ctx context.Context, id string) (*kredika.Installment, error)
	ProcessInstallmentPayment(ctx context.Context, installmentID string, paidAmount float64, externalPaymentRef string) (*kredika.Installment, error)
	ListUpcomingInstallments(ctx context.Context, daysAhead int) ([]kredika.Installment, error)
	SendPaymentReminder(ctx context.Context, installmentID string) error
	GeneratePaymentInstruction(ctx context.Context, req kredika.PaymentInstructionRequest) (*kredika.PaymentInstruction, error)
	GetPaymentInstructionByID(ctx context.Context, id string) (*kredika.PaymentInstruction, error)
	GetActivePaymentInstructions(ctx context.Context, installmentID string) ([]kredika.PaymentInstruction, error)
	MarkInstructionAsViewed(ctx context.Context, id string) (*kredika.PaymentInstruction, error)
	RegeneratePaymentInstruction(ctx context.Context, id string, validityHours int) (*kredika.PaymentInstruction, error)
	VerifyWebhookSignature(raw []byte, signature string) kredika.WebhookResult
	HealthCheck(ctx context.Context) error
}

// Notifier delivers credit status changes to the customer. Implementations
// may fail; callers only log the error.
type Notifier interface {
	NotifyOrderCreditStatus(ctx context.Context, order *model.Order, user *model.User, status string) error
}
