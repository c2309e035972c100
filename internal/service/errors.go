package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrInstallmentNotFound     = errors.New("installment not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")
	ErrNotCreditOrder          = errors.New("order was not paid with credit")
	ErrOrderNotCancellable     = errors.New("order cannot be cancelled in its current status")
)

// ValidationError is a malformed or out-of-bounds request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ProductUnavailableError struct {
	ProductID string
	Name      string
}

func (e *ProductUnavailableError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("product %s is not available", e.ProductID)
	}
	return fmt.Sprintf("product %s is not available", e.Name)
}

type InsufficientStockError struct {
	ProductID string
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s. Available: %d, requested: %d", e.Name, e.Available, e.Requested)
}

// InsufficientCreditError lists every credit condition the purchase violates.
type InsufficientCreditError struct {
	Reasons []string
}

func (e *InsufficientCreditError) Error() string {
	return "credit not eligible: " + strings.Join(e.Reasons, "; ")
}

type AlreadyPaidError struct {
	InstallmentID string
	PaidAt        *time.Time
}

func (e *AlreadyPaidError) Error() string {
	return fmt.Sprintf("installment %s is already paid", e.InstallmentID)
}

// ReservationError wraps a provider failure during credit checkout. The
// order has already been removed when it is returned.
type ReservationError struct {
	Err error
}

func (e *ReservationError) Error() string {
	return "payment could not be reserved, try another payment method"
}

func (e *ReservationError) Unwrap() error {
	return e.Err
}
