package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/anyulbade/furniture-credit/internal/dto"
	"github.com/anyulbade/furniture-credit/internal/model"
)

type InstallmentService struct {
	orders   OrderStore
	users    UserStore
	provider CreditProvider
	notifier Notifier
	now      func() time.Time
}

func NewInstallmentService(orders OrderStore, users UserStore, provider CreditProvider, notifier Notifier) *InstallmentService {
	return &InstallmentService{
		orders:   orders,
		users:    users,
		provider: provider,
		notifier: notifier,
		now:      time.Now,
	}
}

// ConfirmPayment records a customer-reported payment against one
// installment. A second confirmation of the same installment is rejected
// with AlreadyPaidError and leaves the order untouched.
func (s *InstallmentService) ConfirmPayment(ctx context.Context, userID string, req *dto.PaymentConfirmationRequest) (*model.Installment, *model.Order, error) {
	var paid model.Installment
	var completed bool

	o, _, err := mutateOrder(ctx, s.orders, req.OrderID, s.now, func(o *model.Order) (bool, error) {
		completed = false
		if userID != "" && o.UserID != userID {
			return false, ErrOrderNotFound
		}
		if o.Payment.Credit == nil {
			return false, ErrNotCreditOrder
		}

		_, inst := o.Payment.Credit.FindInstallment(req.InstallmentID)
		if inst == nil {
			return false, ErrInstallmentNotFound
		}
		if inst.Status == model.InstallmentPaid {
			return false, &AlreadyPaidError{InstallmentID: inst.InstallmentID, PaidAt: inst.PaidAt}
		}

		now := s.now()
		inst.Status = model.InstallmentPaid
		inst.PaidAt = &now
		note := fmt.Sprintf("Installment %s paid via %s (%s)", inst.InstallmentID, req.PaymentMethod, req.TransactionReference)
		o.AddHistory(string(o.Status), note, now)
		paid = *inst

		completed = completeIfAllPaid(o, now)
		return true, nil
	})
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Str("order_id", o.ID).
		Str("installment_id", paid.InstallmentID).
		Float64("amount", req.Amount).
		Bool("completed", completed).
		Msg("installment payment confirmed")

	if _, err := s.provider.ProcessInstallmentPayment(ctx, paid.InstallmentID, req.Amount, req.TransactionReference); err != nil {
		log.Warn().Err(err).Str("installment_id", paid.InstallmentID).Msg("provider payment report failed")
	}

	if completed {
		notify(ctx, s.notifier, s.users, o, string(model.ReservationCompleted))
	}
	return &paid, o, nil
}

// MarkPaidFromProvider applies a provider-reported installment payment.
// Replays are no-ops rather than errors.
func (s *InstallmentService) MarkPaidFromProvider(ctx context.Context, orderID, installmentID, ref, event string) (*model.Order, bool, error) {
	var completed bool
	o, changed, err := mutateOrder(ctx, s.orders, orderID, s.now, func(o *model.Order) (bool, error) {
		completed = false
		if o.Payment.Credit == nil {
			return false, ErrNotCreditOrder
		}
		_, inst := o.Payment.Credit.FindInstallment(installmentID)
		if inst == nil {
			return false, ErrInstallmentNotFound
		}
		if inst.Status == model.InstallmentPaid {
			return false, nil
		}

		now := s.now()
		inst.Status = model.InstallmentPaid
		inst.PaidAt = &now
		o.AddHistory(string(o.Status), fmt.Sprintf("Installment %s paid (%s)", installmentID, ref), now)
		o.Payment.Credit.LastWebhookEvent = event
		o.Payment.Credit.LastWebhookAt = &now

		completed = completeIfAllPaid(o, now)
		return true, nil
	})
	if err != nil {
		return nil, false, err
	}
	if completed {
		notify(ctx, s.notifier, s.users, o, string(model.ReservationCompleted))
	}
	return o, changed, nil
}

// completeIfAllPaid runs the completion cascade once the last installment
// is paid.
func completeIfAllPaid(o *model.Order, at time.Time) bool {
	credit := o.Payment.Credit
	if !credit.AllPaid() || credit.Status == model.ReservationCompleted {
		return false
	}
	applyReservationStatus(o, model.ReservationCompleted, at)
	return true
}
