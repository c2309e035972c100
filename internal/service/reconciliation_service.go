package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/anyulbade/furniture-credit/internal/kredika"
	"github.com/anyulbade/furniture-credit/internal/model"
	"github.com/anyulbade/furniture-credit/internal/repository"
)

const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
	EventPaymentRefunded  = "payment.refunded"
	EventPaymentPending   = "payment.pending"
	EventInstallmentPaid  = "installment.paid"

	reservationEventPrefix = "reservation."
	syncMarker             = "sync.manual"
)

// SyncResult is what a manual reconciliation returns. SyncError is set,
// and Order holds cached data, when the provider could not be reached.
type SyncResult struct {
	Order     *model.Order
	Updated   bool
	SyncError string
}

type WebhookOutcome struct {
	Event   string
	OrderID string
	Applied bool
	Ignored bool
}

type ReconciliationService struct {
	orders   OrderStore
	products ProductStore
	users    UserStore
	provider CreditProvider
	notifier Notifier
	payments *InstallmentService
	now      func() time.Time
}

func NewReconciliationService(orders OrderStore, products ProductStore, users UserStore, provider CreditProvider, notifier Notifier, payments *InstallmentService) *ReconciliationService {
	return &ReconciliationService{
		orders:   orders,
		products: products,
		users:    users,
		provider: provider,
		notifier: notifier,
		payments: payments,
		now:      time.Now,
	}
}

// SyncOrder pulls the reservation from the provider and applies it to the
// local order. Provider failures never fail the call.
func (s *ReconciliationService) SyncOrder(ctx context.Context, userID, orderID string, admin bool) (*SyncResult, error) {
	cached, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if !admin && cached.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if !cached.IsCredit() {
		return nil, ErrNotCreditOrder
	}

	res, installments, err := s.fetchReservation(ctx, cached)
	if err != nil {
		log.Warn().Err(err).Str("order_id", orderID).Msg("reservation sync failed, returning cached order")
		return &SyncResult{Order: cached, SyncError: err.Error()}, nil
	}

	o, updated, err := s.applyRemote(ctx, orderID, res, installments, syncMarker)
	if err != nil {
		return nil, err
	}
	return &SyncResult{Order: o, Updated: updated}, nil
}

// fetchReservation loads the reservation and its installment schedule. An
// order whose reservation id was never stored is recovered through its
// external reference.
func (s *ReconciliationService) fetchReservation(ctx context.Context, o *model.Order) (*kredika.Reservation, []kredika.Installment, error) {
	if o.Payment.Credit == nil || o.Payment.Credit.ReservationID == "" {
		res, err := s.provider.GetReservationByExternalRef(ctx, externalOrderRef(o.ID))
		if err != nil {
			return nil, nil, err
		}
		if len(res.Installments) > 0 {
			return res, res.Installments, nil
		}
		installments, err := s.provider.ListInstallments(ctx, res.ID())
		if err != nil {
			return nil, nil, err
		}
		return res, installments, nil
	}

	id := o.Payment.Credit.ReservationID
	g, gctx := errgroup.WithContext(ctx)

	var res *kredika.Reservation
	var listed []kredika.Installment
	g.Go(func() error {
		var err error
		res, err = s.provider.GetReservationByID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		listed, err = s.provider.ListInstallments(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if len(res.Installments) > 0 {
		return res, res.Installments, nil
	}
	return res, listed, nil
}

// applyRemote writes the provider's view onto the order if its status
// changed. Installments are replaced wholesale.
func (s *ReconciliationService) applyRemote(ctx context.Context, orderID string, res *kredika.Reservation, installments []kredika.Installment, marker string) (*model.Order, bool, error) {
	status := model.ReservationStatus(res.Status)
	if !status.Valid() {
		log.Warn().Str("order_id", orderID).Str("status", res.Status).Msg("unknown reservation status from provider")
		o, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return nil, false, fmt.Errorf("load order %s: %w", orderID, err)
		}
		return o, false, nil
	}

	var restock bool
	var previous model.ReservationStatus
	o, changed, err := mutateOrder(ctx, s.orders, orderID, s.now, func(o *model.Order) (bool, error) {
		restock = false
		now := s.now()

		if o.Payment.Credit == nil {
			o.Payment.Credit = &model.CreditReservation{
				ExternalOrderRef:    externalOrderRef(o.ID),
				ExternalCustomerRef: externalCustomerRef(o.UserID),
				CreatedAt:           now,
			}
		}
		credit := o.Payment.Credit
		previous = credit.Status

		recovered := credit.ReservationID == ""
		if recovered {
			credit.ReservationID = res.ID()
			credit.PurchaseAmount = res.PurchaseAmount
			credit.MonthlyPayment = res.MonthlyPayment
			credit.InstallmentCount = res.InstallmentCount
		}
		if credit.Status == status && !recovered {
			return false, nil
		}

		restock = applyReservationStatus(o, status, now)
		credit.Installments = toInstallments(installments)
		credit.LastWebhookEvent = marker
		credit.LastWebhookAt = &now
		return true, nil
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		log.Info().
			Str("order_id", orderID).
			Str("from", string(previous)).
			Str("to", string(status)).
			Str("source", marker).
			Msg("reservation status reconciled")
		if restock {
			restoreStock(ctx, s.products, o)
		}
		if previous != status {
			notify(ctx, s.notifier, s.users, o, string(status))
		}
	}
	return o, changed, nil
}

// HandleWebhook verifies and applies one provider event. Well-signed events
// this service does not know are acknowledged and ignored.
func (s *ReconciliationService) HandleWebhook(ctx context.Context, raw []byte, signature string) (*WebhookOutcome, error) {
	result := s.provider.VerifyWebhookSignature(raw, signature)
	if !result.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookSignature, result.Error)
	}

	p := result.Payload
	out := &WebhookOutcome{Event: p.Event}

	if !knownEvent(p.Event) {
		log.Info().Str("event", p.Event).Msg("unhandled webhook event")
		out.Ignored = true
		return out, nil
	}

	o, err := s.resolveOrder(ctx, p)
	if err != nil {
		return nil, err
	}
	out.OrderID = o.ID

	log.Info().Str("event", p.Event).Str("order_id", o.ID).Str("transaction_id", p.TransactionID).Msg("webhook received")

	switch {
	case p.Event == EventInstallmentPaid:
		_, applied, err := s.payments.MarkPaidFromProvider(ctx, o.ID, p.InstallmentID, p.TransactionID, p.Event)
		if err != nil {
			return nil, err
		}
		out.Applied = applied
		return out, nil

	case strings.HasPrefix(p.Event, reservationEventPrefix):
		if o.Payment.Credit != nil && o.Payment.Credit.ReservationID != "" &&
			string(o.Payment.Credit.Status) == p.Status {
			log.Info().Str("event", p.Event).Str("order_id", o.ID).Msg("webhook already processed")
			return out, nil
		}
		res := &kredika.Reservation{CreditReservationID: p.ReservationID, Status: p.Status}
		installments, err := s.webhookInstallments(ctx, o, p)
		if err != nil {
			log.Warn().Err(err).Str("order_id", o.ID).Msg("installment refresh failed, keeping cached schedule")
			if o.Payment.Credit != nil {
				installments = toProviderInstallments(o.Payment.Credit.Installments)
			}
		}
		if res.CreditReservationID == "" && o.Payment.Credit != nil {
			res.CreditReservationID = o.Payment.Credit.ReservationID
		}
		_, applied, err := s.applyRemote(ctx, o.ID, res, installments, p.Event)
		if err != nil {
			return nil, err
		}
		out.Applied = applied
		return out, nil
	}

	applied, err := s.applyPaymentEvent(ctx, o.ID, p)
	if err != nil {
		return nil, err
	}
	out.Applied = applied
	return out, nil
}

func knownEvent(event string) bool {
	switch event {
	case EventPaymentSucceeded, EventPaymentFailed, EventPaymentRefunded, EventPaymentPending, EventInstallmentPaid:
		return true
	}
	return strings.HasPrefix(event, reservationEventPrefix)
}

// resolveOrder finds the order an event refers to: by order id first, then
// by reservation id or transaction id.
func (s *ReconciliationService) resolveOrder(ctx context.Context, p kredika.WebhookPayload) (*model.Order, error) {
	if p.OrderID != "" {
		o, err := s.orders.FindByID(ctx, p.OrderID)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("load order %s: %w", p.OrderID, err)
		}
	}
	for _, ref := range []string{p.ReservationID, p.TransactionID} {
		if ref == "" {
			continue
		}
		o, err := s.orders.FindByReservationID(ctx, ref)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("load order by reservation %s: %w", ref, err)
		}
	}
	log.Warn().Str("order_id", p.OrderID).Str("transaction_id", p.TransactionID).Msg("webhook order not found")
	return nil, ErrOrderNotFound
}

// webhookInstallments fetches the current schedule so a reservation event
// overwrites installments with provider data, like a manual sync does.
func (s *ReconciliationService) webhookInstallments(ctx context.Context, o *model.Order, p kredika.WebhookPayload) ([]kredika.Installment, error) {
	id := p.ReservationID
	if id == "" && o.Payment.Credit != nil {
		id = o.Payment.Credit.ReservationID
	}
	if id == "" {
		return nil, errors.New("no reservation id")
	}
	return s.provider.ListInstallments(ctx, id)
}

func toProviderInstallments(list []model.Installment) []kredika.Installment {
	out := make([]kredika.Installment, 0, len(list))
	for _, inst := range list {
		out = append(out, kredika.Installment{
			InstallmentID: inst.InstallmentID,
			DueDate:       kredika.Date{Time: inst.DueDate},
			Amount:        inst.Amount,
			Status:        string(inst.Status),
			PaidAt:        inst.PaidAt,
		})
	}
	return out
}

func (s *ReconciliationService) applyPaymentEvent(ctx context.Context, orderID string, p kredika.WebhookPayload) (bool, error) {
	var restock bool
	o, changed, err := mutateOrder(ctx, s.orders, orderID, s.now, func(o *model.Order) (bool, error) {
		restock = false
		now := s.now()
		ref := p.TransactionID

		switch p.Event {
		case EventPaymentSucceeded:
			if o.Payment.Status == model.PaymentPaid {
				return false, nil
			}
			o.Payment.Status = model.PaymentPaid
			o.Payment.PaidAt = &now
			o.Status = model.OrderConfirmed
			o.AddHistory(string(model.OrderConfirmed), fmt.Sprintf("Payment confirmed (%s)", ref), now)

		case EventPaymentFailed:
			if o.Payment.Status == model.PaymentFailed {
				return false, nil
			}
			o.Payment.Status = model.PaymentFailed
			if o.Status != model.OrderCancelled {
				o.Status = model.OrderCancelled
				restock = o.ReleaseStock()
			}
			o.AddHistory(string(model.OrderCancelled), fmt.Sprintf("Payment failed (%s)", ref), now)

		case EventPaymentRefunded:
			if o.Payment.Status == model.PaymentRefunded {
				return false, nil
			}
			o.Payment.Status = model.PaymentRefunded
			o.AddHistory("refunded", fmt.Sprintf("Payment refunded (%s)", ref), now)
			if o.Status == model.OrderConfirmed || o.Status == model.OrderProcessing {
				o.Status = model.OrderCancelled
				restock = o.ReleaseStock()
			}

		case EventPaymentPending:
			if o.Payment.Status == model.PaymentPending {
				return false, nil
			}
			o.Payment.Status = model.PaymentPending
			o.AddHistory(string(model.PaymentPending), fmt.Sprintf("Payment pending (%s)", ref), now)
		}

		if o.Payment.Credit != nil {
			o.Payment.Credit.LastWebhookEvent = p.Event
			o.Payment.Credit.LastWebhookAt = &now
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}

	if !changed {
		log.Info().Str("event", p.Event).Str("order_id", orderID).Msg("webhook already processed")
		return false, nil
	}
	if restock {
		restoreStock(ctx, s.products, o)
	}
	return true, nil
}

// ActivateReservation activates the order's reservation with the provider
// and applies the ACTIVE transition locally.
func (s *ReconciliationService) ActivateReservation(ctx context.Context, orderID string) (*model.Order, error) {
	return s.transition(ctx, orderID, "activate.admin", s.provider.ActivateReservation)
}

// CancelReservation cancels the order's reservation with the provider and
// applies the CANCELLED transition locally, restoring stock.
func (s *ReconciliationService) CancelReservation(ctx context.Context, orderID string) (*model.Order, error) {
	return s.transition(ctx, orderID, "cancel.admin", s.provider.CancelReservation)
}

func (s *ReconciliationService) transition(ctx context.Context, orderID, marker string, call func(context.Context, string) (*kredika.Reservation, error)) (*model.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if o.Payment.Credit == nil || o.Payment.Credit.ReservationID == "" {
		return nil, ErrNotCreditOrder
	}

	res, err := call(ctx, o.Payment.Credit.ReservationID)
	if err != nil {
		return nil, err
	}

	installments := res.Installments
	if len(installments) == 0 {
		installments = toProviderInstallments(o.Payment.Credit.Installments)
	}
	if res.ID() == "" {
		res.CreditReservationID = o.Payment.Credit.ReservationID
	}

	updated, _, err := s.applyRemote(ctx, orderID, res, installments, marker)
	return updated, err
}

// SweepReport summarizes a scheduled reconciliation pass.
type SweepReport struct {
	Checked int
	Updated int
	Failed  int
}

// SweepOpenReservations runs the manual sync over every order whose
// reservation is still RESERVED or ACTIVE.
func (s *ReconciliationService) SweepOpenReservations(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	orders, err := s.orders.ListByCreditStatus(ctx, model.ReservationReserved, model.ReservationActive)
	if err != nil {
		return report, fmt.Errorf("list open reservations: %w", err)
	}

	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		res, err := s.SyncOrder(ctx, "", o.ID, true)
		switch {
		case err != nil:
			report.Failed++
			log.Error().Err(err).Str("order_id", o.ID).Msg("sweep sync failed")
		case res.SyncError != "":
			report.Failed++
		case res.Updated:
			report.Updated++
		}
	}

	log.Info().
		Int("checked", report.Checked).
		Int("updated", report.Updated).
		Int("failed", report.Failed).
		Msg("reservation sweep completed")
	return report, nil
}
