package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/anyulbade/furniture-credit/internal/dto"
	"github.com/anyulbade/furniture-credit/internal/fees"
	"github.com/anyulbade/furniture-credit/internal/kredika"
	"github.com/anyulbade/furniture-credit/internal/model"
	"github.com/anyulbade/furniture-credit/internal/repository"
)

// CreateOrderResult distinguishes a fully settled order from one that was
// persisted but whose follow-up steps need attention.
type CreateOrderResult struct {
	Order               *model.Order
	PaymentPendingRetry bool
	Warnings            []string
}

type OrderService struct {
	orders   OrderStore
	products ProductStore
	users    UserStore
	settings SettingsStore
	provider CreditProvider
	notifier Notifier
	now      func() time.Time
}

func NewOrderService(orders OrderStore, products ProductStore, users UserStore, settings SettingsStore, provider CreditProvider, notifier Notifier) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		users:    users,
		settings: settings,
		provider: provider,
		notifier: notifier,
		now:      time.Now,
	}
}

func newOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), suffix)
}

// CreateOrder validates the cart, persists the order and, for credit
// checkout, reserves credit with the provider. Card orders take stock up
// front. Credit orders take it once the reservation exists, and the order
// records whether it holds stock so only held stock is ever put back.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, req *dto.CreateOrderRequest) (*CreateOrderResult, error) {
	isCredit := req.PaymentMethod == model.PaymentMethodCredit
	if isCredit && !slices.Contains(model.SupportedDurations, req.InstallmentCount) {
		return nil, &ValidationError{Field: "installment_count", Message: "must be one of 3, 6, 12, 24"}
	}

	items, err := s.validateItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	pricing := computePricing(items, settings)

	var user *model.User
	if isCredit {
		user, err = s.checkCredit(ctx, userID, pricing.Total, settings.Credit)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	order := &model.Order{
		ID:              uuid.NewString(),
		OrderNumber:     newOrderNumber(now),
		UserID:          userID,
		Status:          model.OrderPending,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		Pricing:         pricing,
		Payment:         model.Payment{Method: req.PaymentMethod, Status: model.PaymentPending},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	order.AddHistory(string(model.OrderPending), "Order created", now)

	if !isCredit {
		if err := takeStock(ctx, s.products, items); err != nil {
			return nil, err
		}
		order.StockReserved = true
	}

	if err := s.orders.Create(ctx, order); err != nil {
		if order.StockReserved {
			restoreStock(ctx, s.products, order)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	log.Info().
		Str("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Str("payment_method", order.Payment.Method).
		Float64("total", pricing.Total).
		Msg("order created")

	if !isCredit {
		return &CreateOrderResult{Order: order}, nil
	}

	return s.reserveCredit(ctx, order, user, req)
}

func (s *OrderService) validateItems(ctx context.Context, reqItems []dto.OrderItemRequest) ([]model.OrderItem, error) {
	if len(reqItems) == 0 {
		return nil, &ValidationError{Field: "items", Message: "at least one item is required"}
	}

	items := make([]model.OrderItem, 0, len(reqItems))
	for _, it := range reqItems {
		if it.Quantity <= 0 {
			return nil, &ValidationError{Field: "quantity", Message: "must be greater than zero"}
		}

		p, err := s.products.FindByID(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, &ProductUnavailableError{ProductID: it.ProductID}
			}
			return nil, fmt.Errorf("load product %s: %w", it.ProductID, err)
		}
		if !p.IsActive {
			return nil, &ProductUnavailableError{ProductID: p.ID, Name: p.Name}
		}
		if p.StockQuantity < it.Quantity {
			return nil, &InsufficientStockError{ProductID: p.ID, Name: p.Name, Available: p.StockQuantity, Requested: it.Quantity}
		}

		var image string
		if len(p.Images) > 0 {
			image = p.Images[0]
		}
		items = append(items, model.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     image,
			Quantity:  it.Quantity,
			Price:     p.Price,
		})
	}
	return items, nil
}

func computePricing(items []model.OrderItem, settings model.Settings) model.Pricing {
	var subtotal float64
	for _, it := range items {
		subtotal += it.Price * float64(it.Quantity)
	}
	subtotal = fees.Round2(subtotal)

	shipping := settings.Shipping.StandardShippingCost
	if subtotal >= settings.Shipping.FreeShippingThreshold {
		shipping = 0
	}
	tax := fees.Round2(subtotal * settings.Taxes.VATRate)

	return model.Pricing{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    fees.Round2(subtotal + shipping + tax),
	}
}

func (s *OrderService) checkCredit(ctx context.Context, userID string, total float64, schedule model.FeeSchedule) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}

	if total < schedule.MinimumAmount || total > schedule.MaximumAmount {
		return nil, &ValidationError{
			Field:   "total",
			Message: fmt.Sprintf("credit is available for amounts between %.2f and %.2f", schedule.MinimumAmount, schedule.MaximumAmount),
		}
	}

	elig := fees.CheckEligibility(total, user.CreditLimit, user.AvailableCredit)
	if !elig.Eligible {
		return nil, &InsufficientCreditError{Reasons: elig.Reasons}
	}
	return user, nil
}

func (s *OrderService) reserveCredit(ctx context.Context, order *model.Order, user *model.User, req *dto.CreateOrderRequest) (*CreateOrderResult, error) {
	res, err := s.provider.CreateReservation(ctx, kredika.CreateReservationRequest{
		ExternalOrderRef:    externalOrderRef(order.ID),
		ExternalCustomerRef: externalCustomerRef(order.UserID),
		PurchaseAmount:      fees.Round2(order.Pricing.Total),
		InstallmentCount:    req.InstallmentCount,
		Notes:               req.Notes,
	})
	if err != nil {
		log.Warn().Err(err).Str("order_id", order.ID).Msg("credit reservation failed, deleting order")
		if delErr := s.orders.Delete(ctx, order.ID); delErr != nil {
			log.Error().Err(delErr).Str("order_id", order.ID).Msg("compensating order delete failed")
		}
		return nil, &ReservationError{Err: err}
	}

	installments := res.Installments
	if len(installments) == 0 && res.ID() != "" {
		listed, err := s.provider.ListInstallments(ctx, res.ID())
		if err != nil {
			log.Warn().Err(err).Str("reservation_id", res.ID()).Msg("reservation returned no schedule and listing failed")
		} else {
			installments = listed
		}
	}
	if len(installments) != req.InstallmentCount {
		log.Warn().
			Str("order_id", order.ID).
			Str("reservation_id", res.ID()).
			Int("requested", req.InstallmentCount).
			Int("scheduled", len(installments)).
			Msg("installment schedule does not match requested count")
	}
	installmentCount := res.InstallmentCount
	if installmentCount == 0 {
		installmentCount = req.InstallmentCount
	}

	now := s.now()
	event := "reservation.created"
	snapshot := &model.CreditReservation{
		ReservationID:       res.ID(),
		ExternalOrderRef:    externalOrderRef(order.ID),
		ExternalCustomerRef: externalCustomerRef(order.UserID),
		Status:              model.ReservationStatus(res.Status),
		PurchaseAmount:      res.PurchaseAmount,
		MonthlyPayment:      res.MonthlyPayment,
		InstallmentCount:    installmentCount,
		Installments:        toInstallments(installments),
		PaymentInstructions: res.PaymentInstructions,
		CreatedAt:           now,
		LastWebhookEvent:    event,
		LastWebhookAt:       &now,
	}
	if snapshot.Status == "" {
		snapshot.Status = model.ReservationReserved
	}
	if snapshot.PurchaseAmount == 0 {
		snapshot.PurchaseAmount = fees.Round2(order.Pricing.Total)
	}

	log.Info().
		Str("order_id", order.ID).
		Str("reservation_id", snapshot.ReservationID).
		Str("status", string(snapshot.Status)).
		Float64("monthly_payment", snapshot.MonthlyPayment).
		Msg("credit reservation created")

	result := &CreateOrderResult{Order: order}

	stockErr := takeStock(ctx, s.products, order.Items)
	if stockErr != nil {
		log.Error().Err(stockErr).Str("order_id", order.ID).Msg("stock decrement failed after reservation")
		result.Warnings = append(result.Warnings, "stock could not be updated")
	}

	saved, _, err := mutateOrder(ctx, s.orders, order.ID, s.now, func(o *model.Order) (bool, error) {
		o.Payment.Credit = snapshot
		o.StockReserved = stockErr == nil
		o.AddHistory(string(o.Status), "Credit reservation created ("+snapshot.ReservationID+")", now)
		return true, nil
	})
	if err != nil {
		log.Error().Err(err).Str("order_id", order.ID).Str("reservation_id", snapshot.ReservationID).
			Msg("reservation could not be attached to order")
		if stockErr == nil {
			// The order row cannot record the hold, so nothing would ever put it back.
			restoreStock(ctx, s.products, order)
		}
		order.Payment.Credit = snapshot
		result.PaymentPendingRetry = true
		result.Warnings = append(result.Warnings, "credit reservation is pending synchronization")
	} else {
		result.Order = saved
	}

	if !result.PaymentPendingRetry {
		if err := s.attachFirstInstruction(ctx, result, req); err != nil {
			log.Warn().Err(err).Str("order_id", order.ID).Msg("payment instruction generation failed")
			result.Warnings = append(result.Warnings, "payment instruction could not be generated, it can be requested later")
		}
	}

	notifyUser(ctx, s.notifier, result.Order, user, string(snapshot.Status))
	return result, nil
}

func (s *OrderService) attachFirstInstruction(ctx context.Context, result *CreateOrderResult, req *dto.CreateOrderRequest) error {
	credit := result.Order.Payment.Credit
	_, first := credit.NextPending()
	if first == nil {
		return nil
	}

	pi, err := s.provider.GeneratePaymentInstruction(ctx, kredika.PaymentInstructionRequest{
		InstallmentID: first.InstallmentID,
		AmountDue:     first.Amount,
		DueDate:       first.DueDate.Format("2006-01-02"),
		Channel:       req.Channel,
		Language:      req.Language,
		CustomFields: map[string]string{
			"orderNumber": result.Order.OrderNumber,
		},
	})
	if err != nil {
		return err
	}

	installmentID := first.InstallmentID
	saved, _, err := mutateOrder(ctx, s.orders, result.Order.ID, s.now, func(o *model.Order) (bool, error) {
		if o.Payment.Credit == nil {
			return false, nil
		}
		o.Payment.Credit.SetInstruction(installmentID, instructionSnapshot(pi))
		return true, nil
	})
	if err != nil {
		return err
	}
	result.Order = saved
	return nil
}

// GetOrder returns the order if it belongs to userID. Admins see all orders.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string, admin bool) (*model.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if !admin && o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *OrderService) ListOrders(ctx context.Context, f repository.OrderFilter) ([]model.Order, int, error) {
	return s.orders.List(ctx, f)
}

// CancelOrder lets a customer cancel a pending or confirmed order. A live
// credit reservation is cancelled with the provider first; if that fails the
// order is left untouched.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID string) (*model.Order, error) {
	current, err := s.GetOrder(ctx, userID, orderID, false)
	if err != nil {
		return nil, err
	}
	if current.Status != model.OrderPending && current.Status != model.OrderConfirmed {
		return nil, ErrOrderNotCancellable
	}

	if c := current.Payment.Credit; c != nil && c.ReservationID != "" &&
		(c.Status == model.ReservationReserved || c.Status == model.ReservationActive) {
		if _, err := s.provider.CancelReservation(ctx, c.ReservationID); err != nil {
			return nil, fmt.Errorf("cancel credit reservation: %w", err)
		}
	}

	var restock bool
	o, _, err := mutateOrder(ctx, s.orders, orderID, s.now, func(o *model.Order) (bool, error) {
		restock = false
		if o.Status == model.OrderCancelled {
			return false, nil
		}
		if o.Status != model.OrderPending && o.Status != model.OrderConfirmed {
			return false, ErrOrderNotCancellable
		}
		now := s.now()
		if o.Payment.Credit != nil && o.Payment.Credit.ReservationID != "" {
			o.Payment.Credit.Status = model.ReservationCancelled
			o.Payment.Credit.LastWebhookEvent = "cancel.customer"
			o.Payment.Credit.LastWebhookAt = &now
		}
		o.Status = model.OrderCancelled
		o.AddHistory(string(model.OrderCancelled), "Cancelled by customer", now)
		restock = o.ReleaseStock()
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if restock {
		restoreStock(ctx, s.products, o)
		if o.IsCredit() {
			notify(ctx, s.notifier, s.users, o, string(model.ReservationCancelled))
		}
	}
	return o, nil
}

// RegenerateInstruction issues a fresh payment instruction for the next
// unpaid installment of a credit order.
func (s *OrderService) RegenerateInstruction(ctx context.Context, userID, orderID string, admin bool, req *dto.InstructionRequest) (*model.Order, *kredika.PaymentInstruction, error) {
	current, err := s.GetOrder(ctx, userID, orderID, admin)
	if err != nil {
		return nil, nil, err
	}
	if current.Payment.Credit == nil || current.Payment.Credit.ReservationID == "" {
		return nil, nil, ErrNotCreditOrder
	}
	_, next := current.Payment.Credit.NextPending()
	if next == nil {
		return nil, nil, &ValidationError{Field: "installments", Message: "no unpaid installment left"}
	}

	pi, err := s.provider.GeneratePaymentInstruction(ctx, kredika.PaymentInstructionRequest{
		InstallmentID: next.InstallmentID,
		AmountDue:     next.Amount,
		DueDate:       next.DueDate.Format("2006-01-02"),
		Channel:       req.Channel,
		Language:      req.Language,
		ValidityHours: req.ValidityHours,
		CustomFields:  map[string]string{"orderNumber": current.OrderNumber},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("generate payment instruction: %w", err)
	}

	installmentID := next.InstallmentID
	o, _, err := mutateOrder(ctx, s.orders, orderID, s.now, func(o *model.Order) (bool, error) {
		if o.Payment.Credit == nil {
			return false, ErrNotCreditOrder
		}
		o.Payment.Credit.SetInstruction(installmentID, instructionSnapshot(pi))
		return true, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return o, pi, nil
}
