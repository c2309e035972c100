package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/anyulbade/furniture-credit/internal/dto"
	"github.com/anyulbade/furniture-credit/internal/kredika"
	"github.com/anyulbade/furniture-credit/internal/model"
	"github.com/anyulbade/furniture-credit/internal/repository"
)

func creditCart(installments int) *dto.CreateOrderRequest {
	return &dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{
			{ProductID: "p-sofa", Quantity: 1},
			{ProductID: "p-table", Quantity: 2},
		},
		ShippingAddress:  model.ShippingAddress{FirstName: "Awa", LastName: "Diop", Street: "12 Rue Carnot", City: "Dakar", PostalCode: "10200"},
		PaymentMethod:    model.PaymentMethodCredit,
		InstallmentCount: installments,
	}
}

func reservationFor(id string, installments ...kredika.Installment) *kredika.Reservation {
	return &kredika.Reservation{
		CreditReservationID: id,
		Status:              kredika.StatusReserved,
		PurchaseAmount:      720,
		InstallmentCount:    len(installments),
		MonthlyPayment:      240,
		Installments:        installments,
		PaymentInstructions: map[string]map[string]any{
			"wave": {"merchantCode": "KRD-WAVE", "reference": id},
			"bank": {"iban": "SN08 SN01 0015 2000 0053 8500 3035"},
		},
	}
}

func TestOrderService_CreateCreditOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("happy: reservation attached and stock decremented", func(t *testing.T) {
		f := newFixture(t)
		schedule := providerInstallments(installmentSchedule(f.now, 240, 240, 240))

		f.provider.On("CreateReservation", mock.Anything, mock.MatchedBy(func(req kredika.CreateReservationRequest) bool {
			return strings.HasPrefix(req.ExternalOrderRef, "ORD-") &&
				req.ExternalCustomerRef == "CUST-u-1" &&
				req.PurchaseAmount == 720 &&
				req.InstallmentCount == 3
		})).Return(reservationFor("res-1", schedule...), nil).Once()
		f.provider.On("GeneratePaymentInstruction", mock.Anything, mock.MatchedBy(func(req kredika.PaymentInstructionRequest) bool {
			return req.InstallmentID == "i-1" && req.AmountDue == 240
		})).Return(&kredika.PaymentInstruction{PaymentInstructionID: "pi-1", InstallmentID: "i-1", Channel: "SMS", Reference: "KRD-1"}, nil).Once()

		res, err := f.orders.CreateOrder(ctx, "u-1", creditCart(3))
		require.NoError(t, err)
		assert.False(t, res.PaymentPendingRetry)
		assert.Empty(t, res.Warnings)

		o := f.order(t, res.Order.ID)
		assert.Equal(t, model.Pricing{Subtotal: 600, Shipping: 0, Tax: 120, Total: 720}, o.Pricing)
		assert.Regexp(t, `^ORD-20260310-[0-9A-F]{8}$`, o.OrderNumber)
		assert.Equal(t, model.OrderPending, o.Status)
		require.NotNil(t, o.Payment.Credit)
		assert.Equal(t, "res-1", o.Payment.Credit.ReservationID)
		assert.Equal(t, "ORD-"+o.ID, o.Payment.Credit.ExternalOrderRef)
		assert.Equal(t, model.ReservationReserved, o.Payment.Credit.Status)
		assert.Equal(t, "reservation.created", o.Payment.Credit.LastWebhookEvent)
		assert.Len(t, o.Payment.Credit.Installments, 3)
		assert.Equal(t, "pi-1", o.Payment.Credit.Instructions["i-1"]["paymentInstructionId"])
		assert.Equal(t, "res-1", o.Payment.Credit.PaymentInstructions["wave"]["reference"])
		assert.NotContains(t, o.Payment.Credit.PaymentInstructions, "i-1")
		assert.True(t, o.StockReserved)

		assert.Equal(t, 1, f.stock(t, "p-sofa"))
		assert.Equal(t, 8, f.stock(t, "p-table"))

		require.Len(t, f.notifier.calls(), 1)
		assert.Equal(t, "RESERVED", f.notifier.calls()[0].Status)
		f.provider.AssertExpectations(t)
	})

	t.Run("bad: insufficient stock writes nothing", func(t *testing.T) {
		f := newFixture(t)
		req := creditCart(3)
		req.Items = []dto.OrderItemRequest{{ProductID: "p-sofa", Quantity: 3}}

		_, err := f.orders.CreateOrder(ctx, "u-1", req)

		var stockErr *InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, 2, stockErr.Available)
		assert.Equal(t, 3, stockErr.Requested)

		_, total, _ := f.store.Orders.List(ctx, repository.OrderFilter{})
		assert.Zero(t, total)
		assert.Equal(t, 2, f.stock(t, "p-sofa"))
		f.provider.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything)
	})

	t.Run("bad: inactive or unknown product", func(t *testing.T) {
		f := newFixture(t)
		req := creditCart(3)

		req.Items = []dto.OrderItemRequest{{ProductID: "p-old", Quantity: 1}}
		_, err := f.orders.CreateOrder(ctx, "u-1", req)
		var unavailable *ProductUnavailableError
		assert.ErrorAs(t, err, &unavailable)

		req.Items = []dto.OrderItemRequest{{ProductID: "p-ghost", Quantity: 1}}
		_, err = f.orders.CreateOrder(ctx, "u-1", req)
		assert.ErrorAs(t, err, &unavailable)
	})

	t.Run("bad: insufficient credit reports every reason", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.orders.CreateOrder(ctx, "u-poor", creditCart(6))

		var creditErr *InsufficientCreditError
		require.ErrorAs(t, err, &creditErr)
		assert.Len(t, creditErr.Reasons, 2)
		f.provider.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything)
	})

	t.Run("bad: unsupported installment count", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.orders.CreateOrder(ctx, "u-1", creditCart(9))
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "installment_count", ve.Field)
	})

	t.Run("bad: reservation timeout deletes the order", func(t *testing.T) {
		f := newFixture(t)
		timeout := &kredika.RequestError{Method: http.MethodPost, Path: "/v1/credits/reservations", Err: context.DeadlineExceeded}
		f.provider.On("CreateReservation", mock.Anything, mock.Anything).Return(nil, timeout).Once()

		_, err := f.orders.CreateOrder(ctx, "u-1", creditCart(3))

		var resErr *ReservationError
		require.ErrorAs(t, err, &resErr)
		var reqErr *kredika.RequestError
		require.True(t, errors.As(err, &reqErr))
		assert.True(t, reqErr.Transient())

		_, total, _ := f.store.Orders.List(ctx, repository.OrderFilter{})
		assert.Zero(t, total, "compensating delete must remove the order")
		assert.Equal(t, 2, f.stock(t, "p-sofa"))
		assert.Equal(t, 10, f.stock(t, "p-table"))
		f.provider.AssertNotCalled(t, "GeneratePaymentInstruction", mock.Anything, mock.Anything)
	})

	t.Run("edge: instruction failure keeps the order", func(t *testing.T) {
		f := newFixture(t)
		schedule := providerInstallments(installmentSchedule(f.now, 240, 240, 240))
		f.provider.On("CreateReservation", mock.Anything, mock.Anything).Return(reservationFor("res-2", schedule...), nil).Once()
		f.provider.On("GeneratePaymentInstruction", mock.Anything, mock.Anything).
			Return(nil, &kredika.RequestError{Status: http.StatusBadGateway}).Once()

		res, err := f.orders.CreateOrder(ctx, "u-1", creditCart(3))
		require.NoError(t, err)
		require.Len(t, res.Warnings, 1)

		o := f.order(t, res.Order.ID)
		assert.Equal(t, "res-2", o.Payment.Credit.ReservationID)
		assert.Empty(t, o.Payment.Credit.Instructions)
		assert.Equal(t, 1, f.stock(t, "p-sofa"))
	})

	t.Run("edge: notifier failure does not fail checkout", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.fails = true
		f.provider.On("CreateReservation", mock.Anything, mock.Anything).Return(reservationFor("res-3"), nil).Once()
		f.provider.On("ListInstallments", mock.Anything, "res-3").Return(nil, &kredika.RequestError{Status: http.StatusBadGateway}).Once()

		res, err := f.orders.CreateOrder(ctx, "u-1", creditCart(3))
		require.NoError(t, err)
		assert.Equal(t, "res-3", res.Order.Payment.Credit.ReservationID)
	})

	t.Run("edge: missing schedule is fetched from the provider", func(t *testing.T) {
		f := newFixture(t)
		schedule := providerInstallments(installmentSchedule(f.now, 240, 240, 240))
		bare := reservationFor("res-4")
		bare.InstallmentCount = 3
		f.provider.On("CreateReservation", mock.Anything, mock.Anything).Return(bare, nil).Once()
		f.provider.On("ListInstallments", mock.Anything, "res-4").Return(schedule, nil).Once()
		f.provider.On("GeneratePaymentInstruction", mock.Anything, mock.MatchedBy(func(req kredika.PaymentInstructionRequest) bool {
			return req.InstallmentID == "i-1"
		})).Return(&kredika.PaymentInstruction{PaymentInstructionID: "pi-4", InstallmentID: "i-1"}, nil).Once()

		res, err := f.orders.CreateOrder(ctx, "u-1", creditCart(3))
		require.NoError(t, err)

		o := f.order(t, res.Order.ID)
		assert.Equal(t, 3, o.Payment.Credit.InstallmentCount)
		require.Len(t, o.Payment.Credit.Installments, 3)
		assert.Equal(t, "i-1", o.Payment.Credit.Installments[0].InstallmentID)
		assert.Equal(t, "pi-4", o.Payment.Credit.Instructions["i-1"]["paymentInstructionId"])
		f.provider.AssertExpectations(t)
	})

	t.Run("edge: stock sold during reservation is never restored twice", func(t *testing.T) {
		f := newFixture(t)
		f.provider.On("CreateReservation", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) {
				// Another buyer takes the last sofas while the provider is answering.
				require.NoError(t, f.store.Products.IncrementStock(ctx, "p-sofa", -2))
			}).
			Return(reservationFor("res-5", providerInstallments(installmentSchedule(f.now, 240, 240, 240))...), nil).Once()
		f.provider.On("GeneratePaymentInstruction", mock.Anything, mock.Anything).
			Return(&kredika.PaymentInstruction{PaymentInstructionID: "pi-5", InstallmentID: "i-1"}, nil).Once()

		req := creditCart(3)
		req.Items = []dto.OrderItemRequest{{ProductID: "p-table", Quantity: 2}, {ProductID: "p-sofa", Quantity: 1}}

		res, err := f.orders.CreateOrder(ctx, "u-1", req)
		require.NoError(t, err)
		assert.Contains(t, res.Warnings, "stock could not be updated")

		o := f.order(t, res.Order.ID)
		assert.False(t, o.StockReserved)
		assert.Equal(t, 0, f.stock(t, "p-sofa"))
		assert.Equal(t, 10, f.stock(t, "p-table"), "the table line taken before the shortage is put back")

		f.provider.On("CancelReservation", mock.Anything, "res-5").
			Return(&kredika.Reservation{CreditReservationID: "res-5", Status: kredika.StatusCancelled}, nil).Once()
		cancelled, err := f.orders.CancelOrder(ctx, "u-1", o.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderCancelled, cancelled.Status)
		assert.Equal(t, 0, f.stock(t, "p-sofa"))
		assert.Equal(t, 10, f.stock(t, "p-table"))
	})
}

func TestOrderService_CreateCardOrder(t *testing.T) {
	f := newFixture(t)
	req := creditCart(0)
	req.PaymentMethod = model.PaymentMethodCard
	req.Items = []dto.OrderItemRequest{{ProductID: "p-table", Quantity: 1}}

	res, err := f.orders.CreateOrder(context.Background(), "u-1", req)
	require.NoError(t, err)

	assert.Nil(t, res.Order.Payment.Credit)
	assert.Equal(t, model.Pricing{Subtotal: 150, Shipping: 50, Tax: 30, Total: 230}, res.Order.Pricing)
	assert.Equal(t, 9, f.stock(t, "p-table"))
	assert.True(t, f.order(t, res.Order.ID).StockReserved)
	f.provider.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything)
}

func TestOrderService_CreateCardOrder_ConcurrentShortage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := creditCart(0)
	req.PaymentMethod = model.PaymentMethodCard
	req.Items = []dto.OrderItemRequest{{ProductID: "p-table", Quantity: 3}, {ProductID: "p-sofa", Quantity: 2}}

	// Validation passes, then the sofas disappear before stock is taken.
	f.orders.now = func() time.Time {
		_ = f.store.Products.IncrementStock(ctx, "p-sofa", -1)
		return f.now
	}

	_, err := f.orders.CreateOrder(ctx, "u-1", req)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p-sofa", stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 10, f.stock(t, "p-table"))

	_, total, _ := f.store.Orders.List(ctx, repository.OrderFilter{})
	assert.Zero(t, total)
}

func TestOrderService_CancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("happy: cancels reservation and restores stock", func(t *testing.T) {
		f := newFixture(t)
		f.seedCreditOrder(t, "o-1", model.OrderPending, model.ReservationReserved)
		f.provider.On("CancelReservation", mock.Anything, "res-o-1").
			Return(&kredika.Reservation{CreditReservationID: "res-o-1", Status: kredika.StatusCancelled}, nil).Once()

		o, err := f.orders.CancelOrder(ctx, "u-1", "o-1")
		require.NoError(t, err)
		assert.Equal(t, model.OrderCancelled, o.Status)
		assert.Equal(t, model.ReservationCancelled, o.Payment.Credit.Status)
		assert.Equal(t, 2, f.stock(t, "p-sofa"))
	})

	t.Run("bad: provider refusal leaves order untouched", func(t *testing.T) {
		f := newFixture(t)
		f.seedCreditOrder(t, "o-2", model.OrderPending, model.ReservationReserved)
		f.provider.On("CancelReservation", mock.Anything, "res-o-2").
			Return(nil, &kredika.RequestError{Status: http.StatusConflict}).Once()

		_, err := f.orders.CancelOrder(ctx, "u-1", "o-2")
		require.Error(t, err)
		assert.Equal(t, model.OrderPending, f.order(t, "o-2").Status)
		assert.Equal(t, 1, f.stock(t, "p-sofa"))
	})

	t.Run("bad: other customer's order is not found", func(t *testing.T) {
		f := newFixture(t)
		f.seedCreditOrder(t, "o-3", model.OrderPending, model.ReservationReserved)
		_, err := f.orders.CancelOrder(ctx, "u-poor", "o-3")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("bad: processing order cannot be cancelled", func(t *testing.T) {
		f := newFixture(t)
		f.seedCreditOrder(t, "o-4", model.OrderProcessing, model.ReservationActive)
		_, err := f.orders.CancelOrder(ctx, "u-1", "o-4")
		assert.ErrorIs(t, err, ErrOrderNotCancellable)
	})
}

func TestOrderService_RegenerateInstruction(t *testing.T) {
	f := newFixture(t)
	f.seedCreditOrder(t, "o-1", model.OrderConfirmed, model.ReservationActive)
	f.provider.On("GeneratePaymentInstruction", mock.Anything, mock.MatchedBy(func(req kredika.PaymentInstructionRequest) bool {
		return req.InstallmentID == "i-1" && req.Channel == "EMAIL" && req.ValidityHours == 48
	})).Return(&kredika.PaymentInstruction{PaymentInstructionID: "pi-9", InstallmentID: "i-1", Channel: "EMAIL"}, nil).Once()

	o, pi, err := f.orders.RegenerateInstruction(context.Background(), "u-1", "o-1", false,
		&dto.InstructionRequest{Channel: "EMAIL", ValidityHours: 48})
	require.NoError(t, err)
	assert.Equal(t, "pi-9", pi.PaymentInstructionID)
	assert.Equal(t, "pi-9", o.Payment.Credit.Instructions["i-1"]["paymentInstructionId"])
}
