package service

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/anyulbade/furniture-credit/internal/kredika"
	"github.com/anyulbade/furniture-credit/internal/model"
)

// mockProvider stubs every provider call except signature checks, which go
// through a real client so tests can sign payloads.
type mockProvider struct {
	mock.Mock
	verifier *kredika.Client
}

func newMockProvider() *mockProvider {
	return &mockProvider{verifier: kredika.NewClient(kredika.Config{WebhookSecret: testWebhookSecret})}
}

func (m *mockProvider) CreateReservation(ctx context.Context, req kredika.CreateReservationRequest) (*kredika.Reservation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kredika.Reservation), args.Error(1)
}

func (m *mockProvider) GetReservationByID(ctx context.Context, id string) (*kredika.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// copy so concurrent callers never share a stubbed value
	res := *args.Get(0).(*kredika.Reservation)
	return &res, args.Error(1)
}

func (m *mockProvider) GetReservationByExternalRef(ctx context.Context, ref string) (*kredika.Reservation, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	res := *args.Get(0).(*kredika.Reservation)
	return &res, args.Error(1)
}

func (m *mockProvider) ListReservations(ctx context.Context, status string) ([]kredika.Reservation, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]kredika.Reservation), args.Error(1)
}

func (m *mockProvider) ActivateReservation(ctx context.Context, id string) (*kredika.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kredika.Reservation), args.Error(1)
}

func (m *mockProvider) CancelReservation(ctx context.Context, id string) (*kredika.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kredika.Reservation), args.Error(1)
}

func (m *mockProvider) GetReservationStats(ctx context.Context) (*kredika.ReservationStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kredika.ReservationStats), args.Error(1)
}

func (m *mockProvider) ListInstallments(ctx context.Context, reservationID string) ([]kredika.Installment, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]kredika.Installment), args.Error(1)
}

func (m *mockProvider) GetInstallmentByID(ctx context.Context, id string) (*kredika.Installment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kredika.Installment), args.Error(1)
}

func (m *mockProvider) ProcessInstallmentPayment(ctx context.Context, installmentID string, paidAmount float64, ref string) (*kredika.Installment, error) {
	args := m.Called(ctx, installmentID, paidAmount, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kredika.Installment), args.Error(1)
}

func (m *mockProvider) ListUpcomingInstallments(ctx context.Context, daysAhead int) ([]kredika.Installment, error) {
	args := m.Called(ctx, daysAhead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]kredika.Installment), args.Error(1)
}

func (m *mockProvider) SendPaymentReminder(ctx context.Context, installmentID string) error {
	return m.Called(ctx, installmentID).Error(0)
}

func (m *mockProvider) GeneratePaymentInstruction(ctx context.Context, req kredika.PaymentInstructionRequest) (*kredika.PaymentInstruction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kredika.PaymentInstruction), args.Error(1)
}

func (m *mockProvider) GetPaymentInstructionByID(ctx context.Context, id string) (*kredika.PaymentInstruction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kredika.PaymentInstruction), args.Error(1)
}

func (m *mockProvider) GetActivePaymentInstructions(ctx context.Context, installmentID string) ([]kredika.PaymentInstruction, error) {
	args := m.Called(ctx, installmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]kredika.PaymentInstruction), args.Error(1)
}

func (m *mockProvider) MarkInstructionAsViewed(ctx context.Context, id string) (*kredika.PaymentInstruction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kredika.PaymentInstruction), args.Error(1)
}

func (m *mockProvider) RegeneratePaymentInstruction(ctx context.Context, id string, validityHours int) (*kredika.PaymentInstruction, error) {
	args := m.Called(ctx, id, validityHours)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kredika.PaymentInstruction), args.Error(1)
}

func (m *mockProvider) VerifyWebhookSignature(raw []byte, signature string) kredika.WebhookResult {
	return m.verifier.VerifyWebhookSignature(raw, signature)
}

func (m *mockProvider) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type notification struct {
	OrderID string
	Status  string
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []notification
	fails bool
}

func (n *recordingNotifier) NotifyOrderCreditStatus(_ context.Context, o *model.Order, _ *model.User, status string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{OrderID: o.ID, Status: status})
	if n.fails {
		return errNotifierDown
	}
	return nil
}

func (n *recordingNotifier) calls() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}
