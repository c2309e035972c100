package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anyulbade/furniture-credit/internal/kredika"
	"github.com/anyulbade/furniture-credit/internal/model"
	"github.com/anyulbade/furniture-credit/internal/repository"
)

const testWebhookSecret = "whsec_test"

var errNotifierDown = errors.New("smtp unavailable")

type fixture struct {
	store    *repository.MemoryStore
	provider *mockProvider
	notifier *recordingNotifier
	orders   *OrderService
	payments *InstallmentService
	recon    *ReconciliationService
	credit   *CreditService
	settings *SettingsService
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := repository.NewMemoryStore()
	provider := newMockProvider()
	notifier := &recordingNotifier{}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	require.NoError(t, store.Products.Create(ctx, &model.Product{ID: "p-sofa", Name: "Velvet Sofa", Price: 300, StockQuantity: 2, IsActive: true, Images: []string{"sofa.jpg"}}))
	require.NoError(t, store.Products.Create(ctx, &model.Product{ID: "p-table", Name: "Oak Table", Price: 150, StockQuantity: 10, IsActive: true}))
	require.NoError(t, store.Products.Create(ctx, &model.Product{ID: "p-old", Name: "Retired Chair", Price: 80, StockQuantity: 5, IsActive: false}))
	require.NoError(t, store.Users.Create(ctx, &model.User{ID: "u-1", Email: "awa@example.com", FirstName: "Awa", LastName: "Diop", CreditLimit: 5000, AvailableCredit: 5000}))
	require.NoError(t, store.Users.Create(ctx, &model.User{ID: "u-poor", Email: "low@example.com", FirstName: "Low", LastName: "Limit", CreditLimit: 100, AvailableCredit: 50}))

	f := &fixture{store: store, provider: provider, notifier: notifier, now: now}

	f.orders = NewOrderService(store.Orders, store.Products, store.Users, store.Settings, provider, notifier)
	f.orders.now = clock
	f.payments = NewInstallmentService(store.Orders, store.Users, provider, notifier)
	f.payments.now = clock
	f.recon = NewReconciliationService(store.Orders, store.Products, store.Users, provider, notifier, f.payments)
	f.recon.now = clock
	f.credit = NewCreditService(store.Orders, store.Users, store.Settings, store.CreditRequests, provider, 0.08)
	f.credit.now = clock
	f.settings = NewSettingsService(store.Settings)
	f.settings.now = clock
	return f
}

func (f *fixture) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.store.Products.FindByID(context.Background(), productID)
	require.NoError(t, err)
	return p.StockQuantity
}

func (f *fixture) order(t *testing.T, id string) *model.Order {
	t.Helper()
	o, err := f.store.Orders.FindByID(context.Background(), id)
	require.NoError(t, err)
	return o
}

func installmentSchedule(start time.Time, amounts ...float64) []model.Installment {
	out := make([]model.Installment, len(amounts))
	for i, a := range amounts {
		out[i] = model.Installment{
			InstallmentID: "i-" + string(rune('1'+i)),
			DueDate:       start.AddDate(0, i+1, 0),
			Amount:        a,
			Status:        model.InstallmentPending,
		}
	}
	return out
}

// seedCreditOrder stores a credit order for u-1 with one sofa (stock already
// taken) and a three-installment reservation.
func (f *fixture) seedCreditOrder(t *testing.T, id string, status model.OrderStatus, credit model.ReservationStatus) *model.Order {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.Products.IncrementStock(ctx, "p-sofa", -1))

	o := &model.Order{
		ID:            id,
		OrderNumber:   "ORD-20260310-" + id,
		UserID:        "u-1",
		Status:        status,
		Items:         []model.OrderItem{{ProductID: "p-sofa", Name: "Velvet Sofa", Quantity: 1, Price: 300}},
		Pricing:       model.Pricing{Subtotal: 300, Shipping: 50, Tax: 60, Total: 410},
		StockReserved: status != model.OrderCancelled,
		Payment: model.Payment{
			Method: model.PaymentMethodCredit,
			Status: model.PaymentPending,
			Credit: &model.CreditReservation{
				ReservationID:    "res-" + id,
				ExternalOrderRef: "ORD-" + id,
				Status:           credit,
				PurchaseAmount:   410,
				MonthlyPayment:   136.67,
				InstallmentCount: 3,
				Installments:     installmentSchedule(f.now, 136.67, 136.67, 136.66),
				CreatedAt:        f.now,
			},
		},
		CreatedAt: f.now,
		UpdatedAt: f.now,
	}
	o.AddHistory(string(status), "Order created", f.now)
	require.NoError(t, f.store.Orders.Create(ctx, o))
	return o
}

func providerInstallments(list []model.Installment) []kredika.Installment {
	return toProviderInstallments(list)
}

func signedWebhook(t *testing.T, payload kredika.WebhookPayload) ([]byte, string) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return raw, kredika.SignWebhook(raw, testWebhookSecret)
}
