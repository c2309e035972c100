package model

import "time"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

const (
	PaymentMethodCredit = "credit"
	PaymentMethodCard   = "card"
	PaymentMethodOther  = "other-electronic"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// ReservationStatus mirrors the provider-side reservation state.
type ReservationStatus string

const (
	ReservationReserved  ReservationStatus = "RESERVED"
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationCompleted ReservationStatus = "COMPLETED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationDefaulted ReservationStatus = "DEFAULTED"
)

func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationReserved, ReservationActive, ReservationCompleted, ReservationCancelled, ReservationDefaulted:
		return true
	}
	return false
}

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPaid    InstallmentStatus = "PAID"
	InstallmentOverdue InstallmentStatus = "OVERDUE"
)

type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Image     string  `json:"image,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type ShippingAddress struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

type Pricing struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

type Installment struct {
	InstallmentID string            `json:"installment_id"`
	DueDate       time.Time         `json:"due_date"`
	Amount        float64           `json:"amount"`
	Status        InstallmentStatus `json:"status"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
}

// CreditReservation is the local cache of a provider reservation. It has no
// identity of its own and lives and dies with its Order.
type CreditReservation struct {
	ReservationID       string            `json:"reservation_id"`
	ExternalOrderRef    string            `json:"external_order_ref"`
	ExternalCustomerRef string            `json:"external_customer_ref"`
	Status              ReservationStatus `json:"status"`
	PurchaseAmount      float64           `json:"purchase_amount"`
	MonthlyPayment      float64           `json:"monthly_payment"`
	InstallmentCount    int               `json:"installment_count"`
	Installments        []Installment     `json:"installments"`
	// PaymentInstructions is keyed by payment channel (wave, orangeMoney,
	// bank, cash) as returned with the reservation.
	PaymentInstructions map[string]map[string]any `json:"payment_instructions,omitempty"`
	// Instructions holds the generated instruction snapshots by installment id.
	Instructions     map[string]map[string]any `json:"instructions,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
	LastWebhookEvent string                    `json:"last_webhook_event,omitempty"`
	LastWebhookAt    *time.Time                `json:"last_webhook_at,omitempty"`
}

func (r *CreditReservation) FindInstallment(id string) (int, *Installment) {
	for i := range r.Installments {
		if r.Installments[i].InstallmentID == id {
			return i, &r.Installments[i]
		}
	}
	return -1, nil
}

func (r *CreditReservation) AllPaid() bool {
	if len(r.Installments) == 0 {
		return false
	}
	for _, inst := range r.Installments {
		if inst.Status != InstallmentPaid {
			return false
		}
	}
	return true
}

// NextPending returns the first unpaid installment in due-date order.
func (r *CreditReservation) NextPending() (int, *Installment) {
	for i := range r.Installments {
		if r.Installments[i].Status != InstallmentPaid {
			return i, &r.Installments[i]
		}
	}
	return -1, nil
}

type Payment struct {
	Method string             `json:"method"`
	Status PaymentStatus      `json:"status"`
	PaidAt *time.Time         `json:"paid_at,omitempty"`
	Credit *CreditReservation `json:"credit,omitempty"`
}

type StatusHistoryEntry struct {
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Order is the unit of mutation: every write replaces the whole aggregate and
// is guarded by Version.
type Order struct {
	ID              string               `json:"id"`
	OrderNumber     string               `json:"order_number"`
	UserID          string               `json:"user_id"`
	Status          OrderStatus          `json:"status"`
	Items           []OrderItem          `json:"items"`
	ShippingAddress ShippingAddress      `json:"shipping_address"`
	Pricing         Pricing              `json:"pricing"`
	Payment         Payment              `json:"payment"`
	StatusHistory   []StatusHistoryEntry `json:"status_history"`
	// StockReserved is set while the line items are taken out of stock.
	StockReserved bool      `json:"stock_reserved"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (o *Order) IsCredit() bool {
	return o.Payment.Method == PaymentMethodCredit
}

func (o *Order) AddHistory(status, note string, at time.Time) {
	o.StatusHistory = append(o.StatusHistory, StatusHistoryEntry{Status: status, Note: note, UpdatedAt: at})
}

// ReleaseStock clears the order's claim on stock and reports whether it held
// one. Callers restore the line items only when it returns true.
func (o *Order) ReleaseStock() bool {
	held := o.StockReserved
	o.StockReserved = false
	return held
}

// SetInstruction stores a generated instruction snapshot for an installment.
func (r *CreditReservation) SetInstruction(installmentID string, snapshot map[string]any) {
	if r.Instructions == nil {
		r.Instructions = map[string]map[string]any{}
	}
	r.Instructions[installmentID] = snapshot
}
