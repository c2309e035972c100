package kredika

import (
	"encoding/json"
	"strings"
	"time"
)

// Date accepts both plain dates and RFC3339 timestamps from the provider.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type CreateReservationRequest struct {
	ExternalOrderRef    string  `json:"externalOrderRef"`
	ExternalCustomerRef string  `json:"externalCustomerRef"`
	PurchaseAmount      float64 `json:"purchaseAmount"`
	InstallmentCount    int     `json:"installmentCount"`
	Notes               string  `json:"notes"`
}

type createReservationPayload struct {
	PartnerID string `json:"partnerId"`
	CreateReservationRequest
	TotalActiveCredits int `json:"totalActiveCredits"`
}

type Reservation struct {
	CreditReservationID string                    `json:"creditReservationId"`
	LegacyID            string                    `json:"reservationId,omitempty"`
	PartnerID           string                    `json:"partnerId,omitempty"`
	ExternalOrderRef    string                    `json:"externalOrderRef"`
	ExternalCustomerRef string                    `json:"externalCustomerRef,omitempty"`
	Status              string                    `json:"status"`
	PurchaseAmount      float64                   `json:"purchaseAmount"`
	InstallmentCount    int                       `json:"installmentCount"`
	MonthlyPayment      float64                   `json:"monthlyPayment"`
	TotalAmount         float64                   `json:"totalAmount,omitempty"`
	InterestAmount      float64                   `json:"interestAmount,omitempty"`
	Installments        []Installment             `json:"installments,omitempty"`
	PaymentInstructions map[string]map[string]any `json:"paymentInstructions,omitempty"`
	CreatedAt           *time.Time                `json:"createdAt,omitempty"`
	UpdatedAt           *time.Time                `json:"updatedAt,omitempty"`
}

// ID returns the reservation identifier under either field name the
// provider has used.
func (r *Reservation) ID() string {
	if r.CreditReservationID != "" {
		return r.CreditReservationID
	}
	return r.LegacyID
}

type Installment struct {
	InstallmentID       string     `json:"installmentId"`
	LegacyID            string     `json:"id,omitempty"`
	CreditReservationID string     `json:"creditReservationId,omitempty"`
	SequenceNumber      int        `json:"sequenceNumber,omitempty"`
	DueDate             Date       `json:"dueDate"`
	Amount              float64    `json:"amount,omitempty"`
	AmountDue           float64    `json:"amountDue,omitempty"`
	AmountPaid          float64    `json:"amountPaid,omitempty"`
	Status              string     `json:"status"`
	PaidAt              *time.Time `json:"paidAt,omitempty"`
}

func (i *Installment) ID() string {
	if i.InstallmentID != "" {
		return i.InstallmentID
	}
	return i.LegacyID
}

// Due returns the scheduled amount, whichever field carries it.
func (i *Installment) Due() float64 {
	if i.Amount != 0 {
		return i.Amount
	}
	return i.AmountDue
}

type ReservationStats struct {
	Total       int     `json:"total"`
	Reserved    int     `json:"reserved"`
	Active      int     `json:"active"`
	Completed   int     `json:"completed"`
	Cancelled   int     `json:"cancelled"`
	Defaulted   int     `json:"defaulted"`
	TotalAmount float64 `json:"totalAmount"`
}

type PaymentInstructionRequest struct {
	InstallmentID   string            `json:"installmentId"`
	AmountDue       float64           `json:"amountDue"`
	DueDate         string            `json:"dueDate,omitempty"`
	InstructionType string            `json:"instructionType"`
	Language        string            `json:"language"`
	Channel         string            `json:"channel"`
	ValidityHours   int               `json:"validityHours"`
	CallbackURL     string            `json:"callbackUrl,omitempty"`
	CustomFields    map[string]string `json:"customFields"`
}

type paymentInstructionPayload struct {
	PartnerID string `json:"partnerId"`
	PaymentInstructionRequest
}

type PaymentInstruction struct {
	PaymentInstructionID string         `json:"paymentInstructionId"`
	InstallmentID        string         `json:"installmentId"`
	AmountDue            float64        `json:"amountDue"`
	DueDate              Date           `json:"dueDate"`
	Channel              string         `json:"channel"`
	Language             string         `json:"language,omitempty"`
	Status               string         `json:"status,omitempty"`
	Reference            string         `json:"reference,omitempty"`
	Instructions         map[string]any `json:"instructions,omitempty"`
	ExpiresAt            *time.Time     `json:"expiresAt,omitempty"`
	ViewedAt             *time.Time     `json:"viewedAt,omitempty"`
}
