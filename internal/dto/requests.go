package dto

import "github.com/anyulbade/furniture-credit/internal/model"

type OrderItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type CreateOrderRequest struct {
	Items            []OrderItemRequest    `json:"items" binding:"required,min=1,max=50,dive"`
	ShippingAddress  model.ShippingAddress `json:"shipping_address" binding:"required"`
	PaymentMethod    string                `json:"payment_method" binding:"required,oneof=credit card other-electronic"`
	InstallmentCount int                   `json:"installment_count"`
	Notes            string                `json:"notes"`
	Channel          string                `json:"channel"`
	Language         string                `json:"language"`
}

type EligibilityRequest struct {
	PurchaseAmount float64 `json:"purchase_amount" binding:"required,gt=0"`
}

type CreditApplicationRequest struct {
	PurchaseAmount  float64 `json:"purchase_amount" binding:"required,gt=0"`
	DesiredDuration int     `json:"desired_duration" binding:"required,oneof=3 6 12 24"`
	Reason          string  `json:"reason" binding:"max=500"`
}

type PaymentConfirmationRequest struct {
	OrderID              string  `json:"order_id" binding:"required"`
	InstallmentID        string  `json:"installment_id" binding:"required"`
	PaymentMethod        string  `json:"payment_method" binding:"required"`
	TransactionReference string  `json:"transaction_reference" binding:"required"`
	Amount               float64 `json:"amount" binding:"required,gt=0"`
}

type InstructionRequest struct {
	Channel       string `json:"channel" binding:"omitempty,oneof=SMS EMAIL WHATSAPP USSD"`
	Language      string `json:"language" binding:"omitempty,oneof=fr en"`
	ValidityHours int    `json:"validity_hours" binding:"omitempty,gt=0,lte=720"`
}

type FeeTierPatch struct {
	Rate     *float64 `json:"rate"`
	FixedFee *float64 `json:"fixed_fee"`
}

type FeeStructurePatch struct {
	ThreeMonths      *FeeTierPatch `json:"three_months"`
	SixMonths        *FeeTierPatch `json:"six_months"`
	TwelveMonths     *FeeTierPatch `json:"twelve_months"`
	TwentyFourMonths *FeeTierPatch `json:"twenty_four_months"`
}

type CreditSettingsPatch struct {
	CommissionRate  *float64           `json:"commission_rate"`
	FixedCommission *float64           `json:"fixed_commission"`
	MinimumAmount   *float64           `json:"minimum_amount"`
	MaximumAmount   *float64           `json:"maximum_amount"`
	FeeStructure    *FeeStructurePatch `json:"fee_structure"`
}

type ShippingSettingsPatch struct {
	FreeShippingThreshold *float64 `json:"free_shipping_threshold"`
	StandardShippingCost  *float64 `json:"standard_shipping_cost"`
}

type TaxSettingsPatch struct {
	VATRate *float64 `json:"vat_rate"`
}

// SettingsPatch is a partial update: nil fields keep their stored value.
type SettingsPatch struct {
	Shipping *ShippingSettingsPatch `json:"shipping"`
	Taxes    *TaxSettingsPatch      `json:"taxes"`
	Credit   *CreditSettingsPatch   `json:"credit"`
}
