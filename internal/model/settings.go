package model

import "time"

type FeeTier struct {
	Rate     float64 `json:"rate"`
	FixedFee float64 `json:"fixed_fee"`
}

type FeeStructure struct {
	ThreeMonths      FeeTier `json:"three_months"`
	SixMonths        FeeTier `json:"six_months"`
	TwelveMonths     FeeTier `json:"twelve_months"`
	TwentyFourMonths FeeTier `json:"twenty_four_months"`
}

// SupportedDurations lists the installment counts the fee structure prices.
var SupportedDurations = []int{3, 6, 12, 24}

// Tier returns the fee tier for an exact duration match.
func (f FeeStructure) Tier(months int) (FeeTier, bool) {
	switch months {
	case 3:
		return f.ThreeMonths, true
	case 6:
		return f.SixMonths, true
	case 12:
		return f.TwelveMonths, true
	case 24:
		return f.TwentyFourMonths, true
	}
	return FeeTier{}, false
}

type FeeSchedule struct {
	CommissionRate  float64      `json:"commission_rate"`
	FixedCommission float64      `json:"fixed_commission"`
	MinimumAmount   float64      `json:"minimum_amount"`
	MaximumAmount   float64      `json:"maximum_amount"`
	FeeStructure    FeeStructure `json:"fee_structure"`
}

type ShippingSettings struct {
	FreeShippingThreshold float64 `json:"free_shipping_threshold"`
	StandardShippingCost  float64 `json:"standard_shipping_cost"`
}

type TaxSettings struct {
	VATRate float64 `json:"vat_rate"`
}

// Settings is the admin-owned singleton. Changes only affect future
// calculations; reservation snapshots are never recomputed.
type Settings struct {
	Shipping       ShippingSettings `json:"shipping"`
	Taxes          TaxSettings      `json:"taxes"`
	Credit         FeeSchedule      `json:"credit"`
	LastModifiedBy string           `json:"last_modified_by,omitempty"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func DefaultSettings() Settings {
	return Settings{
		Shipping: ShippingSettings{FreeShippingThreshold: 500, StandardShippingCost: 50},
		Taxes:    TaxSettings{VATRate: 0.2},
		Credit: FeeSchedule{
			CommissionRate:  0.029,
			FixedCommission: 0.30,
			MinimumAmount:   1,
			MaximumAmount:   5000000,
			FeeStructure: FeeStructure{
				ThreeMonths:      FeeTier{Rate: 0, FixedFee: 15},
				SixMonths:        FeeTier{Rate: 0.025, FixedFee: 20},
				TwelveMonths:     FeeTier{Rate: 0.05, FixedFee: 25},
				TwentyFourMonths: FeeTier{Rate: 0.08, FixedFee: 35},
			},
		},
	}
}
