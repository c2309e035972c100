// Package fees holds the side-effect free credit arithmetic: eligibility,
// pre-application installment estimates and fee/commission breakdowns.
//
// Currency results are rounded half-up to two decimals. Installment estimates
// are rounded to whole currency units, as the provider quotes them.
package fees

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/anyulbade/furniture-credit/internal/model"
)

// DefaultDurations are the installment counts offered before application.
var DefaultDurations = []int{3, 6, 12, 24}

// DefaultAnnualRate is used for estimates when no rate is configured.
const DefaultAnnualRate = 0.08

type Eligibility struct {
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons"`
}

// CheckEligibility fails closed and reports every violated condition.
func CheckEligibility(purchaseAmount, creditLimit, availableCredit float64) Eligibility {
	result := Eligibility{Eligible: true, Reasons: []string{}}

	if purchaseAmount > creditLimit {
		result.Eligible = false
		result.Reasons = append(result.Reasons, fmt.Sprintf(
			"Purchase amount (%s XOF) exceeds credit limit (%s XOF)",
			formatAmount(purchaseAmount), formatAmount(creditLimit)))
	}
	if purchaseAmount > availableCredit {
		result.Eligible = false
		result.Reasons = append(result.Reasons, fmt.Sprintf(
			"Insufficient available credit. Available: %s XOF, Needed: %s XOF",
			formatAmount(availableCredit), formatAmount(purchaseAmount)))
	}

	return result
}

type InstallmentEstimate struct {
	Duration             int     `json:"duration"`
	MonthlyPayment       float64 `json:"monthly_payment"`
	TotalInstallments    int     `json:"total_installments"`
	TotalAmount          float64 `json:"total_amount"`
	InterestAmount       float64 `json:"interest_amount"`
	EstimatedMonthlyRate float64 `json:"estimated_monthly_rate"`
}

// EstimateInstallmentOptions prices each duration with the amortizing annuity
// formula A = PV * r(1+r)^n / ((1+r)^n - 1), r = annualRate/12.
func EstimateInstallmentOptions(purchaseAmount float64, durations []int, annualRate float64) []InstallmentEstimate {
	if len(durations) == 0 {
		durations = DefaultDurations
	}

	estimates := make([]InstallmentEstimate, 0, len(durations))
	for _, n := range durations {
		if n <= 0 {
			continue
		}

		monthlyRate := annualRate / 12
		var payment float64
		if monthlyRate == 0 {
			payment = purchaseAmount / float64(n)
		} else {
			growth := math.Pow(1+monthlyRate, float64(n))
			payment = purchaseAmount * (monthlyRate * growth) / (growth - 1)
		}

		monthly := decimal.NewFromFloat(payment).Round(0)
		total := monthly.Mul(decimal.NewFromInt(int64(n)))
		interest := total.Sub(decimal.NewFromFloat(purchaseAmount))

		var rate decimal.Decimal
		if purchaseAmount > 0 {
			rate = interest.Div(decimal.NewFromFloat(purchaseAmount)).Mul(decimal.NewFromInt(100)).Round(2)
		}

		estimates = append(estimates, InstallmentEstimate{
			Duration:             n,
			MonthlyPayment:       monthly.InexactFloat64(),
			TotalInstallments:    n,
			TotalAmount:          total.InexactFloat64(),
			InterestAmount:       interest.InexactFloat64(),
			EstimatedMonthlyRate: rate.InexactFloat64(),
		})
	}

	return estimates
}

type InvalidDurationError struct {
	Months int
}

func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("unsupported installment duration: %d months", e.Months)
}

type FeeBreakdown struct {
	Amount          float64 `json:"amount"`
	Months          int     `json:"months"`
	InterestAmount  float64 `json:"interest_amount"`
	FixedFee        float64 `json:"fixed_fee"`
	TotalAmount     float64 `json:"total_amount"`
	MonthlyPayment  float64 `json:"monthly_payment"`
	AdminCommission float64 `json:"admin_commission"`
	APR             float64 `json:"apr"`
}

// CalculateFees prices a purchase against the admin fee schedule. Only the
// durations present in the fee structure are accepted.
func CalculateFees(amount float64, months int, schedule model.FeeSchedule) (FeeBreakdown, error) {
	tier, ok := schedule.FeeStructure.Tier(months)
	if !ok {
		return FeeBreakdown{}, &InvalidDurationError{Months: months}
	}

	principal := decimal.NewFromFloat(amount)
	fixedFee := decimal.NewFromFloat(tier.FixedFee)
	interest := principal.Mul(decimal.NewFromFloat(tier.Rate))
	total := principal.Add(interest).Add(fixedFee)
	monthly := total.Div(decimal.NewFromInt(int64(months)))
	commission := principal.Mul(decimal.NewFromFloat(schedule.CommissionRate)).
		Add(decimal.NewFromFloat(schedule.FixedCommission))

	return FeeBreakdown{
		Amount:          amount,
		Months:          months,
		InterestAmount:  interest.Round(2).InexactFloat64(),
		FixedFee:        fixedFee.Round(2).InexactFloat64(),
		TotalAmount:     total.Round(2).InexactFloat64(),
		MonthlyPayment:  monthly.Round(2).InexactFloat64(),
		AdminCommission: commission.Round(2).InexactFloat64(),
		APR:             decimal.NewFromFloat(tier.Rate).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64(),
	}, nil
}

// Round2 rounds a currency value half-up to two decimals.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func formatAmount(v float64) string {
	return decimal.NewFromFloat(v).Round(2).String()
}
