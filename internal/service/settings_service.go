package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/anyulbade/furniture-credit/internal/dto"
	"github.com/anyulbade/furniture-credit/internal/fees"
	"github.com/anyulbade/furniture-credit/internal/model"
)

const maxCommissionRate = 0.1

type SettingsService struct {
	store SettingsStore
	now   func() time.Time
}

func NewSettingsService(store SettingsStore) *SettingsService {
	return &SettingsService{store: store, now: time.Now}
}

// Get returns the current settings, creating the defaults on first use.
func (s *SettingsService) Get(ctx context.Context) (model.Settings, error) {
	return s.store.Get(ctx)
}

// Update applies a partial update and validates the merged result before
// saving it. Existing reservations keep the terms they were created with.
func (s *SettingsService) Update(ctx context.Context, adminID string, patch *dto.SettingsPatch) (model.Settings, error) {
	current, err := s.store.Get(ctx)
	if err != nil {
		return model.Settings{}, err
	}

	next := applySettingsPatch(current, patch)
	if err := validateSettings(next); err != nil {
		return model.Settings{}, err
	}

	next.LastModifiedBy = adminID
	next.UpdatedAt = s.now()
	if err := s.store.Save(ctx, next); err != nil {
		return model.Settings{}, err
	}

	log.Info().Str("admin_id", adminID).Msg("admin settings updated")
	return next, nil
}

// Reset replaces the stored settings with the defaults.
func (s *SettingsService) Reset(ctx context.Context, adminID string) (model.Settings, error) {
	next := model.DefaultSettings()
	next.LastModifiedBy = adminID
	next.UpdatedAt = s.now()
	if err := s.store.Save(ctx, next); err != nil {
		return model.Settings{}, err
	}
	log.Info().Str("admin_id", adminID).Msg("admin settings reset to defaults")
	return next, nil
}

func setIf(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func patchTier(t *model.FeeTier, p *dto.FeeTierPatch) {
	if p == nil {
		return
	}
	setIf(&t.Rate, p.Rate)
	setIf(&t.FixedFee, p.FixedFee)
}

func applySettingsPatch(s model.Settings, p *dto.SettingsPatch) model.Settings {
	if p == nil {
		return s
	}
	if sp := p.Shipping; sp != nil {
		setIf(&s.Shipping.FreeShippingThreshold, sp.FreeShippingThreshold)
		setIf(&s.Shipping.StandardShippingCost, sp.StandardShippingCost)
	}
	if tp := p.Taxes; tp != nil {
		setIf(&s.Taxes.VATRate, tp.VATRate)
	}
	if cp := p.Credit; cp != nil {
		setIf(&s.Credit.CommissionRate, cp.CommissionRate)
		setIf(&s.Credit.FixedCommission, cp.FixedCommission)
		setIf(&s.Credit.MinimumAmount, cp.MinimumAmount)
		setIf(&s.Credit.MaximumAmount, cp.MaximumAmount)
		if fs := cp.FeeStructure; fs != nil {
			patchTier(&s.Credit.FeeStructure.ThreeMonths, fs.ThreeMonths)
			patchTier(&s.Credit.FeeStructure.SixMonths, fs.SixMonths)
			patchTier(&s.Credit.FeeStructure.TwelveMonths, fs.TwelveMonths)
			patchTier(&s.Credit.FeeStructure.TwentyFourMonths, fs.TwentyFourMonths)
		}
	}
	return s
}

func validateSettings(s model.Settings) error {
	c := s.Credit
	switch {
	case c.CommissionRate < 0 || c.CommissionRate > maxCommissionRate:
		return &ValidationError{Field: "credit.commission_rate", Message: "must be between 0 and 0.1"}
	case c.FixedCommission < 0:
		return &ValidationError{Field: "credit.fixed_commission", Message: "must not be negative"}
	case c.MinimumAmount < 1:
		return &ValidationError{Field: "credit.minimum_amount", Message: "must be at least 1"}
	case c.MinimumAmount > c.MaximumAmount:
		return &ValidationError{Field: "credit.maximum_amount", Message: "must not be below minimum_amount"}
	case s.Shipping.FreeShippingThreshold < 0 || s.Shipping.StandardShippingCost < 0:
		return &ValidationError{Field: "shipping", Message: "amounts must not be negative"}
	case s.Taxes.VATRate < 0 || s.Taxes.VATRate > 1:
		return &ValidationError{Field: "taxes.vat_rate", Message: "must be between 0 and 1"}
	}

	for _, months := range model.SupportedDurations {
		tier, _ := c.FeeStructure.Tier(months)
		if tier.Rate < 0 || tier.FixedFee < 0 {
			return &ValidationError{
				Field:   fmt.Sprintf("credit.fee_structure.%d", months),
				Message: "rate and fixed_fee must not be negative",
			}
		}
	}
	return nil
}

// Fees prices a credit purchase for one duration with the current schedule.
func (s *SettingsService) Fees(ctx context.Context, amount float64, months int) (fees.FeeBreakdown, error) {
	settings, err := s.store.Get(ctx)
	if err != nil {
		return fees.FeeBreakdown{}, err
	}
	return fees.CalculateFees(amount, months, settings.Credit)
}

// InstallmentOptions prices a credit purchase for every supported duration.
func (s *SettingsService) InstallmentOptions(ctx context.Context, amount float64) ([]fees.FeeBreakdown, error) {
	settings, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]fees.FeeBreakdown, 0, len(model.SupportedDurations))
	for _, months := range model.SupportedDurations {
		b, err := fees.CalculateFees(amount, months, settings.Credit)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
