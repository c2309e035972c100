package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/anyulbade/furniture-credit/internal/dto"
	"github.com/anyulbade/furniture-credit/internal/fees"
	"github.com/anyulbade/furniture-credit/internal/kredika"
	"github.com/anyulbade/furniture-credit/internal/model"
	"github.com/anyulbade/furniture-credit/internal/repository"
)

const creditRequestValidity = 7 * 24 * time.Hour

// CreditService serves the customer credit surface: eligibility, credit
// applications, the credit profile and read access to installments and
// payment instructions.
type CreditService struct {
	orders     OrderStore
	users      UserStore
	settings   SettingsStore
	requests   CreditRequestStore
	provider   CreditProvider
	annualRate float64
	now        func() time.Time
}

func NewCreditService(orders OrderStore, users UserStore, settings SettingsStore, requests CreditRequestStore, provider CreditProvider, annualRate float64) *CreditService {
	return &CreditService{
		orders:     orders,
		users:      users,
		settings:   settings,
		requests:   requests,
		provider:   provider,
		annualRate: annualRate,
		now:        time.Now,
	}
}

func (s *CreditService) loadUser(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	return u, nil
}

func (s *CreditService) CheckEligibility(ctx context.Context, userID string, amount float64) (*dto.EligibilityResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	elig := fees.CheckEligibility(amount, user.CreditLimit, user.AvailableCredit)
	return &dto.EligibilityResponse{
		Eligible:              elig.Eligible,
		Reasons:               elig.Reasons,
		EstimatedInstallments: fees.EstimateInstallmentOptions(amount, nil, s.annualRate),
		CreditLimit:           user.CreditLimit,
		AvailableCredit:       user.AvailableCredit,
	}, nil
}

// Apply records a credit application for later review.
func (s *CreditService) Apply(ctx context.Context, userID string, req *dto.CreditApplicationRequest) (*model.CreditRequest, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if req.PurchaseAmount < settings.Credit.MinimumAmount || req.PurchaseAmount > settings.Credit.MaximumAmount {
		return nil, &ValidationError{
			Field:   "purchase_amount",
			Message: fmt.Sprintf("must be between %.2f and %.2f", settings.Credit.MinimumAmount, settings.Credit.MaximumAmount),
		}
	}

	elig := fees.CheckEligibility(req.PurchaseAmount, user.CreditLimit, user.AvailableCredit)
	if !elig.Eligible {
		return nil, &InsufficientCreditError{Reasons: elig.Reasons}
	}

	now := s.now()
	cr := &model.CreditRequest{
		ID:              uuid.NewString(),
		UserID:          userID,
		PurchaseAmount:  req.PurchaseAmount,
		DesiredDuration: req.DesiredDuration,
		Reason:          req.Reason,
		Status:          model.CreditRequestPending,
		SubmittedAt:     now,
		ExpiresAt:       now.Add(creditRequestValidity),
	}
	if err := s.requests.Create(ctx, cr); err != nil {
		return nil, fmt.Errorf("create credit request: %w", err)
	}

	log.Info().Str("user_id", userID).Float64("amount", cr.PurchaseAmount).Int("duration", cr.DesiredDuration).Msg("credit application created")
	return cr, nil
}

func (s *CreditService) Profile(ctx context.Context, userID string) (*dto.CreditProfileResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	var orders []model.Order
	var requests []model.CreditRequest
	g.Go(func() error {
		var err error
		orders, _, err = s.orders.List(gctx, repository.OrderFilter{UserID: userID, CreditOnly: true})
		return err
	})
	g.Go(func() error {
		var err error
		requests, err = s.requests.ListByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load credit profile: %w", err)
	}

	resp := &dto.CreditProfileResponse{
		CreditLimit:     user.CreditLimit,
		AvailableCredit: user.AvailableCredit,
		Requests:        requests,
	}
	if resp.Requests == nil {
		resp.Requests = []model.CreditRequest{}
	}

	for _, o := range orders {
		resp.UsedCredit += o.Pricing.Total
		resp.Statistics.Total++

		credit := o.Payment.Credit
		if credit == nil {
			continue
		}
		switch credit.Status {
		case model.ReservationReserved, model.ReservationActive:
			resp.Statistics.Active++
			for _, inst := range credit.Installments {
				if inst.Status != model.InstallmentPaid {
					resp.OutstandingAmount += credit.MonthlyPayment
				}
			}
		case model.ReservationCompleted:
			resp.Statistics.Completed++
		case model.ReservationDefaulted:
			resp.Statistics.Defaulted++
		}
	}

	resp.UsedCredit = fees.Round2(resp.UsedCredit)
	resp.OutstandingAmount = fees.Round2(resp.OutstandingAmount)
	if user.CreditLimit > 0 {
		resp.Utilization.Percentage = math.Round(resp.UsedCredit / user.CreditLimit * 100)
	}
	resp.Utilization.Ratio = fmt.Sprintf("%.2f / %.2f", resp.UsedCredit, user.CreditLimit)
	return resp, nil
}

func (s *CreditService) loadCreditOrder(ctx context.Context, userID, orderID string, admin bool) (*model.Order, error) {
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
	if !o.IsCredit() || o.Payment.Credit == nil {
		return nil, ErrNotCreditOrder
	}
	return o, nil
}

// Installments returns the cached schedule with aggregate counts and the
// next installment due.
func (s *CreditService) Installments(ctx context.Context, userID, orderID string, admin bool) (*dto.InstallmentsResponse, error) {
	o, err := s.loadCreditOrder(ctx, userID, orderID, admin)
	if err != nil {
		return nil, err
	}
	credit := o.Payment.Credit
	now := s.now()

	resp := &dto.InstallmentsResponse{
		OrderID:          o.ID,
		OrderNumber:      o.OrderNumber,
		OrderStatus:      string(o.Status),
		ReservationID:    credit.ReservationID,
		Status:           string(credit.Status),
		MonthlyPayment:   credit.MonthlyPayment,
		InstallmentCount: credit.InstallmentCount,
		TotalAmount:      o.Pricing.Total,
		Installments:     make([]dto.InstallmentView, 0, len(credit.Installments)),
		PaymentMethods:   credit.PaymentInstructions,
	}

	for i, inst := range credit.Installments {
		view := dto.InstallmentView{
			Installment:    inst,
			SequenceNumber: i + 1,
			IsOverdue: inst.Status == model.InstallmentOverdue ||
				(inst.Status == model.InstallmentPending && inst.DueDate.Before(now)),
		}
		resp.Installments = append(resp.Installments, view)

		resp.Stats.Total++
		switch inst.Status {
		case model.InstallmentPaid:
			resp.Stats.Paid++
		case model.InstallmentPending:
			resp.Stats.Pending++
			if resp.NextInstallment == nil {
				next := view
				resp.NextInstallment = &next
			}
		case model.InstallmentOverdue:
			resp.Stats.Overdue++
		}
	}
	return resp, nil
}

func (s *CreditService) PaymentMethods(ctx context.Context, userID, orderID string) (*dto.PaymentMethodsResponse, error) {
	o, err := s.loadCreditOrder(ctx, userID, orderID, false)
	if err != nil {
		return nil, err
	}

	instructions := o.Payment.Credit.PaymentInstructions
	if instructions == nil {
		instructions = map[string]map[string]any{}
	}
	resp := &dto.PaymentMethodsResponse{OrderID: o.ID, Instructions: instructions, AvailableMethods: []string{}}
	for channel, v := range instructions {
		if len(v) > 0 {
			resp.AvailableMethods = append(resp.AvailableMethods, channel)
		}
	}
	slices.Sort(resp.AvailableMethods)
	return resp, nil
}

// ActiveInstructions lists the provider's live instructions for one
// installment of the caller's order.
func (s *CreditService) ActiveInstructions(ctx context.Context, userID, orderID, installmentID string) ([]kredika.PaymentInstruction, error) {
	o, err := s.loadCreditOrder(ctx, userID, orderID, false)
	if err != nil {
		return nil, err
	}
	if _, inst := o.Payment.Credit.FindInstallment(installmentID); inst == nil {
		return nil, ErrInstallmentNotFound
	}
	return s.provider.GetActivePaymentInstructions(ctx, installmentID)
}

// Instruction fetches one instruction, checking it belongs to the order.
func (s *CreditService) Instruction(ctx context.Context, userID, orderID, instructionID string) (*kredika.PaymentInstruction, error) {
	o, err := s.loadCreditOrder(ctx, userID, orderID, false)
	if err != nil {
		return nil, err
	}
	pi, err := s.provider.GetPaymentInstructionByID(ctx, instructionID)
	if err != nil {
		return nil, err
	}
	if _, inst := o.Payment.Credit.FindInstallment(pi.InstallmentID); inst == nil {
		return nil, ErrInstallmentNotFound
	}
	return pi, nil
}

func (s *CreditService) MarkInstructionViewed(ctx context.Context, userID, orderID, instructionID string) (*kredika.PaymentInstruction, error) {
	if _, err := s.Instruction(ctx, userID, orderID, instructionID); err != nil {
		return nil, err
	}
	return s.provider.MarkInstructionAsViewed(ctx, instructionID)
}

func (s *CreditService) RegenerateInstructionByID(ctx context.Context, userID, orderID, instructionID string, validityHours int) (*kredika.PaymentInstruction, error) {
	if _, err := s.Instruction(ctx, userID, orderID, instructionID); err != nil {
		return nil, err
	}
	return s.provider.RegeneratePaymentInstruction(ctx, instructionID, validityHours)
}

func (s *CreditService) ReservationStats(ctx context.Context) (*kredika.ReservationStats, error) {
	return s.provider.GetReservationStats(ctx)
}

func (s *CreditService) Reservations(ctx context.Context, status string) ([]kredika.Reservation, error) {
	if status != "" && !model.ReservationStatus(status).Valid() {
		return nil, &ValidationError{Field: "status", Message: "unknown reservation status"}
	}
	return s.provider.ListReservations(ctx, status)
}

func (s *CreditService) ProviderInstallment(ctx context.Context, id string) (*kredika.Installment, error) {
	return s.provider.GetInstallmentByID(ctx, id)
}

// ReminderReport summarizes one reminder run.
type ReminderReport struct {
	Upcoming int
	Sent     int
	Failed   int
}

// SendReminders asks the provider to remind every customer with a pending
// installment due within daysAhead days. Individual failures are counted,
// not returned.
func (s *CreditService) SendReminders(ctx context.Context, daysAhead int) (ReminderReport, error) {
	var report ReminderReport

	upcoming, err := s.provider.ListUpcomingInstallments(ctx, daysAhead)
	if err != nil {
		return report, fmt.Errorf("list upcoming installments: %w", err)
	}
	report.Upcoming = len(upcoming)

	for _, inst := range upcoming {
		if inst.Status != "" && inst.Status != string(model.InstallmentPending) {
			continue
		}
		if err := s.provider.SendPaymentReminder(ctx, inst.ID()); err != nil {
			report.Failed++
			log.Warn().Err(err).Str("installment_id", inst.ID()).Msg("payment reminder failed")
			continue
		}
		report.Sent++
	}

	log.Info().Int("upcoming", report.Upcoming).Int("sent", report.Sent).Int("failed", report.Failed).Msg("payment reminders processed")
	return report, nil
}
