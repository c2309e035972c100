package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/anyulbade/furniture-credit/internal/kredika"
	"github.com/anyulbade/furniture-credit/internal/model"
	"github.com/anyulbade/furniture-credit/internal/repository"
)

const maxWriteAttempts = 3

// mutateOrder loads the order, lets fn change it and writes it back with a
// version check, re-reading and re-applying fn on conflict. fn reports
// whether it changed anything; unchanged orders are not written.
func mutateOrder(ctx context.Context, orders OrderStore, id string, now func() time.Time, fn func(o *model.Order) (bool, error)) (*model.Order, bool, error) {
	for attempt := 1; ; attempt++ {
		o, err := orders.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, false, ErrOrderNotFound
			}
			return nil, false, fmt.Errorf("load order %s: %w", id, err)
		}

		changed, err := fn(o)
		if err != nil {
			return nil, false, err
		}
		if !changed {
			return o, false, nil
		}

		o.UpdatedAt = now()
		err = orders.Update(ctx, o)
		if err == nil {
			return o, true, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) || attempt == maxWriteAttempts {
			return nil, false, fmt.Errorf("save order %s: %w", id, err)
		}

		log.Debug().Str("order_id", id).Int("attempt", attempt).Msg("order version conflict, retrying")
	}
}

// takeStock decrements the line items one by one. If a line cannot be taken
// the lines already taken are put back, so stock is taken for the whole
// order or not at all. A line that would go negative yields an
// *InsufficientStockError.
func takeStock(ctx context.Context, products ProductStore, items []model.OrderItem) error {
	for i, item := range items {
		if err := products.IncrementStock(ctx, item.ProductID, -item.Quantity); err != nil {
			if undoErr := adjustStock(ctx, products, items[:i], 1); undoErr != nil {
				log.Error().Err(undoErr).Str("product_id", item.ProductID).Msg("failed to undo partial stock decrement")
			}
			if isStockShortage(err) {
				return shortageFor(ctx, products, item)
			}
			return fmt.Errorf("take stock for %s: %w", item.ProductID, err)
		}
	}
	return nil
}

// shortageFor reports the stock left for item after a concurrent buyer won.
func shortageFor(ctx context.Context, products ProductStore, item model.OrderItem) error {
	short := &InsufficientStockError{ProductID: item.ProductID, Name: item.Name, Requested: item.Quantity}
	if p, err := products.FindByID(ctx, item.ProductID); err == nil {
		short.Available = p.StockQuantity
	}
	return short
}

// isStockShortage reports whether err is the non-negative stock check firing.
func isStockShortage(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}

// adjustStock applies sign*quantity to every line item concurrently.
func adjustStock(ctx context.Context, products ProductStore, items []model.OrderItem, sign int) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, item := range items {
		g.Go(func() error {
			return products.IncrementStock(gctx, item.ProductID, sign*item.Quantity)
		})
	}
	return g.Wait()
}

// restoreStock puts line items back. Failures are logged, never returned:
// the order state change that triggered it has already been committed.
func restoreStock(ctx context.Context, products ProductStore, o *model.Order) {
	if err := adjustStock(ctx, products, o.Items, 1); err != nil {
		log.Error().Err(err).Str("order_id", o.ID).Msg("failed to restore stock")
		return
	}
	log.Info().Str("order_id", o.ID).Int("lines", len(o.Items)).Msg("stock restored")
}

// applyReservationStatus moves the order along the provider status table
// and reports whether the line items must go back to stock. The caller has
// already established that status differs from the cached one.
func applyReservationStatus(o *model.Order, status model.ReservationStatus, at time.Time) (restock bool) {
	o.Payment.Credit.Status = status

	switch status {
	case model.ReservationActive:
		if o.Status == model.OrderPending {
			o.Status = model.OrderConfirmed
			o.AddHistory(string(model.OrderConfirmed), "Credit reservation activated", at)
		}
		o.Payment.Status = model.PaymentPending

	case model.ReservationCompleted:
		o.Payment.Status = model.PaymentPaid
		o.Payment.PaidAt = &at
		if o.Status == model.OrderConfirmed {
			o.Status = model.OrderProcessing
			o.AddHistory(string(model.OrderProcessing), "All installments paid", at)
		}

	case model.ReservationCancelled, model.ReservationDefaulted:
		if o.Status != model.OrderCancelled {
			o.Status = model.OrderCancelled
			o.AddHistory(string(model.OrderCancelled), "Credit reservation "+string(status), at)
			restock = o.ReleaseStock()
		}
	}
	return restock
}

func toInstallments(list []kredika.Installment) []model.Installment {
	out := make([]model.Installment, 0, len(list))
	for _, inst := range list {
		status := model.InstallmentStatus(inst.Status)
		if status == "" {
			status = model.InstallmentPending
		}
		out = append(out, model.Installment{
			InstallmentID: inst.ID(),
			DueDate:       inst.DueDate.Time,
			Amount:        inst.Due(),
			Status:        status,
			PaidAt:        inst.PaidAt,
		})
	}
	return out
}

func instructionSnapshot(pi *kredika.PaymentInstruction) map[string]any {
	snap := map[string]any{
		"paymentInstructionId": pi.PaymentInstructionID,
		"channel":              pi.Channel,
		"amountDue":            pi.AmountDue,
	}
	if pi.Reference != "" {
		snap["reference"] = pi.Reference
	}
	if pi.ExpiresAt != nil {
		snap["expiresAt"] = pi.ExpiresAt
	}
	if len(pi.Instructions) > 0 {
		snap["instructions"] = pi.Instructions
	}
	return snap
}

func externalOrderRef(orderID string) string {
	return "ORD-" + orderID
}

func externalCustomerRef(userID string) string {
	return "CUST-" + userID
}

// notify delivers a status notification without ever failing the caller.
func notify(ctx context.Context, n Notifier, users UserStore, o *model.Order, status string) {
	if n == nil {
		return
	}
	user, err := users.FindByID(ctx, o.UserID)
	if err != nil {
		log.Warn().Err(err).Str("order_id", o.ID).Msg("notification skipped, user lookup failed")
		return
	}
	notifyUser(ctx, n, o, user, status)
}

func notifyUser(ctx context.Context, n Notifier, o *model.Order, user *model.User, status string) {
	if n == nil {
		return
	}
	if err := n.NotifyOrderCreditStatus(ctx, o, user, status); err != nil {
		log.Warn().Err(err).Str("order_id", o.ID).Str("status", status).Msg("credit status notification failed")
	}
}
