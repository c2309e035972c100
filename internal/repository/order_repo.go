package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anyulbade/furniture-credit/internal/model"
)

// OrderFilter narrows a user's order listing.
type OrderFilter struct {
	UserID     string
	CreditOnly bool
	Status     string
	Limit      int
	Offset     int
}

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id::text, order_number, user_id::text, status, items, shipping_address,
	pricing, payment, status_history, stock_reserved, version, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.Items, &o.ShippingAddress,
		&o.Pricing, &o.Payment, &o.StatusHistory, &o.StockReserved, &o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// creditColumns extracts the indexed lookup columns from the payment document.
func creditColumns(o *model.Order) (reservationID, status *string) {
	if o.Payment.Credit == nil {
		return nil, nil
	}
	if o.Payment.Credit.ReservationID != "" {
		id := o.Payment.Credit.ReservationID
		reservationID = &id
	}
	s := string(o.Payment.Credit.Status)
	return reservationID, &s
}

func (r *OrderRepository) Create(ctx context.Context, o *model.Order) error {
	resID, creditStatus := creditColumns(o)
	o.Version = 1
	_, err := r.pool.Exec(ctx,
		`INSERT INTO orders (id, order_number, user_id, status, payment_method, credit_reservation_id, credit_status,
			items, shipping_address, pricing, payment, status_history, stock_reserved, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		o.ID, o.OrderNumber, o.UserID, o.Status, o.Payment.Method, resID, creditStatus,
		o.Items, o.ShippingAddress, o.Pricing, o.Payment, o.StatusHistory, o.StockReserved, o.Version, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*model.Order, error) {
	return scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id::text = $1`, id))
}

func (r *OrderRepository) FindByReservationID(ctx context.Context, reservationID string) (*model.Order, error) {
	return scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE credit_reservation_id = $1`, reservationID))
}

// Update writes the whole aggregate if nobody else has since o was read,
// and bumps o.Version on success.
func (r *OrderRepository) Update(ctx context.Context, o *model.Order) error {
	resID, creditStatus := creditColumns(o)
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $3, credit_reservation_id = $4, credit_status = $5,
			items = $6, shipping_address = $7, pricing = $8, payment = $9, status_history = $10,
			stock_reserved = $11, version = version + 1, updated_at = $12
		WHERE id::text = $1 AND version = $2`,
		o.ID, o.Version, o.Status, resID, creditStatus,
		o.Items, o.ShippingAddress, o.Pricing, o.Payment, o.StatusHistory, o.StockReserved, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id::text = $1)`, o.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	o.Version++
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context, f OrderFilter) ([]model.Order, int, error) {
	where := `WHERE ($1 = '' OR user_id::text = $1)
		AND (NOT $2 OR payment_method = 'credit')
		AND ($3 = '' OR status = $3)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders `+where,
		f.UserID, f.CreditOnly, f.Status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	// LIMIT NULL means no limit
	var limit *int
	if f.Limit > 0 {
		limit = &f.Limit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders `+where+` ORDER BY created_at DESC LIMIT $4 OFFSET $5`,
		f.UserID, f.CreditOnly, f.Status, limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, total, rows.Err()
}

// ListByCreditStatus returns credit orders whose cached reservation status is
// one of statuses, oldest first.
func (r *OrderRepository) ListByCreditStatus(ctx context.Context, statuses ...model.ReservationStatus) ([]model.Order, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE credit_status = ANY($1) ORDER BY created_at`, names)
	if err != nil {
		return nil, fmt.Errorf("query credit orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}
