package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anyulbade/furniture-credit/internal/model"
)

type CreditRequestRepository struct {
	pool *pgxpool.Pool
}

func NewCreditRequestRepository(pool *pgxpool.Pool) *CreditRequestRepository {
	return &CreditRequestRepository{pool: pool}
}

func (r *CreditRequestRepository) Create(ctx context.Context, cr *model.CreditRequest) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO credit_requests (id, user_id, purchase_amount, desired_duration, reason, status, submitted_at, expires_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)`,
		cr.ID, cr.UserID, cr.PurchaseAmount, cr.DesiredDuration, cr.Reason, cr.Status, cr.SubmittedAt, cr.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert credit request: %w", err)
	}
	return nil
}

func (r *CreditRequestRepository) ListByUser(ctx context.Context, userID string) ([]model.CreditRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, user_id::text, purchase_amount, desired_duration, COALESCE(reason, ''),
			status, submitted_at, reviewed_at, expires_at
		FROM credit_requests WHERE user_id::text = $1 ORDER BY submitted_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query credit requests: %w", err)
	}
	defer rows.Close()

	var out []model.CreditRequest
	for rows.Next() {
		var cr model.CreditRequest
		if err := rows.Scan(&cr.ID, &cr.UserID, &cr.PurchaseAmount, &cr.DesiredDuration, &cr.Reason,
			&cr.Status, &cr.SubmittedAt, &cr.ReviewedAt, &cr.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan credit request: %w", err)
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}
