package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anyulbade/furniture-credit/internal/model"
)

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) Create(ctx context.Context, p *model.Product) error {
	if p.Images == nil {
		p.Images = []string{}
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO products (id, name, price, stock_quantity, is_active, images)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		p.ID, p.Name, p.Price, p.StockQuantity, p.IsActive, p.Images,
	).Scan(&p.CreatedAt)
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	p := &model.Product{}
	err := r.pool.QueryRow(ctx,
		`SELECT id::text, name, price, stock_quantity, is_active, images, created_at
		FROM products WHERE id::text = $1`, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.StockQuantity, &p.IsActive, &p.Images, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// IncrementStock adds delta (negative to decrement) to the stock. The
// table's CHECK constraint rejects a decrement below zero.
func (r *ProductRepository) IncrementStock(ctx context.Context, id string, delta int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET stock_quantity = stock_quantity + $2 WHERE id::text = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("adjust stock for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
