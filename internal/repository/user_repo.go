package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anyulbade/furniture-credit/internal/model"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, phone, first_name, last_name, credit_limit, available_credit)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
		RETURNING created_at`,
		u.ID, u.Email, u.Phone, u.FirstName, u.LastName, u.CreditLimit, u.AvailableCredit,
	).Scan(&u.CreatedAt)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT id::text, email, COALESCE(phone, '') AS phone, first_name, last_name,
			credit_limit, available_credit, created_at
		FROM users WHERE id::text = $1`, id).
		Scan(&u.ID, &u.Email, &u.Phone, &u.FirstName, &u.LastName, &u.CreditLimit, &u.AvailableCredit, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}
