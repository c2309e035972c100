package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/anyulbade/furniture-credit/internal/model"
)

// Demo catalogue and customers. IDs are fixed so that re-seeding is a no-op.
var DemoProducts = []model.Product{
	{ID: "6f1c2a8e-0b1d-4c3e-9a11-000000000001", Name: "Canapé d'angle Oslo", Price: 1290, StockQuantity: 8, IsActive: true, Images: []string{"/img/oslo.jpg"}},
	{ID: "6f1c2a8e-0b1d-4c3e-9a11-000000000002", Name: "Table à manger Chêne 180", Price: 890, StockQuantity: 12, IsActive: true, Images: []string{"/img/chene-180.jpg"}},
	{ID: "6f1c2a8e-0b1d-4c3e-9a11-000000000003", Name: "Chaise Nordique", Price: 89, StockQuantity: 60, IsActive: true, Images: []string{"/img/nordique.jpg"}},
	{ID: "6f1c2a8e-0b1d-4c3e-9a11-000000000004", Name: "Lit coffre 160x200", Price: 649, StockQuantity: 15, IsActive: true},
	{ID: "6f1c2a8e-0b1d-4c3e-9a11-000000000005", Name: "Bibliothèque Loft", Price: 329, StockQuantity: 20, IsActive: true},
	{ID: "6f1c2a8e-0b1d-4c3e-9a11-000000000006", Name: "Fauteuil Velours (fin de série)", Price: 249, StockQuantity: 0, IsActive: false},
}

var DemoUsers = []model.User{
	{ID: "2b7d4e10-5a6f-4d8c-8e21-000000000001", Email: "amina.diallo@example.com", Phone: "+221770000001", FirstName: "Amina", LastName: "Diallo", CreditLimit: 5000, AvailableCredit: 5000},
	{ID: "2b7d4e10-5a6f-4d8c-8e21-000000000002", Email: "marc.lefevre@example.com", FirstName: "Marc", LastName: "Lefèvre", CreditLimit: 2000, AvailableCredit: 1200},
	{ID: "2b7d4e10-5a6f-4d8c-8e21-000000000003", Email: "sofia.martins@example.com", FirstName: "Sofia", LastName: "Martins", CreditLimit: 0, AvailableCredit: 0},
}

// SeedData inserts the demo catalogue, customers and default admin settings.
// Existing rows are left untouched.
func SeedData(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := seedProducts(ctx, tx); err != nil {
		return err
	}
	if err := seedUsers(ctx, tx); err != nil {
		return err
	}
	if err := seedSettings(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}

	log.Info().
		Int("products", len(DemoProducts)).
		Int("users", len(DemoUsers)).
		Msg("seed data applied")
	return nil
}

func seedProducts(ctx context.Context, tx pgx.Tx) error {
	for _, p := range DemoProducts {
		images, err := json.Marshal(nonNil(p.Images))
		if err != nil {
			return fmt.Errorf("marshal images for %s: %w", p.Name, err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO products (id, name, price, stock_quantity, is_active, images)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Name, p.Price, p.StockQuantity, p.IsActive, images)
		if err != nil {
			return fmt.Errorf("insert product %s: %w", p.Name, err)
		}
	}
	return nil
}

func seedUsers(ctx context.Context, tx pgx.Tx) error {
	for _, u := range DemoUsers {
		_, err := tx.Exec(ctx,
			`INSERT INTO users (id, email, phone, first_name, last_name, credit_limit, available_credit)
			 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
			 ON CONFLICT (id) DO NOTHING`,
			u.ID, u.Email, u.Phone, u.FirstName, u.LastName, u.CreditLimit, u.AvailableCredit)
		if err != nil {
			return fmt.Errorf("insert user %s: %w", u.Email, err)
		}
	}
	return nil
}

func seedSettings(ctx context.Context, tx pgx.Tx) error {
	data, err := json.Marshal(model.DefaultSettings())
	if err != nil {
		return fmt.Errorf("marshal default settings: %w", err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO admin_settings (id, data) VALUES (1, $1) ON CONFLICT (id) DO NOTHING`, data)
	if err != nil {
		return fmt.Errorf("insert admin settings: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
