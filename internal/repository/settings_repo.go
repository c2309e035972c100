package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anyulbade/furniture-credit/internal/model"
)

// SettingsRepository stores the single admin settings row.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Get returns the stored settings, inserting the defaults on first use.
func (r *SettingsRepository) Get(ctx context.Context) (model.Settings, error) {
	defaults := model.DefaultSettings()
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO admin_settings (id, data) VALUES (1, $1) ON CONFLICT (id) DO NOTHING`, defaults); err != nil {
		return model.Settings{}, fmt.Errorf("seed default settings: %w", err)
	}

	var s model.Settings
	if err := r.pool.QueryRow(ctx, `SELECT data FROM admin_settings WHERE id = 1`).Scan(&s); err != nil {
		return model.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return s, nil
}

func (r *SettingsRepository) Save(ctx context.Context, s model.Settings) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO admin_settings (id, data, updated_at) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		s, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
