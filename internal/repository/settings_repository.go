package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
)

// SettingsRepository stores the dropdown lists, one row per list.
type SettingsRepository interface {
	Get(ctx context.Context, name domain.SettingsName) (*domain.SettingsList, error)
	Save(ctx context.Context, list *domain.SettingsList) error
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository builds repository.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) Get(ctx context.Context, name domain.SettingsName) (*domain.SettingsList, error) {
	const query = `SELECT name, items, updated_at FROM maintenance_settings WHERE name=$1`

	var list domain.SettingsList
	var items []byte
	if err := r.pool.QueryRow(ctx, query, name).Scan(&list.Name, &items, &list.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &list.Items); err != nil {
		return nil, fmt.Errorf("decode settings %s: %w", name, err)
	}
	return &list, nil
}

func (r *settingsRepository) Save(ctx context.Context, list *domain.SettingsList) error {
	const query = `
        INSERT INTO maintenance_settings (name, items, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (name) DO UPDATE SET items=EXCLUDED.items, updated_at=EXCLUDED.updated_at
        RETURNING updated_at`

	items := list.Items
	if items == nil {
		items = []domain.SettingItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, query, list.Name, payload).Scan(&list.UpdatedAt)
}
