package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/procurehub/purchase-workflow/internal/application/port"
	domainwf "github.com/procurehub/purchase-workflow/internal/domain/workflow"
)

// SettingRepository implements port.SettingRepository over a key-value
// settings table
type SettingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSettingRepository creates a new setting repository
func NewSettingRepository(db *sql.DB, logger *zap.Logger) port.SettingRepository {
	return &SettingRepository{
		db:     db,
		logger: logger,
	}
}

// Get returns the stored value for key, or "" when unset
func (r *SettingRepository) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM workflow_settings WHERE key = ?`

	var value string
	err := executorFor(ctx, r.db).QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		r.logger.Error("Failed to get setting", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("%w: get setting: %v", domainwf.ErrStorage, err)
	}

	return value, nil
}

// Set stores a value for key, replacing any previous value
func (r *SettingRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO workflow_settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query, key, value)
	if err != nil {
		r.logger.Error("Failed to set setting", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%w: set setting: %v", domainwf.ErrStorage, err)
	}

	return nil
}

// Verify interface compliance
var _ port.SettingRepository = (*SettingRepository)(nil)
