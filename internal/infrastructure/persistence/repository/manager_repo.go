package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/procurehub/purchase-workflow/internal/application/port"
	"github.com/procurehub/purchase-workflow/internal/domain/entity"
	domainwf "github.com/procurehub/purchase-workflow/internal/domain/workflow"
)

// ManagerRepository implements port.ManagerRepository for SQLite
type ManagerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewManagerRepository creates a new manager repository
func NewManagerRepository(db *sql.DB, logger *zap.Logger) port.ManagerRepository {
	return &ManagerRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID returns the assignment for managerID, or nil when absent
func (r *ManagerRepository) GetByID(ctx context.Context, managerID string) (*entity.ManagerAssignment, error) {
	query := `
		SELECT manager_id, name, email, department, active, created_at, updated_at
		FROM manager_assignments WHERE manager_id = ?
	`

	m := &entity.ManagerAssignment{}
	err := executorFor(ctx, r.db).QueryRowContext(ctx, query, managerID).Scan(
		&m.ManagerID, &m.Name, &m.Email, &m.Department, &m.Active,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get manager assignment",
			zap.String("manager_id", managerID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: get manager: %v", domainwf.ErrStorage, err)
	}

	return m, nil
}

// ListActive returns all active manager assignments
func (r *ManagerRepository) ListActive(ctx context.Context) ([]*entity.ManagerAssignment, error) {
	query := `
		SELECT manager_id, name, email, department, active, created_at, updated_at
		FROM manager_assignments WHERE active = 1 ORDER BY name ASC
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list active managers", zap.Error(err))
		return nil, fmt.Errorf("%w: list managers: %v", domainwf.ErrStorage, err)
	}
	defer rows.Close()

	var managers []*entity.ManagerAssignment
	for rows.Next() {
		m := &entity.ManagerAssignment{}
		if err := rows.Scan(
			&m.ManagerID, &m.Name, &m.Email, &m.Department, &m.Active,
			&m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan manager: %v", domainwf.ErrStorage, err)
		}
		managers = append(managers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate managers: %v", domainwf.ErrStorage, err)
	}

	return managers, nil
}

// Upsert inserts or replaces an assignment keyed by manager_id
func (r *ManagerRepository) Upsert(ctx context.Context, m *entity.ManagerAssignment) error {
	query := `
		INSERT INTO manager_assignments (manager_id, name, email, department, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(manager_id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			department = excluded.department,
			active = excluded.active,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		m.ManagerID, m.Name, m.Email, m.Department, m.Active,
	)
	if err != nil {
		r.logger.Error("Failed to upsert manager assignment",
			zap.String("manager_id", m.ManagerID),
			zap.Error(err))
		return fmt.Errorf("%w: upsert manager: %v", domainwf.ErrStorage, err)
	}

	return nil
}

// Verify interface compliance
var _ port.ManagerRepository = (*ManagerRepository)(nil)
