package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/procurehub/purchase-workflow/internal/application/port"
	"github.com/procurehub/purchase-workflow/internal/domain/entity"
	domainwf "github.com/procurehub/purchase-workflow/internal/domain/workflow"
)

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `
	id, code, requester_id, requester_name, requester_email, department,
	description, amount, currency, vendor_name, vendor_bank_details,
	priority, approving_manager_id, status, document_ref, notes, version,
	created_at, updated_at, completed_at
`

// Create inserts a new purchase request
func (r *RequestRepository) Create(ctx context.Context, req *entity.PurchaseRequest) error {
	query := `
		INSERT INTO purchase_requests (
			id, code, requester_id, requester_name, requester_email, department,
			description, amount, currency, vendor_name, vendor_bank_details,
			priority, approving_manager_id, status, document_ref, notes, version,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		req.ID,
		req.Code,
		req.RequesterID,
		req.RequesterName,
		req.RequesterEmail,
		req.Department,
		req.Description,
		req.Amount.String(),
		req.Currency,
		req.VendorName,
		req.VendorBankDetails,
		string(req.Priority),
		req.ApprovingManagerID,
		req.Status,
		req.DocumentRef,
		req.Notes,
		req.Version,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.Error(err))
		return fmt.Errorf("%w: create request: %v", domainwf.ErrStorage, err)
	}

	return nil
}

// GetByID retrieves a purchase request by ID
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*entity.PurchaseRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM purchase_requests WHERE id = ?`
	return r.scanOne(ctx, query, id)
}

// GetByCode retrieves a purchase request by its human-readable code
func (r *RequestRepository) GetByCode(ctx context.Context, code string) (*entity.PurchaseRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM purchase_requests WHERE code = ?`
	return r.scanOne(ctx, query, code)
}

// UpdateStatus writes the new status only if the stored version still equals
// expectedVersion, bumping the version on success. Zero rows affected means a
// concurrent writer got there first.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id, status string, expectedVersion int64) error {
	query := `
		UPDATE purchase_requests
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query, status, time.Now(), id, expectedVersion)
	if err != nil {
		r.logger.Error("Failed to update status", zap.String("id", id), zap.String("status", status), zap.Error(err))
		return fmt.Errorf("%w: update status: %v", domainwf.ErrStorage, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", domainwf.ErrStorage, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: request %s was modified concurrently", domainwf.ErrInvalidState, id)
	}

	return nil
}

// SetCompletedAt stamps the completion time
func (r *RequestRepository) SetCompletedAt(ctx context.Context, id string, t time.Time) error {
	query := `UPDATE purchase_requests SET completed_at = ? WHERE id = ?`

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query, t, id)
	if err != nil {
		r.logger.Error("Failed to set completed time", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("%w: set completed time: %v", domainwf.ErrStorage, err)
	}

	return nil
}

// List retrieves purchase requests matching the filter
func (r *RequestRepository) List(ctx context.Context, filter port.RequestFilter) ([]*entity.PurchaseRequest, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if len(filter.Statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(filter.Statuses)), ", ")
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", placeholders))
		for _, st := range filter.Statuses {
			args = append(args, st)
		}
	}
	if filter.RequesterID != "" {
		conditions = append(conditions, "requester_id = ?")
		args = append(args, filter.RequesterID)
	}
	if filter.ManagerID != "" {
		conditions = append(conditions, "approving_manager_id = ?")
		args = append(args, filter.ManagerID)
	}
	if filter.Department != "" {
		conditions = append(conditions, "department = ?")
		args = append(args, filter.Department)
	}
	if filter.Priority != "" {
		conditions = append(conditions, "priority = ?")
		args = append(args, filter.Priority)
	}

	query := `SELECT ` + requestColumns + ` FROM purchase_requests`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("%w: list requests: %v", domainwf.ErrStorage, err)
	}
	defer rows.Close()

	var requests []*entity.PurchaseRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list requests: %v", domainwf.ErrStorage, err)
	}
	return requests, nil
}

// CountByStatus aggregates request counts and amounts per status
func (r *RequestRepository) CountByStatus(ctx context.Context) ([]port.StatusCount, error) {
	query := `
		SELECT status, COUNT(*), COALESCE(SUM(CAST(amount AS REAL)), 0)
		FROM purchase_requests
		GROUP BY status
		ORDER BY status
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to count requests by status", zap.Error(err))
		return nil, fmt.Errorf("%w: count by status: %v", domainwf.ErrStorage, err)
	}
	defer rows.Close()

	var counts []port.StatusCount
	for rows.Next() {
		var c port.StatusCount
		var total float64
		if err := rows.Scan(&c.Status, &c.Count, &total); err != nil {
			return nil, fmt.Errorf("%w: scan status count: %v", domainwf.ErrStorage, err)
		}
		c.Total = decimal.NewFromFloat(total).StringFixed(2)
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: count by status: %v", domainwf.ErrStorage, err)
	}
	return counts, nil
}

func (r *RequestRepository) scanOne(ctx context.Context, query string, arg interface{}) (*entity.PurchaseRequest, error) {
	row := executorFor(ctx, r.db).QueryRowContext(ctx, query, arg)

	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request", zap.Error(err))
		return nil, err
	}
	return req, nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*entity.PurchaseRequest, error) {
	var (
		req         entity.PurchaseRequest
		amount      string
		priority    string
		completedAt sql.NullTime
	)

	err := row.Scan(
		&req.ID,
		&req.Code,
		&req.RequesterID,
		&req.RequesterName,
		&req.RequesterEmail,
		&req.Department,
		&req.Description,
		&amount,
		&req.Currency,
		&req.VendorName,
		&req.VendorBankDetails,
		&priority,
		&req.ApprovingManagerID,
		&req.Status,
		&req.DocumentRef,
		&req.Notes,
		&req.Version,
		&req.CreatedAt,
		&req.UpdatedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan request: %v", domainwf.ErrStorage, err)
	}

	req.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: stored amount %q is not a decimal: %v", domainwf.ErrStorage, amount, err)
	}
	req.Priority = entity.Priority(priority)
	if completedAt.Valid {
		req.CompletedAt = &completedAt.Time
	}

	return &req, nil
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
