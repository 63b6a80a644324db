package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/procurehub/purchase-workflow/internal/application/port"
	"github.com/procurehub/purchase-workflow/internal/domain/entity"
)

// reportRequestRepo serves a fixed request list and status breakdown
type reportRequestRepo struct {
	requests []*entity.PurchaseRequest
	counts   []port.StatusCount
}

func (r *reportRequestRepo) Create(ctx context.Context, req *entity.PurchaseRequest) error {
	return nil
}

func (r *reportRequestRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseRequest, error) {
	return nil, nil
}

func (r *reportRequestRepo) GetByCode(ctx context.Context, code string) (*entity.PurchaseRequest, error) {
	return nil, nil
}

func (r *reportRequestRepo) UpdateStatus(ctx context.Context, id, status string, expectedVersion int64) error {
	return nil
}

func (r *reportRequestRepo) SetCompletedAt(ctx context.Context, id string, t time.Time) error {
	return nil
}

func (r *reportRequestRepo) List(ctx context.Context, filter port.RequestFilter) ([]*entity.PurchaseRequest, error) {
	return r.requests, nil
}

func (r *reportRequestRepo) CountByStatus(ctx context.Context) ([]port.StatusCount, error) {
	return r.counts, nil
}

func TestExportRegister(t *testing.T) {
	repo := &reportRequestRepo{
		requests: []*entity.PurchaseRequest{
			{
				Code:          "PR-20260810-a1b2c3",
				RequesterName: "Dana Smith",
				Department:    "Engineering",
				Description:   "Laptops",
				Amount:        decimal.NewFromInt(450_000),
				Currency:      "USD",
				VendorName:    "TechSupply Ltd",
				Priority:      entity.PriorityHigh,
				Status:        "PENDING_FINANCE_APPROVAL",
				CreatedAt:     time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC),
			},
			{
				Code:          "PR-20260801-d4e5f6",
				RequesterName: "Alex Chan",
				Department:    "Operations",
				Description:   "Forklift service",
				Amount:        decimal.NewFromInt(80_000),
				Currency:      "USD",
				VendorName:    "LiftCo",
				Priority:      entity.PriorityMedium,
				Status:        "COMPLETED",
				CreatedAt:     time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
			},
		},
		counts: []port.StatusCount{
			{Status: "PENDING_FINANCE_APPROVAL", Count: 1, Total: "450000.00"},
			{Status: "COMPLETED", Count: 1, Total: "80000.00"},
		},
	}

	queries := NewQueryService(repo, nopLogger{})
	svc := NewReportService(repo, queries, ReportConfig{
		OutputDir:   t.TempDir(),
		CompanyName: "ProcureHub Inc.",
	}, nopLogger{})

	path, err := svc.ExportRegister(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Requests")
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two requests")
	assert.Equal(t, "Code", rows[0][0])
	assert.Equal(t, "PR-20260810-a1b2c3", rows[1][0])
	assert.Equal(t, "450000.00", rows[1][4])
	assert.Equal(t, "FINANCE", rows[1][9])
	assert.Equal(t, "CLOSED", rows[2][9])

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, "ProcureHub Inc.", summary[0][1])
}
