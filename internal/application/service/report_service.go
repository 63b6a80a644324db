package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/procurehub/purchase-workflow/internal/application/port"
	domainwf "github.com/procurehub/purchase-workflow/internal/domain/workflow"
)

// ReportService exports the request register and dashboard summary as a
// spreadsheet for finance and procurement teams
type ReportService interface {
	// ExportRegister writes the report workbook and returns its path
	ExportRegister(ctx context.Context) (string, error)
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	OutputDir   string
	CompanyName string
}

type reportServiceImpl struct {
	requestRepo port.RequestRepository
	queries     QueryService
	config      ReportConfig
	logger      Logger
}

// NewReportService creates a new ReportService
func NewReportService(requestRepo port.RequestRepository, queries QueryService, config ReportConfig, logger Logger) ReportService {
	return &reportServiceImpl{
		requestRepo: requestRepo,
		queries:     queries,
		config:      config,
		logger:      logger,
	}
}

var registerHeader = []string{
	"Code", "Requester", "Department", "Description", "Amount", "Currency",
	"Vendor", "Priority", "Status", "Stage", "Created", "Completed",
}

// ExportRegister builds a workbook with a register sheet listing every
// request and a summary sheet with the dashboard counters
func (s *reportServiceImpl) ExportRegister(ctx context.Context) (string, error) {
	requests, err := s.requestRepo.List(ctx, port.RequestFilter{})
	if err != nil {
		return "", err
	}
	stats, err := s.queries.Stats(ctx)
	if err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const registerSheet = "Requests"
	if err := f.SetSheetName("Sheet1", registerSheet); err != nil {
		return "", fmt.Errorf("rename sheet: %w", err)
	}

	for col, title := range registerHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(registerSheet, cell, title); err != nil {
			return "", fmt.Errorf("write header: %w", err)
		}
	}

	for i, req := range requests {
		completed := ""
		if req.CompletedAt != nil {
			completed = req.CompletedAt.Format("2006-01-02")
		}
		row := []interface{}{
			req.Code,
			req.RequesterName,
			req.Department,
			req.Description,
			req.Amount.StringFixed(2),
			req.Currency,
			req.VendorName,
			string(req.Priority),
			req.Status,
			domainwf.StageOf(domainwf.Status(req.Status)).String(),
			req.CreatedAt.Format("2006-01-02"),
			completed,
		}
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(registerSheet, cell, value); err != nil {
				return "", fmt.Errorf("write row %d: %w", i+2, err)
			}
		}
	}

	if err := s.writeSummary(f, stats); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.config.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(s.config.OutputDir,
		fmt.Sprintf("purchase_register_%s.xlsx", time.Now().Format("20060102_150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}

	s.logger.Info("Report exported", "path", path, "requests", len(requests))
	return path, nil
}

func (s *reportServiceImpl) writeSummary(f *excelize.File, stats *DashboardStats) error {
	const summarySheet = "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Company", s.config.CompanyName},
		{"Generated", time.Now().Format("2006-01-02 15:04")},
		{},
		{"Total requests", stats.TotalRequests},
		{"Open", stats.OpenRequests},
		{"Completed", stats.CompletedCount},
		{"Rejected", stats.RejectedCount},
		{"Cancelled", stats.CancelledCount},
		{},
		{"Status", "Count", "Total amount"},
	}
	for _, c := range stats.ByStatus {
		rows = append(rows, []interface{}{c.Status, c.Count, c.Total})
	}

	for r, row := range rows {
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+1)
			if err := f.SetCellValue(summarySheet, cell, value); err != nil {
				return fmt.Errorf("write summary row %d: %w", r+1, err)
			}
		}
	}
	return nil
}
