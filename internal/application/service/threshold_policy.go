package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/procurehub/purchase-workflow/internal/application/port"
	domainwf "github.com/procurehub/purchase-workflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// thresholdSettingKey is the settings-table key for the procurement threshold
const thresholdSettingKey = "procurement_review_threshold"

// DefaultThreshold applies when no threshold has been configured
var DefaultThreshold = decimal.NewFromInt(1_000_000)

// ThresholdPolicy resolves and administers the procurement-review threshold
type ThresholdPolicy interface {
	Threshold(ctx context.Context) (decimal.Decimal, error)
	SetThreshold(ctx context.Context, value decimal.Decimal) error
}

type thresholdPolicyImpl struct {
	settings port.SettingRepository
	logger   Logger
}

// NewThresholdPolicy creates a new ThresholdPolicy backed by the settings store
func NewThresholdPolicy(settings port.SettingRepository, logger Logger) ThresholdPolicy {
	return &thresholdPolicyImpl{
		settings: settings,
		logger:   logger,
	}
}

// Threshold returns the configured threshold, or the default when unset
func (p *thresholdPolicyImpl) Threshold(ctx context.Context) (decimal.Decimal, error) {
	raw, err := p.settings.Get(ctx, thresholdSettingKey)
	if err != nil {
		p.logger.Error("Failed to read threshold setting", "error", err)
		return decimal.Zero, err
	}
	if raw == "" {
		return DefaultThreshold, nil
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		// A corrupt stored value must not block approvals
		p.logger.Error("Stored threshold is not a valid decimal, using default",
			"raw", raw, "error", err)
		return DefaultThreshold, nil
	}
	return value, nil
}

// SetThreshold stores a new threshold; the value must be positive
func (p *thresholdPolicyImpl) SetThreshold(ctx context.Context, value decimal.Decimal) error {
	if !value.IsPositive() {
		return fmt.Errorf("%w: threshold must be a positive decimal", domainwf.ErrValidation)
	}

	if err := p.settings.Set(ctx, thresholdSettingKey, value.String()); err != nil {
		p.logger.Error("Failed to store threshold", "error", err)
		return err
	}

	p.logger.Info("Procurement threshold updated", "threshold", value.String())
	return nil
}
