package workflow

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	domainwf "github.com/procurehub/purchase-workflow/internal/domain/workflow"
)

func TestRequiresProcurementReview(t *testing.T) {
	threshold := decimal.NewFromInt(1_000_000)

	tests := []struct {
		name   string
		amount decimal.Decimal
		want   bool
	}{
		{"below threshold", decimal.NewFromInt(999_999), false},
		{"just below threshold", decimal.RequireFromString("999999.99"), false},
		{"exactly at threshold", decimal.NewFromInt(1_000_000), true},
		{"above threshold", decimal.NewFromInt(1_000_001), true},
		{"far above threshold", decimal.NewFromInt(50_000_000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RequiresProcurementReview(tt.amount, threshold); got != tt.want {
				t.Errorf("RequiresProcurementReview(%s, %s) = %v, want %v",
					tt.amount, threshold, got, tt.want)
			}
		})
	}
}

func TestManagerApprovalRouting(t *testing.T) {
	tests := []struct {
		name                string
		requiresProcurement bool
		want                domainwf.Status
	}{
		{"large amount routes to procurement", true, domainwf.StatusPendingProcurementReview},
		{"small amount routes to finance", false, domainwf.StatusPendingFinanceApproval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine := BuildPurchaseStateMachine(domainwf.StatusPendingApproval)
			ctx := WithRoutingDecision(context.Background(), tt.requiresProcurement)

			if err := machine.Fire(ctx, domainwf.ActionApprove); err != nil {
				t.Fatalf("Fire() error = %v", err)
			}
			if machine.Status() != tt.want {
				t.Errorf("status = %s, want %s", machine.Status(), tt.want)
			}
		})
	}
}

func TestHappyPathWithProcurement(t *testing.T) {
	machine := BuildPurchaseStateMachine(domainwf.StatusPendingApproval)
	ctx := WithRoutingDecision(context.Background(), true)

	steps := []struct {
		action domainwf.Action
		want   domainwf.Status
	}{
		{domainwf.ActionApprove, domainwf.StatusPendingProcurementReview},
		{domainwf.ActionApprove, domainwf.StatusPendingFinanceApproval},
		{domainwf.ActionApprove, domainwf.StatusPaymentInProgress},
		{domainwf.ActionSubmitPaymentLetter, domainwf.StatusAwaitingPaymentConfirmation},
		{domainwf.ActionConfirmPayment, domainwf.StatusAwaitingDeliveryConfirmation},
		{domainwf.ActionConfirmDelivery, domainwf.StatusCompleted},
	}

	for _, step := range steps {
		if err := machine.Fire(ctx, step.action); err != nil {
			t.Fatalf("Fire(%s) from %s error = %v", step.action, machine.Status(), err)
		}
		if machine.Status() != step.want {
			t.Fatalf("after %s: status = %s, want %s", step.action, machine.Status(), step.want)
		}
	}
}

func TestAlternativeVendorKeepsReviewStatus(t *testing.T) {
	machine := BuildPurchaseStateMachine(domainwf.StatusPendingProcurementReview)

	if err := machine.Fire(context.Background(), domainwf.ActionRequestAlternative); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if machine.Status() != domainwf.StatusPendingProcurementReview {
		t.Errorf("status = %s, want %s", machine.Status(), domainwf.StatusPendingProcurementReview)
	}

	// The request can still be approved afterwards
	if err := machine.Fire(context.Background(), domainwf.ActionApprove); err != nil {
		t.Fatalf("Fire() after reentry error = %v", err)
	}
	if machine.Status() != domainwf.StatusPendingFinanceApproval {
		t.Errorf("status = %s, want %s", machine.Status(), domainwf.StatusPendingFinanceApproval)
	}
}

func TestCancelFromEveryNonTerminalStatus(t *testing.T) {
	nonTerminal := []domainwf.Status{
		domainwf.StatusPendingApproval,
		domainwf.StatusPendingProcurementReview,
		domainwf.StatusPendingFinanceApproval,
		domainwf.StatusPaymentInProgress,
		domainwf.StatusAwaitingPaymentConfirmation,
		domainwf.StatusAwaitingDeliveryConfirmation,
	}

	for _, status := range nonTerminal {
		t.Run(status.String(), func(t *testing.T) {
			machine := BuildPurchaseStateMachine(status)
			if err := machine.Fire(context.Background(), domainwf.ActionCancel); err != nil {
				t.Fatalf("Fire(cancel) error = %v", err)
			}
			if machine.Status() != domainwf.StatusCancelled {
				t.Errorf("status = %s, want %s", machine.Status(), domainwf.StatusCancelled)
			}
		})
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	terminal := []domainwf.Status{
		domainwf.StatusCompleted,
		domainwf.StatusRejected,
		domainwf.StatusCancelled,
	}
	actions := []domainwf.Action{
		domainwf.ActionApprove,
		domainwf.ActionReject,
		domainwf.ActionRequestAlternative,
		domainwf.ActionSubmitPaymentLetter,
		domainwf.ActionConfirmPayment,
		domainwf.ActionConfirmDelivery,
		domainwf.ActionCancel,
	}

	for _, status := range terminal {
		machine := BuildPurchaseStateMachine(status)
		for _, action := range actions {
			if machine.CanFire(action) {
				t.Errorf("action %s permitted from terminal status %s", action, status)
			}
		}
	}
}

func TestRejectOnlyBeforePayment(t *testing.T) {
	rejectable := map[domainwf.Status]bool{
		domainwf.StatusPendingApproval:          true,
		domainwf.StatusPendingProcurementReview: true,
		domainwf.StatusPendingFinanceApproval:   true,
	}

	all := []domainwf.Status{
		domainwf.StatusPendingApproval,
		domainwf.StatusPendingProcurementReview,
		domainwf.StatusPendingFinanceApproval,
		domainwf.StatusPaymentInProgress,
		domainwf.StatusAwaitingPaymentConfirmation,
		domainwf.StatusAwaitingDeliveryConfirmation,
	}

	for _, status := range all {
		machine := BuildPurchaseStateMachine(status)
		if got := machine.CanFire(domainwf.ActionReject); got != rejectable[status] {
			t.Errorf("CanFire(reject) from %s = %v, want %v", status, got, rejectable[status])
		}
	}
}
