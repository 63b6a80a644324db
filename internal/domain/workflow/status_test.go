package workflow

import "testing"

func TestStatusIsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   bool
	}{
		{
			name:   "pending approval is not terminal",
			status: StatusPendingApproval,
			want:   false,
		},
		{
			name:   "procurement review is not terminal",
			status: StatusPendingProcurementReview,
			want:   false,
		},
		{
			name:   "awaiting delivery is not terminal",
			status: StatusAwaitingDeliveryConfirmation,
			want:   false,
		},
		{
			name:   "completed is terminal",
			status: StatusCompleted,
			want:   true,
		},
		{
			name:   "rejected is terminal",
			status: StatusRejected,
			want:   true,
		},
		{
			name:   "cancelled is terminal",
			status: StatusCancelled,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.want {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusIsValid(t *testing.T) {
	for status := range validStatuses {
		if !status.IsValid() {
			t.Errorf("expected %s to be valid", status)
		}
	}

	if Status("SHIPPED").IsValid() {
		t.Error("expected unknown status to be invalid")
	}
	if Status("").IsValid() {
		t.Error("expected empty status to be invalid")
	}
}

func TestStageOf(t *testing.T) {
	tests := []struct {
		status Status
		want   Stage
	}{
		{StatusPendingApproval, StageApproval},
		{StatusPendingProcurementReview, StageProcurement},
		{StatusPendingFinanceApproval, StageFinance},
		{StatusPaymentInProgress, StagePayment},
		{StatusAwaitingPaymentConfirmation, StagePayment},
		{StatusAwaitingDeliveryConfirmation, StageDelivery},
		{StatusCompleted, StageClosed},
		{StatusRejected, StageClosed},
		{StatusCancelled, StageClosed},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := StageOf(tt.status); got != tt.want {
				t.Errorf("StageOf(%s) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}
