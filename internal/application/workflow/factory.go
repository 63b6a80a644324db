package workflow

import (
	"context"

	"github.com/shopspring/decimal"

	domainwf "github.com/procurehub/purchase-workflow/internal/domain/workflow"
)

type routingKey struct{}

// WithRoutingDecision stores the procurement-routing outcome for the guards
// evaluated when manager approval fires
func WithRoutingDecision(ctx context.Context, requiresProcurement bool) context.Context {
	return context.WithValue(ctx, routingKey{}, requiresProcurement)
}

func routingDecision(ctx context.Context) bool {
	v, _ := ctx.Value(routingKey{}).(bool)
	return v
}

// RequiresProcurementReview decides the conditional route after manager
// approval. Tie-break: an amount equal to the threshold goes to procurement.
func RequiresProcurementReview(amount, threshold decimal.Decimal) bool {
	return amount.Cmp(threshold) >= 0
}

// BuildPurchaseStateMachine creates a state machine configured for the
// purchase-request approval workflow
func BuildPurchaseStateMachine(initial domainwf.Status) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	// Manager approval. The approve action branches on the routing decision
	// computed from amount vs. threshold at approval time.
	builder.Configure(domainwf.StatusPendingApproval).
		PermitIf(domainwf.ActionApprove, domainwf.StatusPendingProcurementReview, routingDecision).
		PermitIf(domainwf.ActionApprove, domainwf.StatusPendingFinanceApproval, func(ctx context.Context) bool {
			return !routingDecision(ctx)
		}).
		Permit(domainwf.ActionReject, domainwf.StatusRejected).
		Permit(domainwf.ActionCancel, domainwf.StatusCancelled)

	// Procurement review. Requesting an alternative vendor keeps the request
	// in review but still counts as a transition with its own audit row.
	builder.Configure(domainwf.StatusPendingProcurementReview).
		Permit(domainwf.ActionApprove, domainwf.StatusPendingFinanceApproval).
		Permit(domainwf.ActionReject, domainwf.StatusRejected).
		PermitReentry(domainwf.ActionRequestAlternative).
		Permit(domainwf.ActionCancel, domainwf.StatusCancelled)

	// Finance budget approval
	builder.Configure(domainwf.StatusPendingFinanceApproval).
		Permit(domainwf.ActionApprove, domainwf.StatusPaymentInProgress).
		Permit(domainwf.ActionReject, domainwf.StatusRejected).
		Permit(domainwf.ActionCancel, domainwf.StatusCancelled)

	// Payment processing
	builder.Configure(domainwf.StatusPaymentInProgress).
		Permit(domainwf.ActionSubmitPaymentLetter, domainwf.StatusAwaitingPaymentConfirmation).
		Permit(domainwf.ActionCancel, domainwf.StatusCancelled)

	builder.Configure(domainwf.StatusAwaitingPaymentConfirmation).
		Permit(domainwf.ActionConfirmPayment, domainwf.StatusAwaitingDeliveryConfirmation).
		Permit(domainwf.ActionCancel, domainwf.StatusCancelled)

	// Delivery confirmation
	builder.Configure(domainwf.StatusAwaitingDeliveryConfirmation).
		Permit(domainwf.ActionConfirmDelivery, domainwf.StatusCompleted).
		Permit(domainwf.ActionCancel, domainwf.StatusCancelled)

	// COMPLETED, REJECTED and CANCELLED are terminal - no outgoing transitions

	return builder.Build(initial)
}
