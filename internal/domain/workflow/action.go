package workflow

// Action represents an actor decision that can cause a state transition
type Action string

const (
	ActionApprove             Action = "APPROVE"
	ActionReject              Action = "REJECT"
	ActionRequestAlternative  Action = "REQUEST_ALTERNATIVE_VENDOR"
	ActionSubmitPaymentLetter Action = "SUBMIT_PAYMENT_LETTER"
	ActionConfirmPayment      Action = "CONFIRM_PAYMENT"
	ActionConfirmDelivery     Action = "CONFIRM_DELIVERY"
	ActionCancel              Action = "CANCEL"
)

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}
