package port

import "context"

// NotificationDispatcher delivers notifications to the next actor after a
// transition. Delivery is best-effort: the engine never blocks on it and a
// delivery failure never rolls back a committed transition.
type NotificationDispatcher interface {
	Notify(ctx context.Context, requestID, event string, recipients []string) error
}
