package service

import (
	"context"
	"strings"
	"time"

	"github.com/procurehub/purchase-workflow/internal/application/port"
	"github.com/procurehub/purchase-workflow/internal/domain/entity"
	"github.com/procurehub/purchase-workflow/internal/domain/event"
	domainwf "github.com/procurehub/purchase-workflow/internal/domain/workflow"
)

// NotificationService records notification intents when transitions commit
// and pushes them through the configured dispatcher. Failed deliveries stay
// queued for the background worker to retry.
type NotificationService interface {
	// HandleEvent is subscribed to the engine's domain events
	HandleEvent(ctx context.Context, evt *event.Event) error

	// DeliverPending retries queued notifications; returns how many were sent
	DeliverPending(ctx context.Context, limit int) (int, error)
}

type notificationServiceImpl struct {
	notificationRepo port.NotificationRepository
	dispatcher       port.NotificationDispatcher
	logger           Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	notificationRepo port.NotificationRepository,
	dispatcher port.NotificationDispatcher,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		notificationRepo: notificationRepo,
		dispatcher:       dispatcher,
		logger:           logger,
	}
}

// HandleEvent records the intent and attempts immediate delivery. Errors are
// logged and absorbed: notification failure is never a transition failure.
func (s *notificationServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	recipients := resolveRecipients(evt)
	if len(recipients) == 0 {
		return nil
	}

	notification := &entity.Notification{
		RequestID:  evt.RequestID,
		Event:      evt.Type.String(),
		Recipients: strings.Join(recipients, ","),
		Status:     entity.NotificationStatusPending,
		CreatedAt:  time.Now(),
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		s.logger.Error("Failed to queue notification", "error", err, "request_id", evt.RequestID)
		return nil
	}

	if err := s.dispatcher.Notify(ctx, evt.RequestID, notification.Event, recipients); err != nil {
		s.logger.Error("Notification delivery failed, left queued",
			"error", err, "request_id", evt.RequestID, "event", notification.Event)
		if markErr := s.notificationRepo.MarkFailed(ctx, notification.ID, err.Error()); markErr != nil {
			s.logger.Error("Failed to mark notification failed", "error", markErr, "id", notification.ID)
		}
		return nil
	}

	if err := s.notificationRepo.MarkSent(ctx, notification.ID); err != nil {
		s.logger.Error("Failed to mark notification sent", "error", err, "id", notification.ID)
	}
	return nil
}

// DeliverPending drains queued notifications through the dispatcher
func (s *notificationServiceImpl) DeliverPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.notificationRepo.GetPending(ctx, limit)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, n := range pending {
		recipients := strings.Split(n.Recipients, ",")
		if err := s.dispatcher.Notify(ctx, n.RequestID, n.Event, recipients); err != nil {
			if markErr := s.notificationRepo.MarkFailed(ctx, n.ID, err.Error()); markErr != nil {
				s.logger.Error("Failed to mark notification failed", "error", markErr, "id", n.ID)
			}
			continue
		}
		if err := s.notificationRepo.MarkSent(ctx, n.ID); err != nil {
			s.logger.Error("Failed to mark notification sent", "error", err, "id", n.ID)
			continue
		}
		sent++
	}
	return sent, nil
}

// resolveRecipients picks who should hear about an event: the next actor for
// in-flight statuses, the requester for creation and terminal outcomes.
// Role recipients use the "role:" prefix so the delivery adapter can expand
// them against its own directory.
func resolveRecipients(evt *event.Event) []string {
	switch evt.Type {
	case event.TypeRequestCreated:
		if managerID := evt.GetPayloadString("manager_id"); managerID != "" {
			return []string{managerID}
		}
		return nil
	case event.TypeRequestCompleted, event.TypeRequestRejected, event.TypeRequestCancelled:
		if requesterID := evt.GetPayloadString("requester_id"); requesterID != "" {
			return []string{requesterID}
		}
		return nil
	}

	switch domainwf.Status(evt.GetPayloadString("new_status")) {
	case domainwf.StatusPendingApproval:
		return []string{evt.GetPayloadString("manager_id")}
	case domainwf.StatusPendingProcurementReview:
		return []string{"role:" + entity.RoleProcurement.String()}
	case domainwf.StatusPendingFinanceApproval,
		domainwf.StatusPaymentInProgress,
		domainwf.StatusAwaitingPaymentConfirmation:
		return []string{"role:" + entity.RoleFinance.String()}
	case domainwf.StatusAwaitingDeliveryConfirmation:
		return []string{"role:" + entity.RoleOperations.String()}
	default:
		return nil
	}
}
