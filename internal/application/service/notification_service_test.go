package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurehub/purchase-workflow/internal/domain/entity"
	"github.com/procurehub/purchase-workflow/internal/domain/event"
)

// memNotifications is an in-memory NotificationRepository
type memNotifications struct {
	rows []*entity.Notification
}

func (m *memNotifications) Create(ctx context.Context, n *entity.Notification) error {
	n.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, n)
	return nil
}

func (m *memNotifications) GetPending(ctx context.Context, limit int) ([]*entity.Notification, error) {
	var out []*entity.Notification
	for _, n := range m.rows {
		if n.Status != entity.NotificationStatusSent {
			out = append(out, n)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memNotifications) MarkSent(ctx context.Context, id int64) error {
	for _, n := range m.rows {
		if n.ID == id {
			n.Status = entity.NotificationStatusSent
			n.Attempts++
		}
	}
	return nil
}

func (m *memNotifications) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	for _, n := range m.rows {
		if n.ID == id {
			n.Status = entity.NotificationStatusFailed
			n.ErrorMsg = errMsg
			n.Attempts++
		}
	}
	return nil
}

// fakeDispatcher records deliveries and fails on demand
type fakeDispatcher struct {
	err   error
	calls []string
}

func (d *fakeDispatcher) Notify(ctx context.Context, requestID, eventName string, recipients []string) error {
	d.calls = append(d.calls, requestID+"/"+eventName)
	return d.err
}

func TestHandleEventDeliversAndMarksSent(t *testing.T) {
	repo := &memNotifications{}
	dispatcher := &fakeDispatcher{}
	svc := NewNotificationService(repo, dispatcher, nopLogger{})

	evt := event.NewEvent(event.TypeStatusChanged, "req-1", map[string]interface{}{
		"new_status": "PENDING_FINANCE_APPROVAL",
	})
	err := svc.HandleEvent(context.Background(), evt)
	require.NoError(t, err)

	require.Len(t, repo.rows, 1)
	assert.Equal(t, entity.NotificationStatusSent, repo.rows[0].Status)
	assert.Equal(t, "role:FINANCE", repo.rows[0].Recipients)
	assert.Len(t, dispatcher.calls, 1)
}

func TestHandleEventAbsorbsDeliveryFailure(t *testing.T) {
	repo := &memNotifications{}
	dispatcher := &fakeDispatcher{err: errors.New("endpoint down")}
	svc := NewNotificationService(repo, dispatcher, nopLogger{})

	evt := event.NewEvent(event.TypeRequestCompleted, "req-2", map[string]interface{}{
		"requester_id": "emp-7",
	})
	err := svc.HandleEvent(context.Background(), evt)
	require.NoError(t, err, "delivery failure must never surface to the caller")

	require.Len(t, repo.rows, 1)
	assert.Equal(t, entity.NotificationStatusFailed, repo.rows[0].Status)
	assert.Equal(t, "endpoint down", repo.rows[0].ErrorMsg)
}

func TestHandleEventWithoutRecipientsIsNoop(t *testing.T) {
	repo := &memNotifications{}
	svc := NewNotificationService(repo, &fakeDispatcher{}, nopLogger{})

	// No payload keys to resolve a recipient from
	evt := event.NewEvent(event.TypeStatusChanged, "req-3", nil)
	err := svc.HandleEvent(context.Background(), evt)
	require.NoError(t, err)
	assert.Empty(t, repo.rows)
}

func TestDeliverPendingRetriesFailedRows(t *testing.T) {
	repo := &memNotifications{rows: []*entity.Notification{
		{ID: 1, RequestID: "req-1", Event: "request.status_changed", Recipients: "role:FINANCE", Status: entity.NotificationStatusFailed},
		{ID: 2, RequestID: "req-2", Event: "request.created", Recipients: "mgr-1", Status: entity.NotificationStatusPending},
	}}
	dispatcher := &fakeDispatcher{}
	svc := NewNotificationService(repo, dispatcher, nopLogger{})

	sent, err := svc.DeliverPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, entity.NotificationStatusSent, repo.rows[0].Status)
	assert.Equal(t, entity.NotificationStatusSent, repo.rows[1].Status)
}

func TestDeliverPendingKeepsFailingRowsQueued(t *testing.T) {
	repo := &memNotifications{rows: []*entity.Notification{
		{ID: 1, RequestID: "req-1", Event: "request.created", Recipients: "mgr-1", Status: entity.NotificationStatusPending},
	}}
	dispatcher := &fakeDispatcher{err: errors.New("still down")}
	svc := NewNotificationService(repo, dispatcher, nopLogger{})

	sent, err := svc.DeliverPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, entity.NotificationStatusFailed, repo.rows[0].Status)
	assert.Equal(t, 1, repo.rows[0].Attempts)
}

func TestResolveRecipients(t *testing.T) {
	tests := []struct {
		name    string
		evtType event.Type
		payload map[string]interface{}
		want    []string
	}{
		{
			name:    "created notifies the assigned manager",
			evtType: event.TypeRequestCreated,
			payload: map[string]interface{}{"manager_id": "mgr-1"},
			want:    []string{"mgr-1"},
		},
		{
			name:    "rejected notifies the requester",
			evtType: event.TypeRequestRejected,
			payload: map[string]interface{}{"requester_id": "emp-7"},
			want:    []string{"emp-7"},
		},
		{
			name:    "procurement review notifies the procurement role",
			evtType: event.TypeStatusChanged,
			payload: map[string]interface{}{"new_status": "PENDING_PROCUREMENT_REVIEW"},
			want:    []string{"role:PROCUREMENT"},
		},
		{
			name:    "delivery confirmation notifies operations",
			evtType: event.TypeStatusChanged,
			payload: map[string]interface{}{"new_status": "AWAITING_DELIVERY_CONFIRMATION"},
			want:    []string{"role:OPERATIONS"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := event.NewEvent(tt.evtType, "req-x", tt.payload)
			assert.Equal(t, tt.want, resolveRecipients(evt))
		})
	}
}
