package engine

import (
	"fmt"
	"time"

	"github.com/groundctl/groundctl/internal/models"
)

// NotifyParams are the inputs for Notify.
type NotifyParams struct {
	TargetAgent string                  `json:"target_agent"`
	SourceAgent string                  `json:"source_agent"`
	Type        models.NotificationType `json:"type"`
	TaskID      string                  `json:"task_id,omitempty"`
	MessageID   string                  `json:"message_id,omitempty"`
	Content     string                  `json:"content"`
}

// Notify creates a notification directly, unread and undelivered. Used for
// system-generated notices alongside the derived creations in the task and
// message paths.
func (e *Engine) Notify(p NotifyParams) (*models.Notification, error) {
	if !p.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNotificationType, p.Type)
	}

	n := &models.Notification{
		TargetAgent: p.TargetAgent,
		SourceAgent: p.SourceAgent,
		Type:        p.Type,
		TaskID:      p.TaskID,
		MessageID:   p.MessageID,
		Content:     p.Content,
	}
	if err := e.store.CreateNotification(n); err != nil {
		return nil, err
	}
	e.publish("notification", n)
	return n, nil
}

// MarkRead flips a notification to read. Idempotent; unknown notifications
// are a no-op.
func (e *Engine) MarkRead(notificationID string) (*models.Notification, error) {
	n, err := e.store.GetNotification(notificationID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	if err := e.store.MarkNotificationRead(notificationID); err != nil {
		return nil, err
	}
	n.Read = true
	return n, nil
}

// MarkDelivered flips a notification to delivered and stamps the delivery
// time. Idempotent: a repeated call keeps the original timestamp.
func (e *Engine) MarkDelivered(notificationID string) (*models.Notification, error) {
	n, err := e.store.GetNotification(notificationID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	if n.Delivered {
		return n, nil
	}
	now := time.Now().UTC()
	if err := e.store.MarkNotificationDelivered(notificationID, now); err != nil {
		return nil, err
	}
	n.Delivered = true
	n.DeliveredAt = &now
	return n, nil
}

// MarkAllRead flips every unread notification for an agent and returns the
// count actually flipped.
func (e *Engine) MarkAllRead(agentID string) (int, error) {
	return e.store.MarkAllNotificationsRead(agentID)
}

// UnreadNotifications returns an agent's unread notifications, newest first.
func (e *Engine) UnreadNotifications(agentID string) ([]models.Notification, error) {
	return e.store.UnreadNotifications(agentID)
}

// UndeliveredNotifications returns every undelivered notification in
// creation order; this drives the outbound delivery sweep.
func (e *Engine) UndeliveredNotifications() ([]models.Notification, error) {
	return e.store.UndeliveredNotifications()
}
