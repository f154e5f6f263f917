package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/groundctl/groundctl/internal/models"
)

const notificationColumns = `id, target_agent, source_agent, type, task_id, message_id, content, read, delivered, delivered_at, created_at`

func scanNotification(row interface{ Scan(...interface{}) error }) (*models.Notification, error) {
	n := &models.Notification{}
	var taskID, messageID sql.NullString
	var deliveredAt sql.NullTime
	err := row.Scan(&n.ID, &n.TargetAgent, &n.SourceAgent, &n.Type, &taskID,
		&messageID, &n.Content, &n.Read, &n.Delivered, &deliveredAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	if taskID.Valid {
		n.TaskID = taskID.String
	}
	if messageID.Valid {
		n.MessageID = messageID.String
	}
	if deliveredAt.Valid {
		n.DeliveredAt = &deliveredAt.Time
	}
	return n, nil
}

// insertNotification writes one notification row. Shared by the composite
// unit methods so derived inserts always ride the caller's transaction.
func insertNotification(e execer, n *models.Notification) error {
	n.ID = newID()
	n.CreatedAt = time.Now().UTC()
	n.Read = false
	n.Delivered = false

	_, err := e.Exec(
		`INSERT INTO notifications (id, target_agent, source_agent, type, task_id, message_id, content, read, delivered, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, ?)`,
		n.ID, n.TargetAgent, n.SourceAgent, n.Type, nullString(n.TaskID),
		nullString(n.MessageID), n.Content, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// CreateNotification inserts a standalone notification (system notices and
// direct external callers).
func (s *Store) CreateNotification(n *models.Notification) error {
	return insertNotification(s.db, n)
}

// GetNotification retrieves a notification by ID. Returns (nil, nil) if it
// does not exist.
func (s *Store) GetNotification(id string) (*models.Notification, error) {
	n, err := scanNotification(s.db.QueryRow(
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query notification: %w", err)
	}
	return n, nil
}

// MarkNotificationRead flips the read flag. Idempotent; there is no path
// back to unread.
func (s *Store) MarkNotificationRead(id string) error {
	_, err := s.db.Exec(`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// MarkNotificationDelivered flips the delivered flag and stamps the
// delivery time. Idempotent; a second call does not move delivered_at.
func (s *Store) MarkNotificationDelivered(id string, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE notifications SET delivered = 1, delivered_at = ? WHERE id = ? AND delivered = 0`,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

// MarkAllNotificationsRead flips every unread notification for an agent and
// returns how many rows actually changed.
func (s *Store) MarkAllNotificationsRead(agentID string) (int, error) {
	res, err := s.db.Exec(
		`UPDATE notifications SET read = 1 WHERE target_agent = ? AND read = 0`, agentID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// UnreadNotifications returns an agent's unread notifications, newest first.
func (s *Store) UnreadNotifications(agentID string) ([]models.Notification, error) {
	return s.queryNotifications(
		`SELECT `+notificationColumns+` FROM notifications WHERE target_agent = ? AND read = 0 ORDER BY created_at DESC`,
		agentID)
}

// UndeliveredNotifications returns every undelivered notification, oldest
// first so the delivery sweep drains in creation order.
func (s *Store) UndeliveredNotifications() ([]models.Notification, error) {
	return s.queryNotifications(
		`SELECT ` + notificationColumns + ` FROM notifications WHERE delivered = 0 ORDER BY created_at ASC`)
}

func (s *Store) queryNotifications(query string, args ...interface{}) ([]models.Notification, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifs []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifs = append(notifs, *n)
	}
	return notifs, rows.Err()
}
