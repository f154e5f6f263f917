package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/groundctl/groundctl/internal/models"
)

const messageColumns = `id, sender, recipient, task_id, content, type, mentions, thread_id, created_at`

func scanMessage(row interface{ Scan(...interface{}) error }) (*models.Message, error) {
	m := &models.Message{}
	var recipient, taskID, mentions, threadID sql.NullString
	err := row.Scan(&m.ID, &m.From, &recipient, &taskID, &m.Content, &m.Type,
		&mentions, &threadID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if recipient.Valid {
		m.To = recipient.String
	}
	if taskID.Valid {
		m.TaskID = taskID.String
	}
	m.Mentions = unmarshalTags(mentions)
	if threadID.Valid {
		m.ThreadID = threadID.String
	}
	return m, nil
}

// CreateMessageUnit inserts a message, the mention notifications derived
// from it, and its activity entry in a single transaction. Each
// notification's message back-reference is filled in from the new message
// ID before insert. Under partial failure none of the fan-out is applied.
func (s *Store) CreateMessageUnit(msg *models.Message, notifs []models.Notification, act *models.Activity) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	msg.ID = newID()
	msg.CreatedAt = time.Now().UTC()

	_, err = tx.Exec(
		`INSERT INTO messages (id, sender, recipient, task_id, content, type, mentions, thread_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.From, nullString(msg.To), nullString(msg.TaskID), msg.Content,
		msg.Type, marshalTags(msg.Mentions), nullString(msg.ThreadID), msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	for i := range notifs {
		notifs[i].MessageID = msg.ID
		if err := insertNotification(tx, &notifs[i]); err != nil {
			return err
		}
	}
	if err := insertActivity(tx, act); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// MessagesByTask returns a task's messages oldest first.
func (s *Store) MessagesByTask(taskID string) ([]models.Message, error) {
	return s.queryMessages(
		`SELECT `+messageColumns+` FROM messages WHERE task_id = ? ORDER BY created_at ASC`, taskID)
}

// MessagesByThread returns a thread's messages oldest first.
func (s *Store) MessagesByThread(threadID string) ([]models.Message, error) {
	return s.queryMessages(
		`SELECT `+messageColumns+` FROM messages WHERE thread_id = ? ORDER BY created_at ASC`, threadID)
}

// RecentMessages returns the newest messages, most recent first.
func (s *Store) RecentMessages(limit int) ([]models.Message, error) {
	return s.queryMessages(
		`SELECT `+messageColumns+` FROM messages ORDER BY created_at DESC LIMIT ?`, limit)
}

func (s *Store) queryMessages(query string, args ...interface{}) ([]models.Message, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, *msg)
	}
	return msgs, rows.Err()
}
