package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/groundctl/groundctl/internal/models"
)

const taskColumns = `id, title, description, status, priority, assigned_to, created_by, tags, result, created_at, updated_at, completed_at`

func scanTask(row interface{ Scan(...interface{}) error }) (*models.Task, error) {
	t := &models.Task{}
	var assignedTo, tags, result sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&assignedTo, &t.CreatedBy, &tags, &result, &t.CreatedAt, &t.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if assignedTo.Valid {
		t.AssignedTo = assignedTo.String
	}
	t.Tags = unmarshalTags(tags)
	if result.Valid {
		t.Result = result.String
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, nil
}

// TaskPatch describes a partial task update. Nil fields are left unchanged.
type TaskPatch struct {
	Status      *models.TaskStatus
	AssignedTo  *string
	Result      *string
	CompletedAt *time.Time
}

// CreateTaskUnit inserts a task together with its derived activities and
// notifications in a single transaction. On any failure nothing is
// persisted.
func (s *Store) CreateTaskUnit(task *models.Task, acts []models.Activity, notifs []models.Notification) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	task.ID = newID()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err = tx.Exec(
		`INSERT INTO tasks (id, title, description, status, priority, assigned_to, created_by, tags, result, created_at, updated_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, task.Description, task.Status, task.Priority,
		nullString(task.AssignedTo), task.CreatedBy, marshalTags(task.Tags),
		nullString(task.Result), task.CreatedAt, task.UpdatedAt, nullTime(task.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	for i := range acts {
		acts[i].TaskID = task.ID
		if err := insertActivity(tx, &acts[i]); err != nil {
			return err
		}
	}
	for i := range notifs {
		notifs[i].TaskID = task.ID
		if err := insertNotification(tx, &notifs[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// UpdateTaskUnit applies a partial update to a task and appends the derived
// activities and notifications in the same transaction.
func (s *Store) UpdateTaskUnit(taskID string, patch TaskPatch, acts []models.Activity, notifs []models.Notification) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE tasks SET updated_at = ?`
	args := []interface{}{time.Now().UTC()}
	if patch.Status != nil {
		query += `, status = ?`
		args = append(args, *patch.Status)
	}
	if patch.AssignedTo != nil {
		query += `, assigned_to = ?`
		args = append(args, nullString(*patch.AssignedTo))
	}
	if patch.Result != nil {
		query += `, result = ?`
		args = append(args, *patch.Result)
	}
	if patch.CompletedAt != nil {
		query += `, completed_at = ?`
		args = append(args, *patch.CompletedAt)
	}
	query += ` WHERE id = ?`
	args = append(args, taskID)

	if _, err := tx.Exec(query, args...); err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	for i := range acts {
		acts[i].TaskID = taskID
		if err := insertActivity(tx, &acts[i]); err != nil {
			return err
		}
	}
	for i := range notifs {
		notifs[i].TaskID = taskID
		if err := insertNotification(tx, &notifs[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID. Returns (nil, nil) if it does not exist.
func (s *Store) GetTask(id string) (*models.Task, error) {
	task, err := scanTask(s.db.QueryRow(
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return task, nil
}

// ListTasks returns all tasks, newest first.
func (s *Store) ListTasks() ([]models.Task, error) {
	return s.queryTasks(`SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC`)
}

// TasksByAssignee returns tasks assigned to the given agent, optionally
// narrowed to one status.
func (s *Store) TasksByAssignee(agentID string, status models.TaskStatus) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE assigned_to = ?`
	args := []interface{}{agentID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	return s.queryTasks(query, args...)
}

// CountTasksByStatus aggregates task counts per status. The queue count is
// every task not yet done.
func (s *Store) CountTasksByStatus() (*models.TaskCounts, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	defer rows.Close()

	counts := &models.TaskCounts{}
	for rows.Next() {
		var status models.TaskStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts.Total += n
		switch status {
		case models.TaskInbox:
			counts.Inbox = n
		case models.TaskAssigned:
			counts.Assigned = n
		case models.TaskInProgress:
			counts.InProgress = n
		case models.TaskReview:
			counts.Review = n
		case models.TaskDone:
			counts.Done = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	counts.Queue = counts.Total - counts.Done
	return counts, nil
}

func (s *Store) queryTasks(query string, args ...interface{}) ([]models.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}
