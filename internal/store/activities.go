package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/groundctl/groundctl/internal/models"
)

const activityColumns = `id, agent_id, type, task_id, summary, created_at`

func scanActivity(row interface{ Scan(...interface{}) error }) (*models.Activity, error) {
	a := &models.Activity{}
	var taskID sql.NullString
	err := row.Scan(&a.ID, &a.AgentID, &a.Type, &taskID, &a.Summary, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if taskID.Valid {
		a.TaskID = taskID.String
	}
	return a, nil
}

// insertActivity appends one audit entry. Shared by the composite unit
// methods so derived appends always ride the caller's transaction. There is
// no update or delete path for activities.
func insertActivity(e execer, a *models.Activity) error {
	a.ID = newID()
	a.CreatedAt = time.Now().UTC()

	_, err := e.Exec(
		`INSERT INTO activities (id, agent_id, type, task_id, summary, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.AgentID, a.Type, nullString(a.TaskID), a.Summary, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// CreateActivity appends a standalone audit entry.
func (s *Store) CreateActivity(a *models.Activity) error {
	return insertActivity(s.db, a)
}

// RecentActivities returns the newest activities. When a type filter is
// given, twice the limit is fetched and narrowed client-side, then capped.
func (s *Store) RecentActivities(limit int, typ models.ActivityType) ([]models.Activity, error) {
	fetch := limit
	if typ != "" {
		fetch = limit * 2
	}
	acts, err := s.queryActivities(
		`SELECT `+activityColumns+` FROM activities ORDER BY created_at DESC LIMIT ?`, fetch)
	if err != nil {
		return nil, err
	}
	if typ == "" {
		return acts, nil
	}
	filtered := make([]models.Activity, 0, limit)
	for _, a := range acts {
		if a.Type == typ {
			filtered = append(filtered, a)
			if len(filtered) == limit {
				break
			}
		}
	}
	return filtered, nil
}

// ActivitiesByAgent returns an agent's newest activities.
func (s *Store) ActivitiesByAgent(agentID string, limit int) ([]models.Activity, error) {
	return s.queryActivities(
		`SELECT `+activityColumns+` FROM activities WHERE agent_id = ? ORDER BY created_at DESC LIMIT ?`,
		agentID, limit)
}

// ActivitiesByTask returns every activity touching a task, newest first.
func (s *Store) ActivitiesByTask(taskID string) ([]models.Activity, error) {
	return s.queryActivities(
		`SELECT `+activityColumns+` FROM activities WHERE task_id = ? ORDER BY created_at DESC`, taskID)
}

func (s *Store) queryActivities(query string, args ...interface{}) ([]models.Activity, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var acts []models.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		acts = append(acts, *a)
	}
	return acts, rows.Err()
}
