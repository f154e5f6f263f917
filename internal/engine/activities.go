package engine

import (
	"fmt"

	"github.com/groundctl/groundctl/internal/models"
)

const defaultActivityLimit = 50

// RecordActivity appends an audit entry directly. Activities are
// append-only; there is no update or delete operation anywhere.
func (e *Engine) RecordActivity(agentID string, typ models.ActivityType, taskID, summary string) (*models.Activity, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidActivityType, typ)
	}

	act := &models.Activity{
		AgentID: agentID,
		Type:    typ,
		TaskID:  taskID,
		Summary: summary,
	}
	if err := e.store.CreateActivity(act); err != nil {
		return nil, err
	}
	e.publish("activity", act)
	return act, nil
}

// RecentActivities returns the newest audit entries, optionally narrowed to
// one type.
func (e *Engine) RecentActivities(limit int, typ models.ActivityType) ([]models.Activity, error) {
	if typ != "" && !typ.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidActivityType, typ)
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	return e.store.RecentActivities(limit, typ)
}

// ActivitiesByAgent returns an agent's newest audit entries.
func (e *Engine) ActivitiesByAgent(agentID string, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	return e.store.ActivitiesByAgent(agentID, limit)
}

// ActivitiesByTask returns every audit entry touching a task.
func (e *Engine) ActivitiesByTask(taskID string) ([]models.Activity, error) {
	return e.store.ActivitiesByTask(taskID)
}
