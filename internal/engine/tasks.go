package engine

import (
	"fmt"
	"time"

	"github.com/groundctl/groundctl/internal/models"
	"github.com/groundctl/groundctl/internal/store"
)

// systemActor is the fallback actor when no agent is attributable.
const systemActor = "system"

// CreateTaskParams are the inputs for CreateTask.
type CreateTaskParams struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Priority    models.Priority   `json:"priority"`
	CreatedBy   string            `json:"created_by"`
	AssignedTo  string            `json:"assigned_to,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Status      models.TaskStatus `json:"status,omitempty"`
}

// CreateTask creates a task and its mandated side effects as one atomic
// unit. An assignee forces status assigned regardless of any explicit
// status, and additionally yields a task_assigned activity and a
// notification to the assignee.
func (e *Engine) CreateTask(p CreateTaskParams) (*models.Task, error) {
	if !p.Priority.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, p.Priority)
	}
	if p.Status != "" && !p.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTaskStatus, p.Status)
	}

	status := p.Status
	if p.AssignedTo != "" {
		status = models.TaskAssigned
	} else if status == "" {
		status = models.TaskInbox
	}

	task := &models.Task{
		Title:       p.Title,
		Description: p.Description,
		Status:      status,
		Priority:    p.Priority,
		AssignedTo:  p.AssignedTo,
		CreatedBy:   p.CreatedBy,
		Tags:        p.Tags,
	}

	acts := []models.Activity{{
		AgentID: p.CreatedBy,
		Type:    models.ActivityTaskCreated,
		Summary: fmt.Sprintf("%s created task: %s", p.CreatedBy, p.Title),
	}}
	var notifs []models.Notification
	if p.AssignedTo != "" {
		acts = append(acts, models.Activity{
			AgentID: p.CreatedBy,
			Type:    models.ActivityTaskAssigned,
			Summary: fmt.Sprintf("%s assigned %q to %s", p.CreatedBy, p.Title, p.AssignedTo),
		})
		notifs = append(notifs, models.Notification{
			TargetAgent: p.AssignedTo,
			SourceAgent: p.CreatedBy,
			Type:        models.NotifyTaskAssigned,
			Content:     fmt.Sprintf("You have been assigned: %s", p.Title),
		})
	}

	if err := e.store.CreateTaskUnit(task, acts, notifs); err != nil {
		return nil, err
	}

	e.publish("task.created", task)
	for i := range acts {
		e.publish("activity", &acts[i])
	}
	for i := range notifs {
		e.publish("notification", &notifs[i])
	}
	return task, nil
}

// UpdateTaskStatus moves a task to the given status. Any explicit status is
// accepted; there is no transition graph. Moving to done stamps the
// completion time; moving an assigned task to review notifies the creator.
// Unknown tasks are a no-op.
func (e *Engine) UpdateTaskStatus(taskID string, status models.TaskStatus, agentID string) (*models.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTaskStatus, status)
	}

	task, err := e.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}

	patch := store.TaskPatch{Status: &status}
	if status == models.TaskDone {
		now := time.Now().UTC()
		patch.CompletedAt = &now
	}

	actor := agentID
	if actor == "" {
		actor = task.AssignedTo
	}
	if actor == "" {
		actor = systemActor
	}
	actType := models.ActivityTaskMoved
	if status == models.TaskDone {
		actType = models.ActivityTaskCompleted
	}
	acts := []models.Activity{{
		AgentID: actor,
		Type:    actType,
		Summary: fmt.Sprintf("%s moved %q to %s", actor, task.Title, status),
	}}

	// The review request goes from the assignee to the creator no matter
	// who performed the move.
	var notifs []models.Notification
	if task.AssignedTo != "" && status == models.TaskReview {
		notifs = append(notifs, models.Notification{
			TargetAgent: task.CreatedBy,
			SourceAgent: task.AssignedTo,
			Type:        models.NotifyReviewRequest,
			Content:     fmt.Sprintf("%q is ready for review", task.Title),
		})
	}

	if err := e.store.UpdateTaskUnit(taskID, patch, acts, notifs); err != nil {
		return nil, err
	}

	task.Status = status
	if patch.CompletedAt != nil {
		task.CompletedAt = patch.CompletedAt
	}
	e.publish("task.updated", task)
	for i := range acts {
		e.publish("activity", &acts[i])
	}
	for i := range notifs {
		e.publish("notification", &notifs[i])
	}
	return task, nil
}

// AssignTask sets the assignee. Status is promoted inbox → assigned only; a
// task already in flight keeps its stage. The new assignee is always
// notified, whether or not the status changed. Unknown tasks are a no-op.
func (e *Engine) AssignTask(taskID, assignedTo, agentID string) (*models.Task, error) {
	task, err := e.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}

	status := task.Status
	if status == models.TaskInbox {
		status = models.TaskAssigned
	}
	patch := store.TaskPatch{Status: &status, AssignedTo: &assignedTo}

	assigner := agentID
	if assigner == "" {
		assigner = systemActor
	}
	acts := []models.Activity{{
		AgentID: assigner,
		Type:    models.ActivityTaskAssigned,
		Summary: fmt.Sprintf("%s assigned %q to %s", assigner, task.Title, assignedTo),
	}}
	notifs := []models.Notification{{
		TargetAgent: assignedTo,
		SourceAgent: assigner,
		Type:        models.NotifyTaskAssigned,
		Content:     fmt.Sprintf("You have been assigned: %s", task.Title),
	}}

	if err := e.store.UpdateTaskUnit(taskID, patch, acts, notifs); err != nil {
		return nil, err
	}

	task.Status = status
	task.AssignedTo = assignedTo
	e.publish("task.updated", task)
	e.publish("activity", &acts[0])
	e.publish("notification", &notifs[0])
	return task, nil
}

// SetTaskResult attaches result text to a task. No activity, no
// notification: results may be edited at any stage without audit noise.
// Unknown tasks are a no-op.
func (e *Engine) SetTaskResult(taskID, result string) (*models.Task, error) {
	task, err := e.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}

	if err := e.store.UpdateTaskUnit(taskID, store.TaskPatch{Result: &result}, nil, nil); err != nil {
		return nil, err
	}
	task.Result = result
	return task, nil
}

// ListTasks returns all tasks, newest first.
func (e *Engine) ListTasks() ([]models.Task, error) {
	return e.store.ListTasks()
}

// GetTask returns a task by ID, or (nil, nil).
func (e *Engine) GetTask(taskID string) (*models.Task, error) {
	return e.store.GetTask(taskID)
}

// TasksByStatus projects all tasks into their board columns.
func (e *Engine) TasksByStatus() (map[models.TaskStatus][]models.Task, error) {
	tasks, err := e.store.ListTasks()
	if err != nil {
		return nil, err
	}
	board := make(map[models.TaskStatus][]models.Task, len(models.TaskStatuses))
	for _, status := range models.TaskStatuses {
		board[status] = []models.Task{}
	}
	for _, t := range tasks {
		board[t.Status] = append(board[t.Status], t)
	}
	return board, nil
}

// TasksByAssignee returns an agent's tasks, optionally narrowed by status.
func (e *Engine) TasksByAssignee(agentID string, status models.TaskStatus) ([]models.Task, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTaskStatus, status)
	}
	return e.store.TasksByAssignee(agentID, status)
}

// TaskCounts aggregates tasks per status plus the queue (non-done) count.
func (e *Engine) TaskCounts() (*models.TaskCounts, error) {
	return e.store.CountTasksByStatus()
}
