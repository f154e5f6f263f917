// Package models defines the core domain types for groundctl.
package models

import "time"

// AgentStatus represents the presence state of an agent.
type AgentStatus string

const (
	AgentOnline  AgentStatus = "online"
	AgentWorking AgentStatus = "working"
	AgentIdle    AgentStatus = "idle"
	AgentOffline AgentStatus = "offline"
)

// Valid reports whether s is a known agent status.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentOnline, AgentWorking, AgentIdle, AgentOffline:
		return true
	}
	return false
}

// Agent represents a registered actor with presence tracking.
type Agent struct {
	ID                string      `json:"id"`
	AgentID           string      `json:"agent_id"`
	Name              string      `json:"name"`
	Role              string      `json:"role"`
	Description       string      `json:"description"`
	Avatar            string      `json:"avatar,omitempty"`
	Status            AgentStatus `json:"status"`
	CurrentTask       string      `json:"current_task,omitempty"`
	LastHeartbeat     time.Time   `json:"last_heartbeat"`
	HeartbeatInterval int         `json:"heartbeat_interval"`
	CreatedAt         time.Time   `json:"created_at"`
}

// TaskStatus represents the pipeline stage of a task.
type TaskStatus string

const (
	TaskInbox      TaskStatus = "inbox"
	TaskAssigned   TaskStatus = "assigned"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskDone       TaskStatus = "done"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskInbox, TaskAssigned, TaskInProgress, TaskReview, TaskDone:
		return true
	}
	return false
}

// TaskStatuses lists every pipeline stage in board order.
var TaskStatuses = []TaskStatus{TaskInbox, TaskAssigned, TaskInProgress, TaskReview, TaskDone}

// Priority represents task urgency.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Task represents a unit of work on the shared queue.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	CreatedBy   string     `json:"created_by"`
	Tags        []string   `json:"tags,omitempty"`
	Result      string     `json:"result,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// MessageType classifies a message.
type MessageType string

const (
	MessageComment  MessageType = "comment"
	MessageDecision MessageType = "decision"
	MessageQuestion MessageType = "question"
	MessageUpdate   MessageType = "update"
	MessageMention  MessageType = "mention"
	MessageSystem   MessageType = "system"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageComment, MessageDecision, MessageQuestion, MessageUpdate, MessageMention, MessageSystem:
		return true
	}
	return false
}

// Message is an immutable comment/decision posted to a task or thread.
type Message struct {
	ID        string      `json:"id"`
	From      string      `json:"from"`
	To        string      `json:"to,omitempty"`
	TaskID    string      `json:"task_id,omitempty"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	Mentions  []string    `json:"mentions,omitempty"`
	ThreadID  string      `json:"thread_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// NotificationType classifies a notification.
type NotificationType string

const (
	NotifyMention       NotificationType = "mention"
	NotifyTaskAssigned  NotificationType = "task_assigned"
	NotifyTaskUpdate    NotificationType = "task_update"
	NotifyComment       NotificationType = "comment"
	NotifyReviewRequest NotificationType = "review_request"
	NotifySystem        NotificationType = "system"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotifyMention, NotifyTaskAssigned, NotifyTaskUpdate, NotifyComment, NotifyReviewRequest, NotifySystem:
		return true
	}
	return false
}

// Notification targets one agent. The read and delivered flags only ever
// flip from false to true.
type Notification struct {
	ID          string           `json:"id"`
	TargetAgent string           `json:"target_agent"`
	SourceAgent string           `json:"source_agent"`
	Type        NotificationType `json:"type"`
	TaskID      string           `json:"task_id,omitempty"`
	MessageID   string           `json:"message_id,omitempty"`
	Content     string           `json:"content"`
	Read        bool             `json:"read"`
	Delivered   bool             `json:"delivered"`
	DeliveredAt *time.Time       `json:"delivered_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// ActivityType classifies an audit trail entry.
type ActivityType string

const (
	ActivityTaskCreated   ActivityType = "task_created"
	ActivityTaskAssigned  ActivityType = "task_assigned"
	ActivityTaskMoved     ActivityType = "task_moved"
	ActivityTaskCompleted ActivityType = "task_completed"
	ActivityCommentAdded  ActivityType = "comment_added"
	ActivityDecisionMade  ActivityType = "decision_made"
	ActivityAgentOnline   ActivityType = "agent_online"
	ActivityAgentOffline  ActivityType = "agent_offline"
	ActivityHeartbeat     ActivityType = "heartbeat"
	ActivitySystem        ActivityType = "system"
)

// Valid reports whether t is a known activity type.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityTaskCreated, ActivityTaskAssigned, ActivityTaskMoved, ActivityTaskCompleted,
		ActivityCommentAdded, ActivityDecisionMade, ActivityAgentOnline, ActivityAgentOffline,
		ActivityHeartbeat, ActivitySystem:
		return true
	}
	return false
}

// Activity is one append-only audit trail entry. Never mutated after insert.
type Activity struct {
	ID        string       `json:"id"`
	AgentID   string       `json:"agent_id"`
	Type      ActivityType `json:"type"`
	TaskID    string       `json:"task_id,omitempty"`
	Summary   string       `json:"summary"`
	CreatedAt time.Time    `json:"created_at"`
}

// DocumentType classifies a shared document.
type DocumentType string

const (
	DocumentNote      DocumentType = "note"
	DocumentSpec      DocumentType = "spec"
	DocumentReport    DocumentType = "report"
	DocumentReference DocumentType = "reference"
)

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentNote, DocumentSpec, DocumentReport, DocumentReference:
		return true
	}
	return false
}

// Document is a shared note/spec/report, optionally attached to a task.
type Document struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Content      string       `json:"content"`
	Type         DocumentType `json:"type"`
	CreatedBy    string       `json:"created_by"`
	LastEditedBy string       `json:"last_edited_by,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	TaskID       string       `json:"task_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// TaskCounts aggregates tasks per status. Queue counts everything not done.
type TaskCounts struct {
	Total      int `json:"total"`
	Queue      int `json:"queue"`
	Inbox      int `json:"inbox"`
	Assigned   int `json:"assigned"`
	InProgress int `json:"in_progress"`
	Review     int `json:"review"`
	Done       int `json:"done"`
}
