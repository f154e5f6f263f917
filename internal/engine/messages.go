package engine

import (
	"fmt"
	"regexp"

	"github.com/groundctl/groundctl/internal/models"
)

// mentionPattern matches "@handle" tokens inside message content.
var mentionPattern = regexp.MustCompile(`@(\w+)`)

// extractMentions collects every @handle in content, in encounter order,
// duplicates preserved.
func extractMentions(content string) []string {
	var mentions []string
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		mentions = append(mentions, m[1])
	}
	return mentions
}

// SendMessageParams are the inputs for SendMessage.
type SendMessageParams struct {
	From     string             `json:"from"`
	Content  string             `json:"content"`
	Type     models.MessageType `json:"type"`
	TaskID   string             `json:"task_id,omitempty"`
	To       string             `json:"to,omitempty"`
	ThreadID string             `json:"thread_id,omitempty"`
}

// SendMessage posts a message, fans out one mention notification per
// @handle occurrence, and appends the message activity as one atomic unit.
func (e *Engine) SendMessage(p SendMessageParams) (*models.Message, error) {
	if !p.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMessageType, p.Type)
	}

	mentions := extractMentions(p.Content)
	msg := &models.Message{
		From:     p.From,
		To:       p.To,
		TaskID:   p.TaskID,
		Content:  p.Content,
		Type:     p.Type,
		Mentions: mentions,
		ThreadID: p.ThreadID,
	}

	notifs := make([]models.Notification, 0, len(mentions))
	for _, handle := range mentions {
		notifs = append(notifs, models.Notification{
			TargetAgent: handle,
			SourceAgent: p.From,
			Type:        models.NotifyMention,
			TaskID:      p.TaskID,
			Content:     fmt.Sprintf("@%s mentioned you: %s", p.From, truncate(p.Content, 200)),
		})
	}

	actType := models.ActivityCommentAdded
	if p.Type == models.MessageDecision {
		actType = models.ActivityDecisionMade
	}
	act := &models.Activity{
		AgentID: p.From,
		Type:    actType,
		TaskID:  p.TaskID,
		Summary: fmt.Sprintf("%s: %s", p.From, truncate(p.Content, 100)),
	}

	if err := e.store.CreateMessageUnit(msg, notifs, act); err != nil {
		return nil, err
	}

	e.publish("message", msg)
	for i := range notifs {
		e.publish("notification", &notifs[i])
	}
	e.publish("activity", act)
	return msg, nil
}

// MessagesByTask returns a task's messages oldest first.
func (e *Engine) MessagesByTask(taskID string) ([]models.Message, error) {
	return e.store.MessagesByTask(taskID)
}

// MessagesByThread returns a thread's messages oldest first.
func (e *Engine) MessagesByThread(threadID string) ([]models.Message, error) {
	return e.store.MessagesByThread(threadID)
}

// RecentMessages returns the newest messages, most recent first.
func (e *Engine) RecentMessages(limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	return e.store.RecentMessages(limit)
}
