package engine

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundctl/groundctl/internal/models"
	"github.com/groundctl/groundctl/internal/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func TestCreateTask_AssigneeForcesAssignedStatus(t *testing.T) {
	e := newTestEngine(t)

	// An explicit status loses to the assignee rule.
	task, err := e.CreateTask(CreateTaskParams{
		Title:      "Fix bug",
		Priority:   models.PriorityHigh,
		CreatedBy:  "jarvis",
		AssignedTo: "dev1",
		Status:     models.TaskInbox,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskAssigned, task.Status)
}

func TestCreateTask_WithAssigneeSideEffects(t *testing.T) {
	e := newTestEngine(t)

	task, err := e.CreateTask(CreateTaskParams{
		Title:      "Fix bug",
		Priority:   models.PriorityMedium,
		CreatedBy:  "jarvis",
		AssignedTo: "dev1",
	})
	require.NoError(t, err)

	acts, err := e.ActivitiesByTask(task.ID)
	require.NoError(t, err)
	require.Len(t, acts, 2)
	types := []models.ActivityType{acts[0].Type, acts[1].Type}
	assert.Contains(t, types, models.ActivityTaskCreated)
	assert.Contains(t, types, models.ActivityTaskAssigned)

	notifs, err := e.UnreadNotifications("dev1")
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, models.NotifyTaskAssigned, notifs[0].Type)
	assert.Equal(t, "jarvis", notifs[0].SourceAgent)
	assert.Equal(t, task.ID, notifs[0].TaskID)
}

func TestCreateTask_NoAssigneeDefaultsToInbox(t *testing.T) {
	e := newTestEngine(t)

	task, err := e.CreateTask(CreateTaskParams{
		Title:     "Triage me",
		Priority:  models.PriorityLow,
		CreatedBy: "jarvis",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskInbox, task.Status)

	acts, err := e.ActivitiesByTask(task.ID)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, models.ActivityTaskCreated, acts[0].Type)
}

func TestCreateTask_RejectsInvalidPriority(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.CreateTask(CreateTaskParams{
		Title:     "bad",
		Priority:  "urgent",
		CreatedBy: "jarvis",
	})
	require.ErrorIs(t, err, ErrInvalidPriority)

	// Nothing was persisted.
	tasks, err := e.ListTasks()
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestUpdateTaskStatus_DoneStampsCompletedAt(t *testing.T) {
	e := newTestEngine(t)

	task, err := e.CreateTask(CreateTaskParams{
		Title: "Ship it", Priority: models.PriorityHigh, CreatedBy: "jarvis",
	})
	require.NoError(t, err)

	moved, err := e.UpdateTaskStatus(task.ID, models.TaskInProgress, "dev1")
	require.NoError(t, err)
	assert.Nil(t, moved.CompletedAt)

	acts, _ := e.ActivitiesByTask(task.ID)
	assert.Equal(t, models.ActivityTaskMoved, acts[0].Type)

	done, err := e.UpdateTaskStatus(task.ID, models.TaskDone, "dev1")
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)

	acts, _ = e.ActivitiesByTask(task.ID)
	assert.Equal(t, models.ActivityTaskCompleted, acts[0].Type)
}

func TestUpdateTaskStatus_ReopenKeepsCompletedAt(t *testing.T) {
	e := newTestEngine(t)

	task, err := e.CreateTask(CreateTaskParams{
		Title: "Ship it", Priority: models.PriorityHigh, CreatedBy: "jarvis",
	})
	require.NoError(t, err)

	done, err := e.UpdateTaskStatus(task.ID, models.TaskDone, "dev1")
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)

	// Reopening leaves the stored completion stamp alone; the returned
	// entity must agree with the row.
	reopened, err := e.UpdateTaskStatus(task.ID, models.TaskInbox, "dev1")
	require.NoError(t, err)
	require.NotNil(t, reopened.CompletedAt)

	stored, err := e.GetTask(task.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CompletedAt)
	assert.Equal(t, stored.CompletedAt.Unix(), reopened.CompletedAt.Unix())
}

func TestUpdateTaskStatus_ReviewNotifiesCreator(t *testing.T) {
	e := newTestEngine(t)

	task, err := e.CreateTask(CreateTaskParams{
		Title: "Needs eyes", Priority: models.PriorityMedium, CreatedBy: "jarvis", AssignedTo: "dev1",
	})
	require.NoError(t, err)

	// Someone other than the assignee performs the move; the review request
	// is still assignee → creator.
	_, err = e.UpdateTaskStatus(task.ID, models.TaskReview, "dev2")
	require.NoError(t, err)

	notifs, err := e.UnreadNotifications("jarvis")
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, models.NotifyReviewRequest, notifs[0].Type)
	assert.Equal(t, "dev1", notifs[0].SourceAgent)
}

func TestUpdateTaskStatus_UnknownTaskIsNoop(t *testing.T) {
	e := newTestEngine(t)

	task, err := e.UpdateTaskStatus("nope", models.TaskDone, "dev1")
	require.NoError(t, err)
	assert.Nil(t, task)

	acts, err := e.RecentActivities(10, "")
	require.NoError(t, err)
	assert.Empty(t, acts)
}

func TestUpdateTaskStatus_ActorFallback(t *testing.T) {
	e := newTestEngine(t)

	task, _ := e.CreateTask(CreateTaskParams{
		Title: "Orphan", Priority: models.PriorityLow, CreatedBy: "jarvis",
	})

	// No agentId and no assignee: the audit actor is the literal "system".
	_, err := e.UpdateTaskStatus(task.ID, models.TaskInProgress, "")
	require.NoError(t, err)

	acts, _ := e.ActivitiesByTask(task.ID)
	assert.Equal(t, "system", acts[0].AgentID)
}

func TestAssignTask_PromotesInboxOnly(t *testing.T) {
	e := newTestEngine(t)

	inbox, _ := e.CreateTask(CreateTaskParams{
		Title: "From inbox", Priority: models.PriorityLow, CreatedBy: "jarvis",
	})
	assigned, err := e.AssignTask(inbox.ID, "dev1", "jarvis")
	require.NoError(t, err)
	assert.Equal(t, models.TaskAssigned, assigned.Status)

	running, _ := e.CreateTask(CreateTaskParams{
		Title: "In flight", Priority: models.PriorityHigh, CreatedBy: "jarvis", AssignedTo: "dev1",
	})
	_, err = e.UpdateTaskStatus(running.ID, models.TaskInProgress, "dev1")
	require.NoError(t, err)

	// Reassignment does not reset an in-flight task.
	reassigned, err := e.AssignTask(running.ID, "dev2", "jarvis")
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, reassigned.Status)
	assert.Equal(t, "dev2", reassigned.AssignedTo)

	// The new assignee is notified regardless.
	notifs, err := e.UnreadNotifications("dev2")
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, models.NotifyTaskAssigned, notifs[0].Type)
}

func TestSetTaskResult_Silent(t *testing.T) {
	e := newTestEngine(t)

	task, _ := e.CreateTask(CreateTaskParams{
		Title: "Quiet", Priority: models.PriorityLow, CreatedBy: "jarvis",
	})
	before, _ := e.ActivitiesByTask(task.ID)

	updated, err := e.SetTaskResult(task.ID, "all green")
	require.NoError(t, err)
	assert.Equal(t, "all green", updated.Result)

	after, _ := e.ActivitiesByTask(task.ID)
	assert.Len(t, after, len(before))

	got, _ := e.GetTask(task.ID)
	assert.Equal(t, "all green", got.Result)
}

func TestTaskCounts(t *testing.T) {
	e := newTestEngine(t)

	a, _ := e.CreateTask(CreateTaskParams{Title: "a", Priority: models.PriorityLow, CreatedBy: "x"})
	b, _ := e.CreateTask(CreateTaskParams{Title: "b", Priority: models.PriorityLow, CreatedBy: "x", AssignedTo: "dev1"})
	_, _ = e.CreateTask(CreateTaskParams{Title: "c", Priority: models.PriorityLow, CreatedBy: "x"})
	_, err := e.UpdateTaskStatus(a.ID, models.TaskDone, "x")
	require.NoError(t, err)

	counts, err := e.TaskCounts()
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Total)
	assert.Equal(t, 2, counts.Queue)
	assert.Equal(t, 1, counts.Inbox)
	assert.Equal(t, 1, counts.Assigned)
	assert.Equal(t, 1, counts.Done)

	board, err := e.TasksByStatus()
	require.NoError(t, err)
	assert.Len(t, board[models.TaskAssigned], 1)
	assert.Equal(t, b.ID, board[models.TaskAssigned][0].ID)
	assert.Len(t, board[models.TaskDone], 1)
	assert.Empty(t, board[models.TaskReview])
}

func TestSendMessage_MentionFanout(t *testing.T) {
	e := newTestEngine(t)

	msg, err := e.SendMessage(SendMessageParams{
		From:    "jarvis",
		Content: "Ping @alice and @bob, @alice again",
		Type:    models.MessageComment,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "alice"}, msg.Mentions)

	alice, err := e.UnreadNotifications("alice")
	require.NoError(t, err)
	assert.Len(t, alice, 2)

	bob, err := e.UnreadNotifications("bob")
	require.NoError(t, err)
	require.Len(t, bob, 1)
	assert.Equal(t, models.NotifyMention, bob[0].Type)
	assert.Equal(t, msg.ID, bob[0].MessageID)
	assert.Equal(t, "@jarvis mentioned you: Ping @alice and @bob, @alice again", bob[0].Content)
}

func TestSendMessage_NoMentions(t *testing.T) {
	e := newTestEngine(t)

	msg, err := e.SendMessage(SendMessageParams{
		From: "jarvis", Content: "nothing to see", Type: models.MessageUpdate,
	})
	require.NoError(t, err)
	assert.Empty(t, msg.Mentions)

	acts, err := e.RecentActivities(10, "")
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, models.ActivityCommentAdded, acts[0].Type)
	assert.Equal(t, "jarvis: nothing to see", acts[0].Summary)
}

func TestSendMessage_DecisionActivity(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.SendMessage(SendMessageParams{
		From: "jarvis", Content: "we ship on friday", Type: models.MessageDecision,
	})
	require.NoError(t, err)

	acts, _ := e.RecentActivities(10, "")
	require.Len(t, acts, 1)
	assert.Equal(t, models.ActivityDecisionMade, acts[0].Type)
}

func TestSendMessage_Truncation(t *testing.T) {
	e := newTestEngine(t)

	long := strings.Repeat("x", 300)
	_, err := e.SendMessage(SendMessageParams{
		From: "jarvis", Content: "@dev1 " + long, Type: models.MessageComment,
	})
	require.NoError(t, err)

	notifs, _ := e.UnreadNotifications("dev1")
	require.Len(t, notifs, 1)
	want := "@jarvis mentioned you: " + truncate("@dev1 "+long, 200)
	assert.Equal(t, want, notifs[0].Content)
	assert.Len(t, truncate("@dev1 "+long, 200), 200)

	acts, _ := e.RecentActivities(10, "")
	require.Len(t, acts, 1)
	assert.Len(t, acts[0].Summary, len("jarvis: ")+100)
}

func TestSendMessage_ThreadAndTaskQueries(t *testing.T) {
	e := newTestEngine(t)

	task, _ := e.CreateTask(CreateTaskParams{Title: "t", Priority: models.PriorityLow, CreatedBy: "x"})

	_, err := e.SendMessage(SendMessageParams{From: "a", Content: "first", Type: models.MessageComment, TaskID: task.ID, ThreadID: "th1"})
	require.NoError(t, err)
	_, err = e.SendMessage(SendMessageParams{From: "b", Content: "second", Type: models.MessageComment, TaskID: task.ID, ThreadID: "th1"})
	require.NoError(t, err)
	_, err = e.SendMessage(SendMessageParams{From: "c", Content: "elsewhere", Type: models.MessageComment})
	require.NoError(t, err)

	byTask, err := e.MessagesByTask(task.ID)
	require.NoError(t, err)
	require.Len(t, byTask, 2)
	assert.Equal(t, "first", byTask[0].Content) // ascending

	byThread, err := e.MessagesByThread("th1")
	require.NoError(t, err)
	assert.Len(t, byThread, 2)

	recent, err := e.RecentMessages(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "elsewhere", recent[0].Content) // descending
}

func TestMarkAllRead_CountsThenZero(t *testing.T) {
	e := newTestEngine(t)

	for i := 0; i < 3; i++ {
		_, err := e.Notify(NotifyParams{
			TargetAgent: "dev1", SourceAgent: "system",
			Type: models.NotifySystem, Content: "hello",
		})
		require.NoError(t, err)
	}

	n, err := e.MarkAllRead("dev1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = e.MarkAllRead("dev1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMarkDelivered_Idempotent(t *testing.T) {
	e := newTestEngine(t)

	created, err := e.Notify(NotifyParams{
		TargetAgent: "dev1", SourceAgent: "system",
		Type: models.NotifySystem, Content: "ping",
	})
	require.NoError(t, err)
	assert.False(t, created.Delivered)

	first, err := e.MarkDelivered(created.ID)
	require.NoError(t, err)
	require.NotNil(t, first.DeliveredAt)

	second, err := e.MarkDelivered(created.ID)
	require.NoError(t, err)
	assert.Equal(t, first.DeliveredAt.Unix(), second.DeliveredAt.Unix())

	undelivered, err := e.UndeliveredNotifications()
	require.NoError(t, err)
	assert.Empty(t, undelivered)
}

func TestHeartbeat_UnknownAgentIsNoop(t *testing.T) {
	e := newTestEngine(t)

	agent, err := e.Heartbeat("ghost", "")
	require.NoError(t, err)
	assert.Nil(t, agent)

	acts, err := e.RecentActivities(10, "")
	require.NoError(t, err)
	assert.Empty(t, acts)

	agents, err := e.ListAgents()
	require.NoError(t, err)
	assert.Empty(t, agents)
}

func TestHeartbeat_DefaultsToOnlineAndLogsNothing(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Register(RegisterParams{AgentID: "dev1", Name: "Dev One", Role: "coder", HeartbeatInterval: 30})
	require.NoError(t, err)
	before, _ := e.RecentActivities(10, "")

	agent, err := e.Heartbeat("dev1", "")
	require.NoError(t, err)
	assert.Equal(t, models.AgentOnline, agent.Status)

	agent, err = e.Heartbeat("dev1", models.AgentWorking)
	require.NoError(t, err)
	assert.Equal(t, models.AgentWorking, agent.Status)

	after, _ := e.RecentActivities(10, "")
	assert.Len(t, after, len(before))
}

func TestRegister_IdempotentUpsert(t *testing.T) {
	e := newTestEngine(t)

	first, err := e.Register(RegisterParams{AgentID: "dev1", Name: "Dev", Role: "coder", HeartbeatInterval: 30})
	require.NoError(t, err)
	assert.Equal(t, models.AgentOffline, first.Status)

	_, err = e.Heartbeat("dev1", models.AgentWorking)
	require.NoError(t, err)

	// Re-registration overwrites identity but not presence.
	again, err := e.Register(RegisterParams{AgentID: "dev1", Name: "Dev Renamed", Role: "reviewer", HeartbeatInterval: 60})
	require.NoError(t, err)
	assert.Equal(t, "Dev Renamed", again.Name)
	assert.Equal(t, "reviewer", again.Role)

	got, _ := e.GetAgent("dev1")
	assert.Equal(t, models.AgentWorking, got.Status)

	// Only one registration activity total.
	acts, _ := e.RecentActivities(10, models.ActivitySystem)
	assert.Len(t, acts, 1)
}

func TestUpdateAgentStatus_PresenceActivity(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Register(RegisterParams{AgentID: "dev1", Name: "Dev One", Role: "coder", HeartbeatInterval: 30})
	require.NoError(t, err)

	agent, err := e.UpdateAgentStatus("dev1", models.AgentWorking, "task-42")
	require.NoError(t, err)
	assert.Equal(t, "task-42", agent.CurrentTask)

	online, err := e.RecentActivities(10, models.ActivityAgentOnline)
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, "Dev One is now working", online[0].Summary)

	_, err = e.UpdateAgentStatus("dev1", models.AgentOffline, "")
	require.NoError(t, err)
	offline, err := e.RecentActivities(10, models.ActivityAgentOffline)
	require.NoError(t, err)
	assert.Len(t, offline, 1)
}

func TestActiveAgents(t *testing.T) {
	e := newTestEngine(t)

	_, _ = e.Register(RegisterParams{AgentID: "a", Name: "A", Role: "r", HeartbeatInterval: 30})
	_, _ = e.Register(RegisterParams{AgentID: "b", Name: "B", Role: "r", HeartbeatInterval: 30})
	_, err := e.Heartbeat("a", "")
	require.NoError(t, err)

	active, err := e.ActiveAgents()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].AgentID)

	all, err := e.ListAgents()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDocuments_RoundTrip(t *testing.T) {
	e := newTestEngine(t)

	task, _ := e.CreateTask(CreateTaskParams{Title: "t", Priority: models.PriorityLow, CreatedBy: "x"})

	doc, err := e.CreateDocument(CreateDocumentParams{
		Title: "Rollout plan", Content: "step 1", Type: models.DocumentSpec,
		CreatedBy: "jarvis", TaskID: task.ID,
	})
	require.NoError(t, err)

	content := "step 1 and 2"
	updated, err := e.UpdateDocument(doc.ID, UpdateDocumentParams{Content: &content, EditedBy: "dev1"})
	require.NoError(t, err)
	assert.Equal(t, "dev1", updated.LastEditedBy)
	assert.Equal(t, "Rollout plan", updated.Title)

	title := "Rollout plan v2"
	updated, err = e.UpdateDocument(doc.ID, UpdateDocumentParams{Title: &title, EditedBy: "dev1"})
	require.NoError(t, err)
	assert.Equal(t, "Rollout plan v2", updated.Title)
	assert.Equal(t, "step 1 and 2", updated.Content)

	byTask, err := e.DocumentsByTask(task.ID)
	require.NoError(t, err)
	require.Len(t, byTask, 1)
	assert.Equal(t, "step 1 and 2", byTask[0].Content)

	specs, err := e.ListDocuments(models.DocumentSpec)
	require.NoError(t, err)
	assert.Len(t, specs, 1)

	notes, err := e.ListDocuments(models.DocumentNote)
	require.NoError(t, err)
	assert.Empty(t, notes)

	x := "x"
	missing, err := e.UpdateDocument("nope", UpdateDocumentParams{Content: &x, EditedBy: "y"})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateDocument_AppendsCreationActivity(t *testing.T) {
	e := newTestEngine(t)

	task, _ := e.CreateTask(CreateTaskParams{Title: "t", Priority: models.PriorityLow, CreatedBy: "x"})

	_, err := e.CreateDocument(CreateDocumentParams{
		Title: "Incident report", Content: "what happened", Type: models.DocumentReport,
		CreatedBy: "jarvis", TaskID: task.ID,
	})
	require.NoError(t, err)

	acts, err := e.RecentActivities(10, "")
	require.NoError(t, err)
	require.NotEmpty(t, acts)
	assert.Equal(t, models.ActivitySystem, acts[0].Type)
	assert.Equal(t, "jarvis", acts[0].AgentID)
	assert.Equal(t, task.ID, acts[0].TaskID)
	assert.Equal(t, "jarvis created document: Incident report", acts[0].Summary)
}

func TestRecentActivities_TypeNarrowing(t *testing.T) {
	e := newTestEngine(t)

	for i := 0; i < 4; i++ {
		_, err := e.SendMessage(SendMessageParams{From: "a", Content: "c", Type: models.MessageComment})
		require.NoError(t, err)
	}
	_, err := e.SendMessage(SendMessageParams{From: "a", Content: "d", Type: models.MessageDecision})
	require.NoError(t, err)

	decisions, err := e.RecentActivities(10, models.ActivityDecisionMade)
	require.NoError(t, err)
	assert.Len(t, decisions, 1)

	comments, err := e.RecentActivities(2, models.ActivityCommentAdded)
	require.NoError(t, err)
	assert.Len(t, comments, 2)

	_, err = e.RecentActivities(10, "bogus")
	require.ErrorIs(t, err, ErrInvalidActivityType)
}

func TestExtractMentions(t *testing.T) {
	cases := []struct {
		content string
		want    []string
	}{
		{"no mentions here", nil},
		{"hi @alice", []string{"alice"}},
		{"@a @b @a", []string{"a", "b", "a"}},
		{"email not@a_mention? yes it is", []string{"a_mention"}},
		{"@", nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, extractMentions(tc.content), "content: %s", tc.content)
	}
}
