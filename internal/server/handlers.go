package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/groundctl/groundctl/internal/engine"
	"github.com/groundctl/groundctl/internal/models"
)

// splitPath returns the id and trailing action from a request path like
// /tasks/{id}/{action}.
func splitPath(path, prefix string) (id, action string) {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.SplitN(rest, "/", 2)
	id = parts[0]
	if len(parts) > 1 {
		action = parts[1]
	}
	return id, action
}

// --- Agent Handlers ---

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var (
			agents []models.Agent
			err    error
		)
		if r.URL.Query().Get("active") != "" {
			agents, err = s.engine.ActiveAgents()
		} else {
			agents, err = s.engine.ListAgents()
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, agents)

	case http.MethodPost:
		var p engine.RegisterParams
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		agent, err := s.engine.Register(p)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, agent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type heartbeatRequest struct {
	Status models.AgentStatus `json:"status,omitempty"`
}

type agentStatusRequest struct {
	Status      models.AgentStatus `json:"status"`
	CurrentTask string             `json:"current_task,omitempty"`
}

func (s *Server) handleAgentByID(w http.ResponseWriter, r *http.Request) {
	agentID, action := splitPath(r.URL.Path, "/agents/")
	if agentID == "" {
		http.Error(w, "agent id required", http.StatusBadRequest)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		agent, err := s.engine.GetAgent(agentID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if agent == nil {
			http.Error(w, "agent not found", http.StatusNotFound)
			return
		}
		s.writeJSON(w, http.StatusOK, agent)

	case action == "heartbeat" && r.Method == http.MethodPost:
		var req heartbeatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		agent, err := s.engine.Heartbeat(agentID, req.Status)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if agent == nil {
			http.Error(w, "agent not found", http.StatusNotFound)
			return
		}
		s.writeJSON(w, http.StatusOK, agent)

	case action == "status" && r.Method == http.MethodPost:
		var req agentStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		agent, err := s.engine.UpdateAgentStatus(agentID, req.Status, req.CurrentTask)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if agent == nil {
			http.Error(w, "agent not found", http.StatusNotFound)
			return
		}
		s.writeJSON(w, http.StatusOK, agent)

	case action == "tasks" && r.Method == http.MethodGet:
		tasks, err := s.engine.TasksByAssignee(agentID, models.TaskStatus(r.URL.Query().Get("status")))
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, tasks)

	case action == "notifications" && r.Method == http.MethodGet:
		notifs, err := s.engine.UnreadNotifications(agentID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, notifs)

	case action == "activities" && r.Method == http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		acts, err := s.engine.ActivitiesByAgent(agentID, limit)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, acts)

	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// --- Task Handlers ---

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tasks, err := s.engine.ListTasks()
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, tasks)

	case http.MethodPost:
		var p engine.CreateTaskParams
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		task, err := s.engine.CreateTask(p)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, task)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type taskStatusRequest struct {
	Status  models.TaskStatus `json:"status"`
	AgentID string            `json:"agent_id,omitempty"`
}

type taskAssignRequest struct {
	AssignedTo string `json:"assigned_to"`
	AgentID    string `json:"agent_id,omitempty"`
}

type taskResultRequest struct {
	Result string `json:"result"`
}

func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	taskID, action := splitPath(r.URL.Path, "/tasks/")
	if taskID == "" {
		http.Error(w, "task id required", http.StatusBadRequest)
		return
	}

	// Board and counts projections live under /tasks/ as reserved names.
	if r.Method == http.MethodGet && action == "" {
		switch taskID {
		case "board":
			board, err := s.engine.TasksByStatus()
			if err != nil {
				s.writeError(w, err)
				return
			}
			s.writeJSON(w, http.StatusOK, board)
			return
		case "counts":
			counts, err := s.engine.TaskCounts()
			if err != nil {
				s.writeError(w, err)
				return
			}
			s.writeJSON(w, http.StatusOK, counts)
			return
		}
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		task, err := s.engine.GetTask(taskID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if task == nil {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		s.writeJSON(w, http.StatusOK, task)

	case action == "status" && r.Method == http.MethodPost:
		var req taskStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		task, err := s.engine.UpdateTaskStatus(taskID, req.Status, req.AgentID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if task == nil {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		s.writeJSON(w, http.StatusOK, task)

	case action == "assign" && r.Method == http.MethodPost:
		var req taskAssignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		task, err := s.engine.AssignTask(taskID, req.AssignedTo, req.AgentID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if task == nil {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		s.writeJSON(w, http.StatusOK, task)

	case action == "result" && r.Method == http.MethodPost:
		var req taskResultRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		task, err := s.engine.SetTaskResult(taskID, req.Result)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if task == nil {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		s.writeJSON(w, http.StatusOK, task)

	case action == "messages" && r.Method == http.MethodGet:
		msgs, err := s.engine.MessagesByTask(taskID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, msgs)

	case action == "activities" && r.Method == http.MethodGet:
		acts, err := s.engine.ActivitiesByTask(taskID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, acts)

	case action == "documents" && r.Method == http.MethodGet:
		docs, err := s.engine.DocumentsByTask(taskID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, docs)

	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// --- Message Handlers ---

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		if threadID := q.Get("thread_id"); threadID != "" {
			msgs, err := s.engine.MessagesByThread(threadID)
			if err != nil {
				s.writeError(w, err)
				return
			}
			s.writeJSON(w, http.StatusOK, msgs)
			return
		}
		limit, _ := strconv.Atoi(q.Get("limit"))
		msgs, err := s.engine.RecentMessages(limit)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, msgs)

	case http.MethodPost:
		var p engine.SendMessageParams
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		msg, err := s.engine.SendMessage(p)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, msg)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// --- Notification Handlers ---

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		if q.Get("undelivered") != "" {
			notifs, err := s.engine.UndeliveredNotifications()
			if err != nil {
				s.writeError(w, err)
				return
			}
			s.writeJSON(w, http.StatusOK, notifs)
			return
		}
		agentID := q.Get("agent")
		if agentID == "" {
			http.Error(w, "agent or undelivered query required", http.StatusBadRequest)
			return
		}
		notifs, err := s.engine.UnreadNotifications(agentID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, notifs)

	case http.MethodPost:
		var p engine.NotifyParams
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		n, err := s.engine.Notify(p)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, n)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type readAllRequest struct {
	AgentID string `json:"agent_id"`
}

type readAllResponse struct {
	Count int `json:"count"`
}

func (s *Server) handleNotificationByID(w http.ResponseWriter, r *http.Request) {
	id, action := splitPath(r.URL.Path, "/notifications/")

	if id == "read-all" && r.Method == http.MethodPost {
		var req readAllRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		count, err := s.engine.MarkAllRead(req.AgentID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, readAllResponse{Count: count})
		return
	}

	if id == "" {
		http.Error(w, "notification id required", http.StatusBadRequest)
		return
	}

	switch {
	case action == "read" && r.Method == http.MethodPost:
		n, err := s.engine.MarkRead(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if n == nil {
			http.Error(w, "notification not found", http.StatusNotFound)
			return
		}
		s.writeJSON(w, http.StatusOK, n)

	case action == "delivered" && r.Method == http.MethodPost:
		n, err := s.engine.MarkDelivered(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if n == nil {
			http.Error(w, "notification not found", http.StatusNotFound)
			return
		}
		s.writeJSON(w, http.StatusOK, n)

	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// --- Activity Handlers ---

type createActivityRequest struct {
	AgentID string              `json:"agent_id"`
	Type    models.ActivityType `json:"type"`
	TaskID  string              `json:"task_id,omitempty"`
	Summary string              `json:"summary"`
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		acts, err := s.engine.RecentActivities(limit, models.ActivityType(q.Get("type")))
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, acts)

	case http.MethodPost:
		var req createActivityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		act, err := s.engine.RecordActivity(req.AgentID, req.Type, req.TaskID, req.Summary)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, act)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// --- Document Handlers ---

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		docs, err := s.engine.ListDocuments(models.DocumentType(r.URL.Query().Get("type")))
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, docs)

	case http.MethodPost:
		var p engine.CreateDocumentParams
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		doc, err := s.engine.CreateDocument(p)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, doc)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDocumentByID(w http.ResponseWriter, r *http.Request) {
	id, action := splitPath(r.URL.Path, "/documents/")
	if id == "" || action != "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, err := s.engine.GetDocument(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if doc == nil {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		s.writeJSON(w, http.StatusOK, doc)

	case http.MethodPost:
		var p engine.UpdateDocumentParams
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		doc, err := s.engine.UpdateDocument(id, p)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if doc == nil {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		s.writeJSON(w, http.StatusOK, doc)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
