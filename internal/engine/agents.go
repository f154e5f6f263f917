package engine

import (
	"fmt"
	"time"

	"github.com/groundctl/groundctl/internal/models"
)

// RegisterParams are the inputs for Register.
type RegisterParams struct {
	AgentID           string `json:"agent_id"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	Description       string `json:"description"`
	HeartbeatInterval int    `json:"heartbeat_interval"`
	Avatar            string `json:"avatar,omitempty"`
}

// Register upserts an agent keyed by its stable external ID. An existing
// agent has its identity fields overwritten but keeps its presence state; a
// new agent starts offline and gets a registration activity.
func (e *Engine) Register(p RegisterParams) (*models.Agent, error) {
	existing, err := e.store.GetAgentByAgentID(p.AgentID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		existing.Name = p.Name
		existing.Role = p.Role
		existing.Description = p.Description
		existing.HeartbeatInterval = p.HeartbeatInterval
		existing.Avatar = p.Avatar
		if err := e.store.UpdateAgentIdentity(existing); err != nil {
			return nil, err
		}
		e.publish("agent.updated", existing)
		return existing, nil
	}

	agent := &models.Agent{
		AgentID:           p.AgentID,
		Name:              p.Name,
		Role:              p.Role,
		Description:       p.Description,
		Avatar:            p.Avatar,
		Status:            models.AgentOffline,
		LastHeartbeat:     time.Now().UTC(),
		HeartbeatInterval: p.HeartbeatInterval,
	}
	act := &models.Activity{
		AgentID: p.AgentID,
		Type:    models.ActivitySystem,
		Summary: fmt.Sprintf("Agent %s registered", p.Name),
	}
	if err := e.store.CreateAgentUnit(agent, act); err != nil {
		return nil, err
	}
	e.publish("agent.registered", agent)
	e.publish("activity", act)
	return agent, nil
}

// Heartbeat refreshes an agent's liveness. Unknown agents are a no-op.
// Deliberately writes no activity: heartbeats are high-frequency and the
// audit trail only records significant presence changes.
func (e *Engine) Heartbeat(agentID string, status models.AgentStatus) (*models.Agent, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAgentStatus, status)
	}

	agent, err := e.store.GetAgentByAgentID(agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, nil
	}

	if status == "" {
		status = models.AgentOnline
	}
	now := time.Now().UTC()
	if err := e.store.TouchAgent(agentID, status, now); err != nil {
		return nil, err
	}
	agent.Status = status
	agent.LastHeartbeat = now
	return agent, nil
}

// UpdateAgentStatus sets an agent's presence and current task, and appends
// the presence activity. This is the only path that writes a presence
// activity.
func (e *Engine) UpdateAgentStatus(agentID string, status models.AgentStatus, currentTask string) (*models.Agent, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAgentStatus, status)
	}

	agent, err := e.store.GetAgentByAgentID(agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, nil
	}

	actType := models.ActivityAgentOnline
	if status == models.AgentOffline {
		actType = models.ActivityAgentOffline
	}
	act := &models.Activity{
		AgentID: agentID,
		Type:    actType,
		Summary: fmt.Sprintf("%s is now %s", agent.Name, status),
	}
	if err := e.store.UpdateAgentPresenceUnit(agentID, status, currentTask, act); err != nil {
		return nil, err
	}

	agent.Status = status
	agent.CurrentTask = currentTask
	e.publish("agent.status", agent)
	e.publish("activity", act)
	return agent, nil
}

// ListAgents returns all registered agents.
func (e *Engine) ListAgents() ([]models.Agent, error) {
	return e.store.ListAgents()
}

// GetAgent returns the agent with the given external ID, or (nil, nil).
func (e *Engine) GetAgent(agentID string) (*models.Agent, error) {
	return e.store.GetAgentByAgentID(agentID)
}

// ActiveAgents returns every agent whose status is not offline.
func (e *Engine) ActiveAgents() ([]models.Agent, error) {
	return e.store.ActiveAgents()
}
