package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/groundctl/groundctl/internal/models"
)

const agentColumns = `id, agent_id, name, role, description, avatar, status, current_task, last_heartbeat, heartbeat_interval, created_at`

func scanAgent(row interface{ Scan(...interface{}) error }) (*models.Agent, error) {
	a := &models.Agent{}
	var avatar, currentTask sql.NullString
	err := row.Scan(&a.ID, &a.AgentID, &a.Name, &a.Role, &a.Description, &avatar,
		&a.Status, &currentTask, &a.LastHeartbeat, &a.HeartbeatInterval, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if avatar.Valid {
		a.Avatar = avatar.String
	}
	if currentTask.Valid {
		a.CurrentTask = currentTask.String
	}
	return a, nil
}

// CreateAgentUnit inserts a new agent together with its registration
// activity in a single transaction.
func (s *Store) CreateAgentUnit(agent *models.Agent, act *models.Activity) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	agent.ID = newID()
	agent.CreatedAt = now

	_, err = tx.Exec(
		`INSERT INTO agents (id, agent_id, name, role, description, avatar, status, current_task, last_heartbeat, heartbeat_interval, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agent.ID, agent.AgentID, agent.Name, agent.Role, agent.Description,
		nullString(agent.Avatar), agent.Status, nullString(agent.CurrentTask),
		agent.LastHeartbeat, agent.HeartbeatInterval, agent.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}

	if err := insertActivity(tx, act); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// UpdateAgentIdentity overwrites the mutable identity fields of an existing
// agent. Presence fields (status, last_heartbeat) are left untouched.
func (s *Store) UpdateAgentIdentity(agent *models.Agent) error {
	_, err := s.db.Exec(
		`UPDATE agents SET name = ?, role = ?, description = ?, avatar = ?, heartbeat_interval = ? WHERE agent_id = ?`,
		agent.Name, agent.Role, agent.Description, nullString(agent.Avatar),
		agent.HeartbeatInterval, agent.AgentID,
	)
	if err != nil {
		return fmt.Errorf("update agent identity: %w", err)
	}
	return nil
}

// TouchAgent records a heartbeat: last_heartbeat is set to now and the
// status is replaced. No derived writes; heartbeats are high-frequency.
func (s *Store) TouchAgent(agentID string, status models.AgentStatus, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE agents SET last_heartbeat = ?, status = ? WHERE agent_id = ?`,
		at, status, agentID,
	)
	if err != nil {
		return fmt.Errorf("touch agent: %w", err)
	}
	return nil
}

// UpdateAgentPresenceUnit sets the agent's status and current task and
// appends the presence activity in the same transaction.
func (s *Store) UpdateAgentPresenceUnit(agentID string, status models.AgentStatus, currentTask string, act *models.Activity) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE agents SET status = ?, current_task = ? WHERE agent_id = ?`,
		status, nullString(currentTask), agentID,
	)
	if err != nil {
		return fmt.Errorf("update agent presence: %w", err)
	}

	if err := insertActivity(tx, act); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetAgentByAgentID retrieves an agent by its stable external key.
// Returns (nil, nil) if no such agent exists.
func (s *Store) GetAgentByAgentID(agentID string) (*models.Agent, error) {
	agent, err := scanAgent(s.db.QueryRow(
		`SELECT `+agentColumns+` FROM agents WHERE agent_id = ?`, agentID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query agent: %w", err)
	}
	return agent, nil
}

// ListAgents returns all agents ordered by registration time.
func (s *Store) ListAgents() ([]models.Agent, error) {
	return s.queryAgents(`SELECT ` + agentColumns + ` FROM agents ORDER BY created_at ASC`)
}

// ActiveAgents returns all agents whose status is not offline.
func (s *Store) ActiveAgents() ([]models.Agent, error) {
	return s.queryAgents(`SELECT `+agentColumns+` FROM agents WHERE status != ? ORDER BY created_at ASC`, models.AgentOffline)
}

func (s *Store) queryAgents(query string, args ...interface{}) ([]models.Agent, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer rows.Close()

	var agents []models.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, *agent)
	}
	return agents, rows.Err()
}
