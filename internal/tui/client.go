package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/groundctl/groundctl/internal/models"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// Client wraps HTTP calls to the groundctl API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client with timeout
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
}

func (c *Client) get(path string, out interface{}) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s", string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Board fetches tasks grouped by lifecycle column
func (c *Client) Board() (map[models.TaskStatus][]models.Task, error) {
	var board map[models.TaskStatus][]models.Task
	if err := c.get("/tasks/board", &board); err != nil {
		return nil, err
	}
	return board, nil
}

// Counts fetches the task totals per column
func (c *Client) Counts() (*models.TaskCounts, error) {
	var counts models.TaskCounts
	if err := c.get("/tasks/counts", &counts); err != nil {
		return nil, err
	}
	return &counts, nil
}

// Agents fetches all registered agents
func (c *Client) Agents() ([]models.Agent, error) {
	var agents []models.Agent
	if err := c.get("/agents", &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// Activities fetches the most recent activity entries
func (c *Client) Activities(limit int) ([]models.Activity, error) {
	var acts []models.Activity
	if err := c.get("/activities?limit="+strconv.Itoa(limit), &acts); err != nil {
		return nil, err
	}
	return acts, nil
}

// CheckHealth checks if the daemon is healthy
func (c *Client) CheckHealth() (bool, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}

	var health struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return false, err
	}
	return health.OK, nil
}
