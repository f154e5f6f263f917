// Package tui provides the live watch terminal UI for groundctl.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/groundctl/groundctl/internal/models"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")
	cyanColor    = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(cyanColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	agentOnlineStyle = lipgloss.NewStyle().
				Foreground(successColor).
				Bold(true)

	agentOfflineStyle = lipgloss.NewStyle().
				Foreground(errorColor)
)

// App is the watch TUI application model.
type App struct {
	client       *Client
	board        map[models.TaskStatus][]models.Task
	counts       *models.TaskCounts
	agents       []models.Agent
	activities   []models.Activity
	feed         viewport.Model
	width        int
	height       int
	mode         string // "board", "feed", "agents"
	message      string
	daemonOnline bool
}

// New creates a new watch application.
func New(apiAddr string) *App {
	vp := viewport.New(80, 20)
	return &App{
		client: NewClient(apiAddr),
		feed:   vp,
		mode:   "board",
	}
}

// Run starts the watch application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.fetchBoard(),
		a.fetchAgents(),
		a.fetchActivities(),
		a.checkDaemon(),
		a.tickCmd(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit

		case "tab":
			switch a.mode {
			case "board":
				a.mode = "feed"
			case "feed":
				a.mode = "agents"
			default:
				a.mode = "board"
			}

		case "b":
			a.mode = "board"
		case "f":
			a.mode = "feed"
		case "a":
			a.mode = "agents"

		case "up", "k":
			if a.mode == "feed" {
				a.feed.LineUp(1)
			}
		case "down", "j":
			if a.mode == "feed" {
				a.feed.LineDown(1)
			}

		case "r":
			return a, tea.Batch(a.fetchBoard(), a.fetchAgents(), a.fetchActivities())
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.feed.Width = msg.Width
		a.feed.Height = msg.Height - 6

	case boardLoadedMsg:
		a.board = msg.board
		a.counts = msg.counts

	case agentsLoadedMsg:
		a.agents = msg.agents

	case activitiesLoadedMsg:
		a.activities = msg.activities
		a.feed.SetContent(a.renderFeedContent())

	case daemonStatusMsg:
		a.daemonOnline = msg.online

	case tickMsg:
		return a, tea.Batch(
			a.fetchBoard(),
			a.fetchAgents(),
			a.fetchActivities(),
			a.checkDaemon(),
			a.tickCmd(),
		)

	case errMsg:
		a.message = "Error: " + msg.err.Error()
	}

	return a, nil
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	daemonStatus := agentOnlineStyle.Render("● DAEMON")
	if !a.daemonOnline {
		daemonStatus = agentOfflineStyle.Render("○ DAEMON")
	}

	header := titleStyle.Render("groundctl watch")
	header += "  " + daemonStatus
	header += "  " + lipgloss.NewStyle().Foreground(cyanColor).Render(fmt.Sprintf("[%d agents]", len(a.agents)))

	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(a.width, 1)) + "\n")

	contentHeight := a.height - 6
	if contentHeight < 5 {
		contentHeight = 5
	}

	switch a.mode {
	case "board":
		b.WriteString(a.renderBoard(contentHeight))
	case "feed":
		b.WriteString(a.feed.View())
	case "agents":
		b.WriteString(a.renderAgents(contentHeight))
	}

	if a.message != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(errorColor).Render(a.message))
	} else {
		b.WriteString("\n")
	}

	status := fmt.Sprintf(" [%s] Tab:next view | b:board f:feed a:agents | r:refresh | q:quit", a.mode)
	b.WriteString("\n" + statusBarStyle.Width(max(a.width, 1)).Render(status))

	return b.String()
}

func (a *App) renderBoard(height int) string {
	var b strings.Builder

	if a.counts != nil {
		b.WriteString(helpStyle.Render(fmt.Sprintf(
			" %d total | %d in queue | %d done", a.counts.Total, a.counts.Queue, a.counts.Done)) + "\n\n")
	}

	for _, status := range models.TaskStatuses {
		tasks := a.board[status]
		b.WriteString(columnHeaderStyle.Render(fmt.Sprintf(" %s (%d)", strings.ToUpper(string(status)), len(tasks))) + "\n")
		if len(tasks) == 0 {
			b.WriteString(helpStyle.Render("   (empty)") + "\n")
			continue
		}
		for _, t := range tasks {
			line := fmt.Sprintf("   • %s", t.Title)
			if t.AssignedTo != "" {
				line += helpStyle.Render("  @" + t.AssignedTo)
			}
			line += "  " + priorityBadge(t.Priority)
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

func priorityBadge(p models.Priority) string {
	switch p {
	case models.PriorityCritical:
		return lipgloss.NewStyle().Foreground(errorColor).Bold(true).Render("!critical")
	case models.PriorityHigh:
		return lipgloss.NewStyle().Foreground(warningColor).Render("!high")
	case models.PriorityLow:
		return helpStyle.Render("low")
	default:
		return ""
	}
}

func (a *App) renderFeedContent() string {
	var b strings.Builder
	b.WriteString(" Activity Feed\n")
	b.WriteString(" " + strings.Repeat("─", 50) + "\n")
	for _, act := range a.activities {
		ts := act.CreatedAt.Local().Format("15:04:05")
		b.WriteString(fmt.Sprintf(" %s  %-14s  %s\n",
			helpStyle.Render(ts),
			columnHeaderStyle.Render(string(act.Type)),
			act.Summary))
	}
	if len(a.activities) == 0 {
		b.WriteString(helpStyle.Render(" No activity yet") + "\n")
	}
	return b.String()
}

func (a *App) renderAgents(height int) string {
	var b strings.Builder
	b.WriteString(" Agents\n")
	b.WriteString(" " + strings.Repeat("─", 50) + "\n")

	if len(a.agents) == 0 {
		b.WriteString(helpStyle.Render(" No agents registered") + "\n")
		return b.String()
	}

	for _, ag := range a.agents {
		statusStyle := agentOfflineStyle
		switch ag.Status {
		case models.AgentOnline, models.AgentWorking:
			statusStyle = agentOnlineStyle
		case models.AgentIdle:
			statusStyle = lipgloss.NewStyle().Foreground(warningColor)
		}

		line := fmt.Sprintf(" %s %-16s %-12s",
			statusStyle.Render("●"), ag.AgentID, statusStyle.Render(string(ag.Status)))
		if ag.CurrentTask != "" {
			line += helpStyle.Render(" on " + ag.CurrentTask)
		}
		line += helpStyle.Render("  seen " + formatAge(time.Since(ag.LastHeartbeat)))
		b.WriteString(line + "\n")
	}
	return b.String()
}

func formatAge(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh ago", int(d.Hours()))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

type errMsg struct {
	err error
}

type boardLoadedMsg struct {
	board  map[models.TaskStatus][]models.Task
	counts *models.TaskCounts
}

type agentsLoadedMsg struct {
	agents []models.Agent
}

type activitiesLoadedMsg struct {
	activities []models.Activity
}

type daemonStatusMsg struct {
	online bool
}

type tickMsg time.Time

func (a *App) fetchBoard() tea.Cmd {
	return func() tea.Msg {
		board, err := a.client.Board()
		if err != nil {
			return errMsg{err}
		}
		counts, err := a.client.Counts()
		if err != nil {
			return errMsg{err}
		}
		return boardLoadedMsg{board: board, counts: counts}
	}
}

func (a *App) fetchAgents() tea.Cmd {
	return func() tea.Msg {
		agents, err := a.client.Agents()
		if err != nil {
			return errMsg{err}
		}
		return agentsLoadedMsg{agents}
	}
}

func (a *App) fetchActivities() tea.Cmd {
	return func() tea.Msg {
		acts, err := a.client.Activities(50)
		if err != nil {
			return errMsg{err}
		}
		return activitiesLoadedMsg{acts}
	}
}

func (a *App) checkDaemon() tea.Cmd {
	return func() tea.Msg {
		ok, _ := a.client.CheckHealth()
		return daemonStatusMsg{online: ok}
	}
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
