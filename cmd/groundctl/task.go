package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new task",
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskMoveCmd = &cobra.Command{
	Use:   "move [task-id] [status]",
	Short: "Move a task to a new lifecycle stage",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskMove,
}

var taskAssignCmd = &cobra.Command{
	Use:   "assign [task-id] [agent-id]",
	Short: "Assign a task to an agent",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskAssign,
}

var taskResultCmd = &cobra.Command{
	Use:   "result [task-id]",
	Short: "Record a task's result",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskResult,
}

var taskBoardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the task board",
	RunE:  runTaskBoard,
}

var taskCountsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Show task totals per lifecycle stage",
	RunE:  runTaskCounts,
}

var (
	taskTitle    string
	taskDesc     string
	taskPriority string
	taskCreator  string
	taskAssignee string
	taskTags     string
	taskActor    string
	taskResult   string
)

func init() {
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskShowCmd, taskMoveCmd, taskAssignCmd, taskResultCmd, taskBoardCmd, taskCountsCmd)

	taskAddCmd.Flags().StringVar(&taskTitle, "title", "", "Task title (required)")
	taskAddCmd.Flags().StringVar(&taskDesc, "desc", "", "Task description")
	taskAddCmd.Flags().StringVar(&taskPriority, "priority", "medium", "Priority (low, medium, high, critical)")
	taskAddCmd.Flags().StringVar(&taskCreator, "by", "", "Creating agent (required)")
	taskAddCmd.Flags().StringVar(&taskAssignee, "assign", "", "Assign to agent on creation")
	taskAddCmd.Flags().StringVar(&taskTags, "tags", "", "Comma-separated tags")
	taskAddCmd.MarkFlagRequired("title")
	taskAddCmd.MarkFlagRequired("by")

	taskMoveCmd.Flags().StringVar(&taskActor, "by", "", "Agent performing the move")
	taskAssignCmd.Flags().StringVar(&taskActor, "by", "", "Agent performing the assignment")

	taskResultCmd.Flags().StringVar(&taskResult, "result", "", "Result text (required)")
	taskResultCmd.MarkFlagRequired("result")
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	body := map[string]interface{}{
		"title":       taskTitle,
		"description": taskDesc,
		"priority":    taskPriority,
		"created_by":  taskCreator,
	}
	if taskAssignee != "" {
		body["assigned_to"] = taskAssignee
	}
	if taskTags != "" {
		body["tags"] = strings.Split(taskTags, ",")
	}

	resp, err := apiPost("/tasks", body)
	if err != nil {
		return err
	}

	var task map[string]interface{}
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}

	fmt.Printf("Created task: %s (%s)\n", task["id"], task["status"])
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/tasks")
	if err != nil {
		return err
	}

	var tasks []map[string]interface{}
	if err := json.Unmarshal(resp, &tasks); err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tASSIGNED TO")
	for _, t := range tasks {
		id := truncateID(t["id"].(string))
		title := truncate(t["title"].(string), 40)
		assignedTo := ""
		if at, ok := t["assigned_to"].(string); ok {
			assignedTo = at
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", id, title, t["status"], t["priority"], assignedTo)
	}
	w.Flush()
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/tasks/" + args[0])
	if err != nil {
		return err
	}

	var task map[string]interface{}
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}

	fmt.Printf("ID:          %s\n", task["id"])
	fmt.Printf("Title:       %s\n", task["title"])
	fmt.Printf("Description: %s\n", task["description"])
	fmt.Printf("Status:      %s\n", task["status"])
	fmt.Printf("Priority:    %s\n", task["priority"])
	if at, ok := task["assigned_to"].(string); ok && at != "" {
		fmt.Printf("Assigned To: %s\n", at)
	}
	fmt.Printf("Created By:  %s\n", task["created_by"])
	if result, ok := task["result"].(string); ok && result != "" {
		fmt.Printf("Result:      %s\n", truncate(result, 200))
	}
	fmt.Printf("Created:     %s\n", task["created_at"])
	fmt.Printf("Updated:     %s\n", task["updated_at"])
	if done, ok := task["completed_at"].(string); ok && done != "" {
		fmt.Printf("Completed:   %s\n", done)
	}
	return nil
}

func runTaskMove(cmd *cobra.Command, args []string) error {
	body := map[string]string{
		"status": args[1],
	}
	if taskActor != "" {
		body["agent_id"] = taskActor
	}

	resp, err := apiPost("/tasks/"+args[0]+"/status", body)
	if err != nil {
		return err
	}

	var task map[string]interface{}
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}

	fmt.Printf("Task %s is now %s\n", truncateID(args[0]), task["status"])
	return nil
}

func runTaskAssign(cmd *cobra.Command, args []string) error {
	body := map[string]string{
		"assigned_to": args[1],
	}
	if taskActor != "" {
		body["agent_id"] = taskActor
	}

	resp, err := apiPost("/tasks/"+args[0]+"/assign", body)
	if err != nil {
		return err
	}

	var task map[string]interface{}
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}

	fmt.Printf("Assigned task %s to %s (%s)\n", truncateID(args[0]), args[1], task["status"])
	return nil
}

func runTaskResult(cmd *cobra.Command, args []string) error {
	body := map[string]string{
		"result": taskResult,
	}

	if _, err := apiPost("/tasks/"+args[0]+"/result", body); err != nil {
		return err
	}

	fmt.Printf("Recorded result for task %s\n", truncateID(args[0]))
	return nil
}

func runTaskBoard(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/tasks/board")
	if err != nil {
		return err
	}

	var board map[string][]map[string]interface{}
	if err := json.Unmarshal(resp, &board); err != nil {
		return err
	}

	for _, status := range []string{"inbox", "assigned", "in_progress", "review", "done"} {
		tasks := board[status]
		fmt.Printf("%s (%d)\n", strings.ToUpper(status), len(tasks))
		for _, t := range tasks {
			line := fmt.Sprintf("  %s  %s", truncateID(t["id"].(string)), truncate(t["title"].(string), 50))
			if at, ok := t["assigned_to"].(string); ok && at != "" {
				line += "  @" + at
			}
			fmt.Println(line)
		}
	}
	return nil
}

func runTaskCounts(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/tasks/counts")
	if err != nil {
		return err
	}

	var counts map[string]interface{}
	if err := json.Unmarshal(resp, &counts); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, key := range []string{"total", "queue", "inbox", "assigned", "in_progress", "review", "done"} {
		if v, ok := counts[key].(float64); ok {
			fmt.Fprintf(w, "%s\t%d\n", key, int(v))
		}
	}
	w.Flush()
	return nil
}

// --- Helpers ---

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
