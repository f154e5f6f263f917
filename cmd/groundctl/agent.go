package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage agents",
}

var agentRegisterCmd = &cobra.Command{
	Use:   "register [agent-id]",
	Short: "Register an agent or refresh its identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentRegister,
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List agents",
	RunE:  runAgentList,
}

var agentHeartbeatCmd = &cobra.Command{
	Use:   "heartbeat [agent-id]",
	Short: "Record an agent heartbeat",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentHeartbeat,
}

var agentStatusCmd = &cobra.Command{
	Use:   "status [agent-id] [status]",
	Short: "Set an agent's presence status",
	Args:  cobra.ExactArgs(2),
	RunE:  runAgentStatus,
}

var (
	agentName      string
	agentRole      string
	agentDesc      string
	agentInterval  int
	heartbeatState string
	agentTask      string
	onlyActive     bool
)

func init() {
	agentCmd.AddCommand(agentRegisterCmd, agentListCmd, agentHeartbeatCmd, agentStatusCmd)

	agentRegisterCmd.Flags().StringVar(&agentName, "name", "", "Display name (required)")
	agentRegisterCmd.Flags().StringVar(&agentRole, "role", "", "Agent role (required)")
	agentRegisterCmd.Flags().StringVar(&agentDesc, "desc", "", "Agent description")
	agentRegisterCmd.Flags().IntVar(&agentInterval, "interval", 60, "Heartbeat interval in seconds")
	agentRegisterCmd.MarkFlagRequired("name")
	agentRegisterCmd.MarkFlagRequired("role")

	agentListCmd.Flags().BoolVar(&onlyActive, "active", false, "Show only agents that are not offline")

	agentHeartbeatCmd.Flags().StringVar(&heartbeatState, "status", "", "Status to report (default online)")

	agentStatusCmd.Flags().StringVar(&agentTask, "task", "", "Task the agent is working on")
}

func runAgentRegister(cmd *cobra.Command, args []string) error {
	body := map[string]interface{}{
		"agent_id":           args[0],
		"name":               agentName,
		"role":               agentRole,
		"description":        agentDesc,
		"heartbeat_interval": agentInterval,
	}

	resp, err := apiPost("/agents", body)
	if err != nil {
		return err
	}

	var agent map[string]interface{}
	if err := json.Unmarshal(resp, &agent); err != nil {
		return err
	}

	fmt.Printf("Registered agent: %s (%s)\n", agent["agent_id"], agent["name"])
	return nil
}

func runAgentList(cmd *cobra.Command, args []string) error {
	url := "/agents"
	if onlyActive {
		url += "?active=1"
	}

	resp, err := apiGet(url)
	if err != nil {
		return err
	}

	var agents []map[string]interface{}
	if err := json.Unmarshal(resp, &agents); err != nil {
		return err
	}

	if len(agents) == 0 {
		fmt.Println("No agents found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AGENT\tNAME\tROLE\tSTATUS\tCURRENT TASK")
	for _, a := range agents {
		currentTask := ""
		if ct, ok := a["current_task"].(string); ok {
			currentTask = truncateID(ct)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			a["agent_id"], a["name"], a["role"], a["status"], currentTask)
	}
	w.Flush()
	return nil
}

func runAgentHeartbeat(cmd *cobra.Command, args []string) error {
	body := map[string]string{}
	if heartbeatState != "" {
		body["status"] = heartbeatState
	}

	resp, err := apiPost("/agents/"+args[0]+"/heartbeat", body)
	if err != nil {
		return err
	}

	var agent map[string]interface{}
	if err := json.Unmarshal(resp, &agent); err != nil {
		return err
	}

	fmt.Printf("Heartbeat recorded for %s (%s)\n", agent["agent_id"], agent["status"])
	return nil
}

func runAgentStatus(cmd *cobra.Command, args []string) error {
	body := map[string]string{
		"status": args[1],
	}
	if agentTask != "" {
		body["current_task"] = agentTask
	}

	resp, err := apiPost("/agents/"+args[0]+"/status", body)
	if err != nil {
		return err
	}

	var agent map[string]interface{}
	if err := json.Unmarshal(resp, &agent); err != nil {
		return err
	}

	fmt.Printf("%s is now %s\n", agent["agent_id"], agent["status"])
	return nil
}
