package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Manage notifications",
}

var notifyInboxCmd = &cobra.Command{
	Use:     "list [agent-id]",
	Aliases: []string{"inbox"},
	Short:   "Show an agent's unread notifications",
	Args:    cobra.ExactArgs(1),
	RunE:    runNotifyInbox,
}

var notifyReadCmd = &cobra.Command{
	Use:   "read [notification-id]",
	Short: "Mark a notification read",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotifyRead,
}

var notifyReadAllCmd = &cobra.Command{
	Use:   "read-all [agent-id]",
	Short: "Mark all of an agent's notifications read",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotifyReadAll,
}

func init() {
	notifyCmd.AddCommand(notifyInboxCmd, notifyReadCmd, notifyReadAllCmd)
}

func runNotifyInbox(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/notifications?agent=" + args[0])
	if err != nil {
		return err
	}

	var notifs []map[string]interface{}
	if err := json.Unmarshal(resp, &notifs); err != nil {
		return err
	}

	if len(notifs) == 0 {
		fmt.Println("No unread notifications")
		return nil
	}

	for _, n := range notifs {
		fmt.Printf("%s  [%s]  from %s: %s\n",
			truncateID(n["id"].(string)), n["type"], n["source_agent"],
			truncate(n["content"].(string), 100))
	}
	return nil
}

func runNotifyRead(cmd *cobra.Command, args []string) error {
	if _, err := apiPost("/notifications/"+args[0]+"/read", nil); err != nil {
		return err
	}
	fmt.Printf("Marked %s read\n", truncateID(args[0]))
	return nil
}

func runNotifyReadAll(cmd *cobra.Command, args []string) error {
	resp, err := apiPost("/notifications/read-all", map[string]string{"agent_id": args[0]})
	if err != nil {
		return err
	}

	var result struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Marked %d notifications read\n", result.Count)
	return nil
}
