package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var msgCmd = &cobra.Command{
	Use:   "msg",
	Short: "Send and read messages",
}

var msgSendCmd = &cobra.Command{
	Use:   "send [content]",
	Short: "Post a message; @mentions notify the named agents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMsgSend,
}

var msgListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recent messages",
	RunE:  runMsgList,
}

var (
	msgFrom    string
	msgType    string
	msgTaskID  string
	msgTo      string
	msgThread  string
	msgLimit   int
	listThread string
)

func init() {
	msgCmd.AddCommand(msgSendCmd, msgListCmd)

	msgSendCmd.Flags().StringVar(&msgFrom, "from", "", "Sending agent (required)")
	msgSendCmd.Flags().StringVar(&msgType, "type", "comment", "Message type (comment, decision, question, update, mention, system)")
	msgSendCmd.Flags().StringVar(&msgTaskID, "task", "", "Related task id")
	msgSendCmd.Flags().StringVar(&msgTo, "to", "", "Direct recipient")
	msgSendCmd.Flags().StringVar(&msgThread, "thread", "", "Thread id")
	msgSendCmd.MarkFlagRequired("from")

	msgListCmd.Flags().IntVar(&msgLimit, "limit", 20, "Number of messages to show")
	msgListCmd.Flags().StringVar(&listThread, "thread", "", "Show a single thread instead")
}

func runMsgSend(cmd *cobra.Command, args []string) error {
	body := map[string]interface{}{
		"from":    msgFrom,
		"content": strings.Join(args, " "),
		"type":    msgType,
	}
	if msgTaskID != "" {
		body["task_id"] = msgTaskID
	}
	if msgTo != "" {
		body["to"] = msgTo
	}
	if msgThread != "" {
		body["thread_id"] = msgThread
	}

	resp, err := apiPost("/messages", body)
	if err != nil {
		return err
	}

	var msg map[string]interface{}
	if err := json.Unmarshal(resp, &msg); err != nil {
		return err
	}

	fmt.Printf("Sent message %s\n", truncateID(msg["id"].(string)))
	if mentions, ok := msg["mentions"].([]interface{}); ok && len(mentions) > 0 {
		names := make([]string, len(mentions))
		for i, m := range mentions {
			names[i] = fmt.Sprint(m)
		}
		fmt.Printf("Notified: %s\n", strings.Join(names, ", "))
	}
	return nil
}

func runMsgList(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("/messages?limit=%d", msgLimit)
	if listThread != "" {
		url = "/messages?thread_id=" + listThread
	}

	resp, err := apiGet(url)
	if err != nil {
		return err
	}

	var msgs []map[string]interface{}
	if err := json.Unmarshal(resp, &msgs); err != nil {
		return err
	}

	if len(msgs) == 0 {
		fmt.Println("No messages found")
		return nil
	}

	for _, m := range msgs {
		from := m["from"]
		content := truncate(m["content"].(string), 120)
		fmt.Printf("[%s] %s: %s\n", m["type"], from, content)
	}
	return nil
}
