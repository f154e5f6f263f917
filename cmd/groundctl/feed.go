package main

import (
	"encoding/json"
	"fmt"

	"github.com/groundctl/groundctl/internal/tui"
	"github.com/spf13/cobra"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show the recent activity feed",
	RunE:  runFeed,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live watch UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.New(apiAddr).Run()
	},
}

var (
	feedLimit int
	feedType  string
)

func init() {
	feedCmd.Flags().IntVar(&feedLimit, "limit", 50, "Number of entries to show")
	feedCmd.Flags().StringVar(&feedType, "type", "", "Filter by activity type")
}

func runFeed(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("/activities?limit=%d", feedLimit)
	if feedType != "" {
		url += "&type=" + feedType
	}

	resp, err := apiGet(url)
	if err != nil {
		return err
	}

	var acts []map[string]interface{}
	if err := json.Unmarshal(resp, &acts); err != nil {
		return err
	}

	if len(acts) == 0 {
		fmt.Println("No activity yet")
		return nil
	}

	for _, a := range acts {
		fmt.Printf("%s  %-14s  %s\n", a["created_at"], a["type"], a["summary"])
	}
	return nil
}
