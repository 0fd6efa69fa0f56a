package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clipquery/clipquery/internal/config"
	"github.com/clipquery/clipquery/internal/video"
)

type processResponse struct {
	Success    bool   `json:"success"`
	VideoID    string `json:"video_id"`
	VideoTitle string `json:"video_title"`
	MethodUsed string `json:"method_used"`
	Chapters   []struct {
		Time    string `json:"time"`
		Seconds int    `json:"seconds"`
		Title   string `json:"title"`
	} `json:"chapters"`
	Error string `json:"error"`
}

type answerResponse struct {
	Success    bool   `json:"success"`
	Answer     string `json:"answer"`
	MethodUsed string `json:"method_used"`
	Error      string `json:"error"`
}

// --- process ---

var processCmd = &cobra.Command{
	Use:   "process <url>",
	Short: "Extract and cache a video's transcript and chapters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Processing video...")
		resp, err := client.post(cmd.Context(), "/process-video", map[string]string{"url": args[0]})
		if err != nil {
			return err
		}

		var result processResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("%s", result.Error)
		}

		printSuccess("Processed %q via %s", result.VideoTitle, result.MethodUsed)
		for _, ch := range result.Chapters {
			fmt.Printf("  %s  %s\n", colorize(colorCyan, ch.Time), ch.Title)
		}
		return nil
	},
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <url> <question>",
	Short: "Ask a question about a video's content",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		question := strings.Join(args[1:], " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Answering...")
		resp, err := client.post(cmd.Context(), "/ask-question", map[string]string{
			"url":      url,
			"question": question,
		})
		if err != nil {
			return err
		}

		var result answerResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("%s", result.Error)
		}

		fmt.Println(result.Answer)
		printStatus("Method", "%s", result.MethodUsed)
		return nil
	},
}

// --- summarize ---

var summarizeCmd = &cobra.Command{
	Use:   "summarize <url>",
	Short: "Summarize a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Summarizing...")
		resp, err := client.post(cmd.Context(), "/summarize-video", map[string]string{"url": args[0]})
		if err != nil {
			return err
		}

		var result answerResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("%s", result.Error)
		}

		fmt.Println(result.Answer)
		return nil
	},
}

// --- chapters ---

var chaptersCmd = &cobra.Command{
	Use:   "chapters <url>",
	Short: "Show a video's chapter list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/process-video", map[string]string{"url": args[0]})
		if err != nil {
			return err
		}

		var result processResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("%s", result.Error)
		}

		if len(result.Chapters) == 0 {
			fmt.Println("No chapters available.")
			return nil
		}
		for _, ch := range result.Chapters {
			fmt.Printf("%s  %s\n", colorize(colorCyan, ch.Time), ch.Title)
		}
		return nil
	},
}

// --- transcript ---

var transcriptCmd = &cobra.Command{
	Use:   "transcript <url>",
	Short: "Print a processed video's transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := video.ParseID(args[0])
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/videos/"+string(id)+"/transcript")
		if err != nil {
			return err
		}

		var result struct {
			VideoTitle string          `json:"video_title"`
			Segments   []video.Segment `json:"segments"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		for _, seg := range result.Segments {
			fmt.Printf("[%s] %s\n", seg.StartFormatted(), seg.Text)
		}
		return nil
	},
}

// --- cache ---

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the video cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/cache-stats")
		if err != nil {
			return err
		}

		var stats struct {
			Total   int `json:"total"`
			Ready   int `json:"ready"`
			Pending int `json:"pending"`
			Failed  int `json:"failed"`
		}
		if err := decodeJSON(resp, &stats); err != nil {
			return err
		}

		printStatus("Total", "%d", stats.Total)
		printStatus("Ready", "%d", stats.Ready)
		printStatus("Pending", "%d", stats.Pending)
		printStatus("Failed", "%d", stats.Failed)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached videos",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL cached videos. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/cache")
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Cache cleared")
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().Bool("confirm", false, "confirm cache clear")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
