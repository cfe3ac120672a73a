package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	rootCmd   = &cobra.Command{
		Use:   "fetchd",
		Short: "fetchd CLI - resumable download manager",
		Long:  `A command-line interface for managing resumable HTTP downloads.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
}

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Start a download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		payload := map[string]string{"url": args[0]}
		data, _ := json.Marshal(payload)

		resp, err := http.Post(serverURL+"/api/v1/downloads", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusCreated {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		fmt.Printf("Download started: %s\n", args[0])
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked downloads",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/downloads")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var result struct {
			Downloads []struct {
				URL          string  `json:"url"`
				Name         string  `json:"name"`
				Failed       bool    `json:"failed"`
				Progress     string  `json:"progress"`
				Total        *string `json:"total"`
				Percent      *string `json:"percent"`
				Speed        string  `json:"speed"`
				TimeEstimate *string `json:"time_estimate"`
			} `json:"downloads"`
			Count int `json:"count"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if result.Count == 0 {
			fmt.Println("No downloads tracked.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPROGRESS\tTOTAL\tPERCENT\tSPEED\tETA\tSTATE")
		for _, d := range result.Downloads {
			state := "downloading"
			if d.Failed {
				state = "failed"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				d.Name, d.Progress, strOrDash(d.Total), strOrDash(d.Percent),
				d.Speed, strOrDash(d.TimeEstimate), state)
		}
		w.Flush()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/health")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: server not reachable: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)

		var health struct {
			Status          string `json:"status"`
			Version         string `json:"version"`
			Running         bool   `json:"running"`
			ActiveDownloads int    `json:"active_downloads"`
		}
		if err := json.Unmarshal(body, &health); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Status: %s\n", health.Status)
		fmt.Printf("Version: %s\n", health.Version)
		fmt.Printf("Coordinator running: %v\n", health.Running)
		fmt.Printf("Active downloads: %d\n", health.ActiveDownloads)
	},
}

func strOrDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
