// ABOUTME: Operator CLI that triggers remote project creation over HTTP.
// ABOUTME: Usage: trigger create [project-name [sequence-name]]

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/framegate/framegate/internal/gateway"
)

var serverURL string

func main() {
	root := &cobra.Command{
		Use:           "trigger",
		Short:         "Trigger remote project creation through a framegate server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:3000", "framegate server URL")

	root.AddCommand(newCreateCmd())
	root.AddCommand(newStatusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCreateCmd() *cobra.Command {
	var preset, savePath string

	cmd := &cobra.Command{
		Use:   "create [project-name [sequence-name]]",
		Short: "Create a project (and sequence) in the connected editing application",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := gateway.CreateProjectRequest{
				PresetName: preset,
				SavePath:   savePath,
			}
			if len(args) > 0 {
				req.ProjectName = args[0]
			}
			if len(args) > 1 {
				req.SequenceName = args[1]
			}
			return runCreate(req)
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "", "sequence preset name")
	cmd.Flags().StringVar(&savePath, "save-path", "", "destination directory for the project")
	return cmd
}

func runCreate(req gateway.CreateProjectRequest) error {
	endpoint := serverURL + "/create-project"

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	fmt.Println("Creating project...")
	fmt.Printf("  Server: %s\n", endpoint)

	// The server's own reply window is 30s; leave headroom on top of it.
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Post(endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var result gateway.CreateProjectResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	if !result.Success {
		color.New(color.FgRed, color.Bold).Println("\nFAILED")
		fmt.Printf("  %s\n", result.Error)
		return fmt.Errorf("project creation failed")
	}

	color.New(color.FgGreen, color.Bold).Println("\nSUCCESS")
	fmt.Printf("  Project:  %s\n", result.ProjectName)
	fmt.Printf("  Path:     %s\n", result.ProjectPath)
	fmt.Printf("  Sequence: %s\n", result.SequenceName)
	fmt.Printf("  Preset:   %s\n", result.PresetUsed)
	return nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the server's connected panels and defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Get(serverURL + "/status")
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			var status gateway.StatusResponse
			if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}

			if status.ConnectedClients > 0 {
				color.New(color.FgGreen).Printf("● %d panel(s) connected\n", status.ConnectedClients)
			} else {
				color.New(color.FgYellow).Println("○ no panels connected")
			}
			fmt.Printf("  HTTP port:        %d\n", status.HTTPPort)
			fmt.Printf("  WebSocket port:   %d\n", status.WebsocketPort)
			fmt.Printf("  Default preset:   %s\n", status.DefaultPreset)
			fmt.Printf("  Default sequence: %s\n", status.DefaultSequence)
			fmt.Printf("  Inbox:            %s\n", status.DefaultSavePath)
			return nil
		},
	}
}
