// ABOUTME: Entry point for the framegate relay server.
// ABOUTME: Bridges HTTP create-project callers to connected editing-app panels.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/framegate/framegate/internal/config"
	"github.com/framegate/framegate/internal/gateway"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  __                                       _
 / _|_ __ __ _ _ __ ___   ___  __ _  __ _| |_ ___
| |_| '__/ _' | '_ ' _ \ / _ \/ _' |/ _' | __/ _ \
|  _| | | (_| | | | | | |  __/ (_| | (_| | ||  __/
|_| |_|  \__,_|_| |_| |_|\___|\__, |\__,_|\__\___|
                              |___/
`

// getConfigPath returns the path to the framegate config file.
// Priority: FRAMEGATE_CONFIG env var > XDG_CONFIG_HOME/framegate/framegate.yaml
// > ~/.config/framegate/framegate.yaml
func getConfigPath() string {
	if envPath := os.Getenv("FRAMEGATE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "framegate.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "framegate", "framegate.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: framegate <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the relay server")
		fmt.Println("  init     Create a new config file interactively")
		fmt.Println("  health   Check server health")
		fmt.Println("  status   Show connected panels and defaults")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "status":
		err = runStatus(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("WebSocket: %s\n", cfg.Server.WSAddr)
	green.Print("    ▶ ")
	fmt.Printf("Inbox:     %s\n", cfg.Defaults.SavePath)
	fmt.Println()

	logger.Info("starting framegate",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"ws_addr", cfg.Server.WSAddr,
	)

	gw := gateway.New(cfg, logger)
	return gw.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, err := config.LoadOrDefault(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func runStatus(ctx context.Context) error {
	cfg, err := config.LoadOrDefault(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/status", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var status gateway.StatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	cyan := color.New(color.FgCyan)
	cyan.Println("framegate status")
	cyan.Println("----------------")
	fmt.Printf("Connected panels: %d\n", status.ConnectedClients)
	fmt.Printf("HTTP port:        %d\n", status.HTTPPort)
	fmt.Printf("WebSocket port:   %d\n", status.WebsocketPort)
	fmt.Printf("Default preset:   %s\n", status.DefaultPreset)
	fmt.Printf("Default sequence: %s\n", status.DefaultSequence)
	fmt.Printf("Inbox:            %s\n", status.DefaultSavePath)
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("framegate configuration setup")
	fmt.Println("=============================")
	fmt.Println()

	defaults := config.Default()
	outputFile := prompt(reader, "Config file path", getConfigPath())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", defaults.Server.HTTPAddr)
	wsAddr := prompt(reader, "WebSocket address", defaults.Server.WSAddr)

	fmt.Println("\n--- Creation Defaults ---")
	savePath := prompt(reader, "Inbox directory", defaults.Defaults.SavePath)
	preset := prompt(reader, "Sequence preset", defaults.Defaults.Preset)
	sequence := prompt(reader, "Sequence name", defaults.Defaults.Sequence)

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# framegate configuration\n")
	cfg.WriteString("# Generated by framegate init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", httpAddr))
	cfg.WriteString(fmt.Sprintf("  ws_addr: %q\n", wsAddr))
	cfg.WriteString("\n")

	cfg.WriteString("defaults:\n")
	cfg.WriteString(fmt.Sprintf("  save_path: %q\n", savePath))
	cfg.WriteString(fmt.Sprintf("  preset: %q\n", preset))
	cfg.WriteString(fmt.Sprintf("  sequence: %q\n", sequence))
	cfg.WriteString("\n")

	cfg.WriteString("relay:\n")
	cfg.WriteString("  reply_timeout: \"30s\"\n")
	cfg.WriteString("  reconnect_interval: \"5s\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", logFormat))

	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the server:")
	fmt.Println("  framegate serve")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
