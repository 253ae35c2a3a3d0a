// Package main implements the scribectl CLI for manual operations
// against the scribed HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the scribed HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scribectl",
	Short: "CLI for scribed HTTP server operations",
	Long: `scribectl is a command-line interface for interacting with the scribed server.
It provides commands for capturing candidate messages, previewing redaction,
managing the review queue, and checking server health.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9090", "scribed server URL")
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(scrubCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(reviewCmd)
}

var (
	captureUser    string
	captureChannel string
	captureSource  string
)

// captureCmd sends a message through the capture pipeline
var captureCmd = &cobra.Command{
	Use:   "capture [file]",
	Short: "Run a message through the capture pipeline",
	Long: `Run a message from a file or stdin through the scribed capture pipeline.

Examples:
  # Capture a message from a file
  scribectl capture message.txt

  # Capture from stdin
  echo "We decided to use PostgreSQL because of JSONB support" | scribectl capture -

  # Attribute the message
  scribectl capture --user alice --channel eng-infra message.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCapture,
}

// scrubCmd previews the redaction cascade over files or stdin
var scrubCmd = &cobra.Command{
	Use:   "scrub [file]",
	Short: "Preview redaction of a file or stdin",
	Long: `Run content through the scribed redaction cascade without capturing it.

Examples:
  # Scrub a file
  scribectl scrub .env

  # Scrub from stdin
  cat output.log | scribectl scrub -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScrub,
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check scribed server health",
	Long: `Check the health status of the scribed HTTP server.

Reports "degraded" when the similarity index is not loaded and the
server cannot run detection.`,
	RunE: runHealth,
}

func init() {
	captureCmd.Flags().StringVar(&captureUser, "user", "", "author identifier")
	captureCmd.Flags().StringVar(&captureChannel, "channel", "", "conversation or page identifier")
	captureCmd.Flags().StringVar(&captureSource, "source", "chat", "event source kind (chat, wiki, webhook)")
}

// CaptureRequest matches internal/http/types.go CaptureRequest
type CaptureRequest struct {
	Text    string `json:"text"`
	User    string `json:"user"`
	Channel string `json:"channel"`
	Source  string `json:"source"`
}

// ScrubRequest matches internal/http/types.go ScrubRequest
type ScrubRequest struct {
	Content string `json:"content"`
}

// ScrubResponse matches internal/http/types.go ScrubResponse
type ScrubResponse struct {
	Content       string   `json:"content"`
	FindingsCount int      `json:"findings_count"`
	Categories    []string `json:"categories"`
}

// HealthResponse matches internal/http/types.go HealthResponse
type HealthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// readInput reads content from the named file, or stdin for "-" or no
// argument.
func readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return content, nil
	}
	content, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", args[0], err)
	}
	return content, nil
}

// postJSON sends a JSON request and decodes a JSON response into out.
func postJSON(path string, body, out any) error {
	reqJSON, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := serverURL + path
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// getJSON sends a GET request and decodes a JSON response into out.
func getJSON(path string, out any) error {
	url := serverURL + path
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// runCapture handles the capture command
func runCapture(cmd *cobra.Command, args []string) error {
	content, err := readInput(args)
	if err != nil {
		return err
	}
	if len(content) == 0 {
		return fmt.Errorf("no content to capture")
	}

	var outcome map[string]any
	err = postJSON("/api/v1/capture", CaptureRequest{
		Text:    string(content),
		User:    captureUser,
		Channel: captureChannel,
		Source:  captureSource,
	}, &outcome)
	if err != nil {
		return err
	}

	pretty, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	fmt.Println(string(pretty))
	return nil
}

// runScrub handles the scrub command
func runScrub(cmd *cobra.Command, args []string) error {
	content, err := readInput(args)
	if err != nil {
		return err
	}
	if len(content) == 0 {
		return fmt.Errorf("no content to scrub")
	}

	var scrubResp ScrubResponse
	if err := postJSON("/api/v1/scrub", ScrubRequest{Content: string(content)}, &scrubResp); err != nil {
		return err
	}

	fmt.Print(scrubResp.Content)
	if scrubResp.FindingsCount > 0 {
		fmt.Fprintf(os.Stderr, "\n[scribectl] Redacted %d finding(s)\n", scrubResp.FindingsCount)
	}
	return nil
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	var healthResp HealthResponse
	if err := getJSON("/health", &healthResp); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}

	fmt.Printf("Server Status: %s\n", healthResp.Status)
	if healthResp.Detail != "" {
		fmt.Printf("Detail: %s\n", healthResp.Detail)
	}
	fmt.Printf("Server URL: %s\n", serverURL)
	return nil
}
