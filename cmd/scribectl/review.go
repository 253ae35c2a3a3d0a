package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	reviewReviewer    string
	reviewReject      bool
	reviewSensitivity string
	reviewStatus      string
	reviewNotes       string
	reviewEvidence    string
)

// reviewCmd groups review queue operations
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Manage the review queue",
}

// reviewListCmd lists pending review items
var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending review items",
	RunE:  runReviewList,
}

// reviewStatsCmd summarizes the review queue
var reviewStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show review queue statistics",
	RunE:  runReviewStats,
}

// reviewSubmitCmd submits a review decision
var reviewSubmitCmd = &cobra.Command{
	Use:   "submit <record-id>",
	Short: "Submit a review decision for a pending record",
	Long: `Submit a review decision for a pending record.

Examples:
  # Approve a record as-is
  scribectl review submit dr-20260801T120000-a1b2c3d4 --reviewer alice

  # Reject a record
  scribectl review submit dr-20260801T120000-a1b2c3d4 --reviewer alice --reject

  # Approve with overrides
  scribectl review submit dr-20260801T120000-a1b2c3d4 --reviewer alice \
    --sensitivity restricted --status accepted --notes "verified with the team"`,
	Args: cobra.ExactArgs(1),
	RunE: runReviewSubmit,
}

// reviewClearCmd drops reviewed and rejected items
var reviewClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all reviewed and rejected items from the queue",
	RunE:  runReviewClear,
}

func init() {
	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewStatsCmd)
	reviewCmd.AddCommand(reviewSubmitCmd)
	reviewCmd.AddCommand(reviewClearCmd)

	reviewSubmitCmd.Flags().StringVar(&reviewReviewer, "reviewer", "", "reviewer identifier (required)")
	reviewSubmitCmd.Flags().BoolVar(&reviewReject, "reject", false, "discard the record instead of approving it")
	reviewSubmitCmd.Flags().StringVar(&reviewSensitivity, "sensitivity", "", "override sensitivity (public, internal, restricted)")
	reviewSubmitCmd.Flags().StringVar(&reviewStatus, "status", "", "override status (proposed, accepted, superseded, reverted)")
	reviewSubmitCmd.Flags().StringVar(&reviewNotes, "notes", "", "reviewer notes appended to the record")
	reviewSubmitCmd.Flags().StringVar(&reviewEvidence, "evidence", "", "whether the evidence supports the rationale (yes or no)")
	_ = reviewSubmitCmd.MarkFlagRequired("reviewer")
}

// reviewItem mirrors the wire shape of a queued item, keeping only the
// fields the CLI displays.
type reviewItem struct {
	RecordID            string    `json:"record_id"`
	DetectionConfidence float64   `json:"detection_confidence"`
	CreatedAt           time.Time `json:"created_at"`
	Questions           []string  `json:"questions"`
	Status              string    `json:"status"`
}

func runReviewList(cmd *cobra.Command, args []string) error {
	var resp struct {
		Items []reviewItem `json:"items"`
	}
	if err := getJSON("/api/v1/review/pending", &resp); err != nil {
		return err
	}

	if len(resp.Items) == 0 {
		fmt.Println("No pending review items.")
		return nil
	}

	for _, item := range resp.Items {
		fmt.Printf("%s  confidence=%.2f  queued=%s\n",
			item.RecordID,
			item.DetectionConfidence,
			item.CreatedAt.Format(time.RFC3339))
	}
	fmt.Printf("\n%d item(s) pending\n", len(resp.Items))
	return nil
}

func runReviewStats(cmd *cobra.Command, args []string) error {
	var stats map[string]any
	if err := getJSON("/api/v1/review/stats", &stats); err != nil {
		return err
	}

	pretty, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	fmt.Println(string(pretty))
	return nil
}

func runReviewSubmit(cmd *cobra.Command, args []string) error {
	recordID := args[0]

	answers := map[string]any{
		"worth_saving": !reviewReject,
	}
	if reviewSensitivity != "" {
		answers["sensitivity"] = reviewSensitivity
	}
	if reviewStatus != "" {
		answers["status"] = reviewStatus
	}
	if reviewNotes != "" {
		answers["notes"] = reviewNotes
	}
	switch reviewEvidence {
	case "":
	case "yes":
		answers["evidence_supported"] = true
	case "no":
		answers["evidence_supported"] = false
	default:
		return fmt.Errorf("invalid --evidence value %q (expected yes or no)", reviewEvidence)
	}

	var resp struct {
		RecordID string `json:"record_id"`
		Result   string `json:"result"`
	}
	err := postJSON("/api/v1/review/"+recordID, map[string]any{
		"reviewer": reviewReviewer,
		"answers":  answers,
	}, &resp)
	if err != nil {
		return err
	}

	fmt.Printf("Record %s: %s\n", resp.RecordID, resp.Result)
	return nil
}

func runReviewClear(cmd *cobra.Command, args []string) error {
	var resp struct {
		Removed int `json:"removed"`
	}
	if err := postJSON("/api/v1/review/clear", struct{}{}, &resp); err != nil {
		return err
	}
	fmt.Printf("Removed %d item(s)\n", resp.Removed)
	return nil
}
