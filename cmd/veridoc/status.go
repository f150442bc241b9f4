package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/veridoc/veridoc/internal/state"
	"github.com/veridoc/veridoc/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workflow state",
	Long: `Display stored validation workflows grouped by status.

Shows running and paused workflows with their current stage and retry
count, plus recent terminal workflows.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dbPath := cfg.Store.Path
	if dbPath == "" {
		dbPath = state.DefaultDBPath()
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No workflows yet. Run 'veridoc validate <file>' to start one.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	active := 0
	for _, status := range []models.WorkflowStatus{models.StatusRunning, models.StatusPaused} {
		workflows, err := db.ListWorkflowsByStatus(status)
		if err != nil {
			return fmt.Errorf("list %s workflows: %w", status, err)
		}
		active += len(workflows)
		displayWorkflows(string(status), workflows)
	}
	if active == 0 {
		fmt.Println("No active workflows.")
	}

	fmt.Println()
	return displayRecent(db)
}

func displayWorkflows(label string, workflows []models.WorkflowState) {
	if len(workflows) == 0 {
		return
	}

	fmt.Printf("%s workflows:\n", label)
	for _, ws := range workflows {
		line := fmt.Sprintf("  %s: %s at %s (%s ago)", ws.ID, ws.Family, ws.Stage, formatDuration(time.Since(ws.UpdatedAt)))
		if ws.RetryCount > 0 {
			line += fmt.Sprintf(", %d retries", ws.RetryCount)
		}
		fmt.Println(line)
	}
}

// displayRecent prints up to five recent terminal workflows.
func displayRecent(db *state.DB) error {
	var recent []models.WorkflowState
	for _, status := range []models.WorkflowStatus{models.StatusCompleted, models.StatusFailed, models.StatusCancelled} {
		workflows, err := db.ListWorkflowsByStatus(status)
		if err != nil {
			return fmt.Errorf("list %s workflows: %w", status, err)
		}
		recent = append(recent, workflows...)
	}
	if len(recent) == 0 {
		return nil
	}
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}

	fmt.Println("Recent workflows:")
	for _, ws := range recent {
		symbol := color.GreenString("✓")
		switch ws.Status {
		case models.StatusFailed:
			symbol = color.RedString("✗")
		case models.StatusCancelled:
			symbol = color.YellowString("⚠")
		}
		line := fmt.Sprintf("  %s %s: %s (%s ago)", symbol, ws.ID, ws.Status, formatDuration(time.Since(ws.UpdatedAt)))
		if ws.FailureReason != "" {
			line += fmt.Sprintf(" - %s", ws.FailureReason)
		}
		fmt.Println(line)
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
