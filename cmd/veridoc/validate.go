package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/veridoc/veridoc/internal/orchestrator"
	"github.com/veridoc/veridoc/pkg/models"
)

var (
	validateFamily   string
	validateTypes    []string
	validateSemantic bool
	validateJSON     bool
	validateVerbose  bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate documents against a truth-data family",
	Long: `Run one or more documents through the validation workflow.

Each file becomes its own workflow: fuzzy plugin detection and the
requested validators run concurrently, semantic review follows when
enabled, and the gated result is printed per file.

Exits non-zero if any document has error or critical findings.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateFamily, "family", "docs", "Truth-data family to validate against")
	validateCmd.Flags().StringSliceVar(&validateTypes, "types", []string{"structure", "frontmatter", "links"}, "Validation types to run, in order")
	validateCmd.Flags().BoolVar(&validateSemantic, "semantic", false, "Force the semantic review stage on")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Print results as JSON")
	validateCmd.Flags().BoolVar(&validateVerbose, "verbose", false, "Stream workflow events while validating")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if validateSemantic {
		cfg.Semantic.Enabled = true
	}

	c, err := buildCore(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if validateVerbose {
		go streamEvents(c.orch.Events())
	}

	pool := orchestrator.NewPool(c.orch, cfg.Workflow)
	defer pool.Shutdown()

	type pending struct {
		path string
		done <-chan orchestrator.Outcome
	}
	var submitted []pending
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		_, done, err := pool.Submit(orchestrator.Request{
			Family:          validateFamily,
			Content:         string(content),
			ValidationTypes: validateTypes,
			Path:            path,
		})
		if err != nil {
			return fmt.Errorf("submit %s: %w", path, err)
		}
		submitted = append(submitted, pending{path: path, done: done})
	}

	blocking := 0
	for _, p := range submitted {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case outcome := <-p.done:
			if outcome.Err != nil {
				blocking++
				color.Red("✗ %s: %v", p.path, outcome.Err)
				continue
			}
			if printResult(p.path, outcome.Result) {
				blocking++
			}
		}
	}

	if blocking > 0 {
		return fmt.Errorf("%d of %d documents failed validation", blocking, len(submitted))
	}
	return nil
}

// printResult prints one document's result and reports whether it contains
// blocking (error or critical) findings.
func printResult(path string, result *models.ValidationResult) bool {
	if validateJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err == nil {
			fmt.Printf("%s\n", out)
		}
		return hasBlockingIssues(result)
	}

	if len(result.Issues) == 0 {
		fmt.Printf("%s %s (confidence %.2f)\n", color.GreenString("✓"), path, result.Confidence)
		return false
	}

	symbol := color.YellowString("⚠")
	if hasBlockingIssues(result) {
		symbol = color.RedString("✗")
	}
	fmt.Printf("%s %s: %d issue(s), confidence %.2f\n", symbol, path, len(result.Issues), result.Confidence)

	for _, issue := range result.Issues {
		location := ""
		if issue.Line > 0 {
			location = fmt.Sprintf(":%d", issue.Line)
		}
		fmt.Printf("  %s %s%s [%s] %s\n", severityLabel(issue.Level), path, location, issue.Category, issue.Message)
		if issue.Suggestion != "" {
			fmt.Printf("      suggestion: %s\n", issue.Suggestion)
		}
	}
	return hasBlockingIssues(result)
}

func hasBlockingIssues(result *models.ValidationResult) bool {
	for _, issue := range result.Issues {
		if issue.Level.Rank() >= models.SeverityError.Rank() {
			return true
		}
	}
	return false
}

func severityLabel(level models.Severity) string {
	switch level {
	case models.SeverityCritical:
		return color.New(color.FgRed, color.Bold).Sprint("CRITICAL")
	case models.SeverityError:
		return color.RedString("ERROR")
	case models.SeverityWarning:
		return color.YellowString("WARN")
	default:
		return color.CyanString("INFO")
	}
}

// streamEvents prints workflow lifecycle events as they happen.
func streamEvents(events <-chan orchestrator.WorkflowEvent) {
	for ev := range events {
		switch ev.Type {
		case orchestrator.EventWorkflowFailed:
			color.Red("  [%s] %s: %s", ev.WorkflowID, ev.Type, ev.Error)
		case orchestrator.EventRetryScheduled:
			color.Yellow("  [%s] retry %d scheduled: %s", ev.WorkflowID, ev.RetryCount, ev.Error)
		default:
			fmt.Printf("  [%s] %s %s\n", ev.WorkflowID, ev.Type, ev.Stage)
		}
	}
}
