package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iwtech/courier/cmd/courier/commands"
	"github.com/iwtech/courier/logger"
)

var rootCmd = &cobra.Command{
	Use:   "courier",
	Short: "Courier - scheduled templated email sender",
	Long: `Courier - scheduled, recurring delivery of templated emails.

Courier runs a single-process scheduler that periodically scans for due
email jobs, delivers them over SMTP with bounded retries, records every
execution, and advances each job to its next occurrence.

Available commands:
  start    - Run the scheduler daemon in the foreground
  job      - Manage email jobs (create, list, enable, run, history)
  template - Manage email templates
  db       - Database operations (migrate, stats, cleanup)

Examples:
  courier start                      # Run the scheduler
  courier job ls                     # List all jobs
  courier job run <id>               # Trigger a job immediately
  courier db cleanup --days 90       # Prune old execution records`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonOutput); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit structured JSON logs instead of console output")

	rootCmd.AddCommand(commands.StartCmd)
	rootCmd.AddCommand(commands.JobCmd)
	rootCmd.AddCommand(commands.TemplateCmd)
	rootCmd.AddCommand(commands.DbCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
