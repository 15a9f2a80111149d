package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iwtech/courier/config"
	"github.com/iwtech/courier/scheduler"
)

// DbCmd groups database maintenance subcommands.
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database operations",
	Long: `Database operations: migrations, statistics, and execution
history cleanup.

Examples:
  courier db migrate              # Apply pending schema migrations
  courier db stats                # Show table counts
  courier db cleanup --days 90    # Delete executions older than 90 days`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var cleanupDaysFlag int

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// openDatabase migrates as a side effect.
		database, err := openDatabase(cfg, "")
		if err != nil {
			return err
		}
		defer database.Close()

		fmt.Printf("Database at %s is up to date\n", cfg.GetDatabasePath())
		return nil
	},
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE:  runDbStats,
}

var dbCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete execution records older than the retention period",
	RunE:  runDbCleanup,
}

func init() {
	dbCleanupCmd.Flags().IntVar(&cleanupDaysFlag, "days", 90, "Retention period in days")

	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatsCmd)
	DbCmd.AddCommand(dbCleanupCmd)
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	var templates, jobs, scheduled, executions, failures int
	if err := database.QueryRow(`SELECT COUNT(*) FROM email_templates`).Scan(&templates); err != nil {
		return fmt.Errorf("failed to count templates: %w", err)
	}
	if err := database.QueryRow(`SELECT COUNT(*) FROM email_jobs`).Scan(&jobs); err != nil {
		return fmt.Errorf("failed to count jobs: %w", err)
	}
	if err := database.QueryRow(`SELECT COUNT(*) FROM email_jobs WHERE enabled = 1 AND next_run_time IS NOT NULL`).Scan(&scheduled); err != nil {
		return fmt.Errorf("failed to count scheduled jobs: %w", err)
	}
	if err := database.QueryRow(`SELECT COUNT(*) FROM email_executions`).Scan(&executions); err != nil {
		return fmt.Errorf("failed to count executions: %w", err)
	}
	if err := database.QueryRow(`SELECT COUNT(*) FROM email_executions WHERE status = ?`, scheduler.StatusFail).Scan(&failures); err != nil {
		return fmt.Errorf("failed to count failed executions: %w", err)
	}

	fmt.Println("Database Statistics")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Database Path:   %s\n", cfg.GetDatabasePath())
	fmt.Printf("Templates:       %d\n", templates)
	fmt.Printf("Jobs:            %d (%d scheduled)\n", jobs, scheduled)
	fmt.Printf("Executions:      %d (%d failed)\n", executions, failures)
	return nil
}

func runDbCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	deleted, err := scheduler.NewExecutionStore(database).CleanupOldExecutions(cleanupDaysFlag)
	if err != nil {
		return err
	}

	fmt.Printf("Deleted %d execution records older than %d days\n", deleted, cleanupDaysFlag)
	return nil
}
