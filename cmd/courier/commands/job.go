package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iwtech/courier/config"
	"github.com/iwtech/courier/errors"
	"github.com/iwtech/courier/logger"
	"github.com/iwtech/courier/mailer"
	"github.com/iwtech/courier/scheduler"
)

// JobCmd groups email job management subcommands.
var JobCmd = &cobra.Command{
	Use:   "job",
	Short: "Manage email jobs",
	Long: `Manage email jobs: the schedule, payload, and lifecycle of each
recurring send.

Examples:
  courier job create --sender ops@example.com --to "a@x.com,b@x.com" \
      --template <template-id> --recurrence DAILY --send-time 09:00
  courier job ls
  courier job disable <id>
  courier job run <id>
  courier job history <id> --status FAIL`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var (
	jobSenderFlag     string
	jobToFlag         string
	jobTemplateFlag   string
	jobRecurrenceFlag string
	jobStartFlag      string
	jobEndFlag        string
	jobSendTimeFlag   string
	jobOneTimeFlag    bool

	historyLimitFlag  int
	historyOffsetFlag int
	historyStatusFlag string
)

var jobCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new email job",
	RunE:  runJobCreate,
}

var jobLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all email jobs",
	RunE:  runJobLs,
}

var jobEnableCmd = &cobra.Command{
	Use:   "enable <job-id>",
	Short: "Enable a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setJobEnabled(args[0], true)
	},
}

var jobDisableCmd = &cobra.Command{
	Use:   "disable <job-id>",
	Short: "Disable a job (it stays scheduled but is never selected)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setJobEnabled(args[0], false)
	},
}

var jobRmCmd = &cobra.Command{
	Use:   "rm <job-id>",
	Short: "Delete a job and its execution history",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobRm,
}

var jobRunCmd = &cobra.Command{
	Use:   "run <job-id>",
	Short: "Execute a job immediately",
	Long: `Execute a job immediately through the normal delivery pipeline:
validation, SMTP delivery with retries, an execution record, and
schedule advancement. Do not run while the daemon is active.`,
	Args: cobra.ExactArgs(1),
	RunE: runJobRun,
}

var jobHistoryCmd = &cobra.Command{
	Use:   "history <job-id>",
	Short: "Show a job's execution history",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobHistory,
}

func init() {
	jobCreateCmd.Flags().StringVar(&jobSenderFlag, "sender", "", "From address (required)")
	jobCreateCmd.Flags().StringVar(&jobToFlag, "to", "", "Recipients, comma or semicolon separated (required)")
	jobCreateCmd.Flags().StringVar(&jobTemplateFlag, "template", "", "Template ID (required)")
	jobCreateCmd.Flags().StringVar(&jobRecurrenceFlag, "recurrence", "DAILY", "Recurrence pattern: ONE_TIME, DAILY, WEEKLY, MONTHLY, YEARLY")
	jobCreateCmd.Flags().StringVar(&jobStartFlag, "start", "", "Start date (YYYY-MM-DD or RFC3339); first run time when in the future")
	jobCreateCmd.Flags().StringVar(&jobEndFlag, "end", "", "End date (YYYY-MM-DD or RFC3339); job retires past this")
	jobCreateCmd.Flags().StringVar(&jobSendTimeFlag, "send-time", "", "Wall clock send time HH:MM, pinned on every occurrence")
	jobCreateCmd.Flags().BoolVar(&jobOneTimeFlag, "one-time", false, "Retire the job after its first execution")
	jobCreateCmd.MarkFlagRequired("sender")
	jobCreateCmd.MarkFlagRequired("to")
	jobCreateCmd.MarkFlagRequired("template")

	jobHistoryCmd.Flags().IntVar(&historyLimitFlag, "limit", 20, "Number of records to show")
	jobHistoryCmd.Flags().IntVar(&historyOffsetFlag, "offset", 0, "Number of records to skip")
	jobHistoryCmd.Flags().StringVar(&historyStatusFlag, "status", "", "Filter by status (SUCCESS or FAIL)")

	JobCmd.AddCommand(jobCreateCmd)
	JobCmd.AddCommand(jobLsCmd)
	JobCmd.AddCommand(jobEnableCmd)
	JobCmd.AddCommand(jobDisableCmd)
	JobCmd.AddCommand(jobRmCmd)
	JobCmd.AddCommand(jobRunCmd)
	JobCmd.AddCommand(jobHistoryCmd)
}

func runJobCreate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	recurrence := scheduler.Pattern(strings.ToUpper(jobRecurrenceFlag))
	if !recurrence.Known() {
		return errors.Newf("unknown recurrence pattern %q", jobRecurrenceFlag)
	}

	startDate, err := parseDateFlag(jobStartFlag)
	if err != nil {
		return errors.Wrap(err, "invalid --start")
	}
	endDate, err := parseDateFlag(jobEndFlag)
	if err != nil {
		return errors.Wrap(err, "invalid --end")
	}
	if jobSendTimeFlag != "" {
		if _, err := time.Parse("15:04", jobSendTimeFlag); err != nil {
			return errors.Wrap(err, "invalid --send-time, expected HH:MM")
		}
	}

	// Verify the template exists up front; a dangling reference would
	// only surface as a delivery failure later.
	if _, err := scheduler.NewTemplateStore(database).GetTemplate(jobTemplateFlag); err != nil {
		return err
	}

	// First run is the start date when it is still ahead, otherwise now.
	now := time.Now().UTC()
	nextRun := now
	if startDate != nil && startDate.After(now) {
		nextRun = *startDate
	}

	job := &scheduler.Job{
		ID:          uuid.NewString(),
		StartDate:   startDate,
		EndDate:     endDate,
		NextRunTime: &nextRun,
		SendTime:    jobSendTimeFlag,
		Recurrence:  recurrence,
		OneTime:     jobOneTimeFlag || recurrence == scheduler.PatternOneTime,
		Enabled:     true,
		SenderEmail: jobSenderFlag,
		Recipients:  jobToFlag,
		TemplateID:  jobTemplateFlag,
	}

	if err := scheduler.NewStore(database).CreateJob(job); err != nil {
		return err
	}

	fmt.Printf("Created job %s\n", job.ID)
	fmt.Printf("  First run: %s\n", nextRun.Format(time.RFC3339))
	return nil
}

func runJobLs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	jobs, err := scheduler.NewStore(database).ListJobs()
	if err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs")
		return nil
	}

	fmt.Printf("%-36s  %-8s  %-9s  %-20s  %s\n", "ID", "ENABLED", "PATTERN", "NEXT RUN", "TEMPLATE")
	for _, job := range jobs {
		nextRun := "retired"
		if job.NextRunTime != nil {
			nextRun = job.NextRunTime.Format("2006-01-02 15:04 MST")
		}
		templateName := "(none)"
		if job.Template != nil {
			templateName = job.Template.Name
		}
		enabled := "yes"
		if !job.Enabled {
			enabled = "no"
		}
		fmt.Printf("%-36s  %-8s  %-9s  %-20s  %s\n", job.ID, enabled, job.Recurrence, nextRun, templateName)
	}
	return nil
}

func setJobEnabled(jobID string, enabled bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	if err := scheduler.NewStore(database).SetEnabled(jobID, enabled); err != nil {
		return err
	}

	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	fmt.Printf("Job %s %s\n", jobID, state)
	return nil
}

func runJobRm(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	if err := scheduler.NewStore(database).DeleteJob(args[0]); err != nil {
		return err
	}

	fmt.Printf("Deleted job %s and its execution history\n", args[0])
	return nil
}

func runJobRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	sender := mailer.NewSMTPSender(cfg.SMTP, logger.Logger)
	delivery := mailer.NewDelivery(sender, cfg.Retry, logger.Logger)
	notifier := mailer.NewNotifier(sender, cfg.Admin, cfg.SMTP, logger.Logger)

	var failureNotifier scheduler.FailureNotifier
	if notifier != nil {
		failureNotifier = notifier
	}

	store := scheduler.NewStore(database)
	execStore := scheduler.NewExecutionStore(database)
	ticker := scheduler.NewTicker(store, execStore, delivery, failureNotifier, scheduler.TickerConfig{
		Interval:     cfg.TickInterval(),
		FailureGrace: cfg.FailureGrace(),
	}, logger.Logger)

	if err := ticker.RunJobNow(args[0]); err != nil {
		return err
	}

	fmt.Printf("Job %s executed; see 'courier job history %s' for the outcome\n", args[0], args[0])
	return nil
}

func runJobHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	executions, total, err := scheduler.NewExecutionStore(database).ListExecutions(
		args[0], historyLimitFlag, historyOffsetFlag, strings.ToUpper(historyStatusFlag))
	if err != nil {
		return err
	}

	if total == 0 {
		fmt.Println("No executions recorded")
		return nil
	}

	fmt.Printf("Executions for job %s (%d total)\n\n", args[0], total)
	fmt.Printf("%-25s  %-8s  %-8s  %s\n", "EXECUTED AT", "STATUS", "ATTEMPT", "ERROR")
	for _, exec := range executions {
		errMsg := ""
		if exec.ErrorMessage != nil {
			errMsg = *exec.ErrorMessage
		}
		fmt.Printf("%-25s  %-8s  %-8d  %s\n", exec.ExecutedAt, exec.Status, exec.RetryAttempt, errMsg)
	}
	return nil
}

// parseDateFlag accepts YYYY-MM-DD or full RFC3339. Empty means unset.
func parseDateFlag(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, errors.Newf("expected YYYY-MM-DD or RFC3339, got %q", v)
	}
	return &t, nil
}
