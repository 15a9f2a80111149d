package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iwtech/courier/config"
	"github.com/iwtech/courier/logger"
	"github.com/iwtech/courier/mailer"
	"github.com/iwtech/courier/scheduler"
)

// StartCmd runs the scheduler daemon in the foreground.
var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the scheduler daemon",
	Long: `Run the scheduler daemon in foreground mode.

The daemon will:
- Scan for due email jobs on a fixed interval
- Deliver each due job over SMTP with bounded retries
- Record every execution and advance jobs to their next occurrence
- Alert the admin address on delivery failures
- Run until interrupted (Ctrl+C) with graceful shutdown`,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		store := scheduler.NewStore(database)
		execStore := scheduler.NewExecutionStore(database)

		tickerCfg := scheduler.TickerConfig{
			Interval:     cfg.TickInterval(),
			FailureGrace: cfg.FailureGrace(),
		}

		// A nil *Notifier must become a nil interface, not a typed nil.
		var failureNotifier scheduler.FailureNotifier
		if notifier != nil {
			failureNotifier = notifier
		}

		ticker := scheduler.NewTicker(store, execStore, delivery, failureNotifier, tickerCfg, logger.Logger)
		ticker.Start()

		fmt.Println("Courier scheduler started")
		fmt.Printf("  Database:       %s\n", cfg.GetDatabasePath())
		fmt.Printf("  Tick interval:  %v\n", tickerCfg.Interval)
		fmt.Printf("  Max attempts:   %d\n", cfg.Retry.MaxAttempts)
		if cfg.Admin.NotificationEmail != "" {
			fmt.Printf("  Admin alerts:   %s\n", cfg.Admin.NotificationEmail)
		} else {
			fmt.Println("  Admin alerts:   disabled")
		}
		fmt.Println("\nPress Ctrl+C for graceful shutdown")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		fmt.Println("\nShutting down...")
		ticker.Stop()
		fmt.Println("Courier scheduler stopped")
		return nil
	},
}
