package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/notification"
	"github.com/frahmantamala/budget-ledger/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start the notification consumer or the budget lifecycle sweeper.`,
}

var notificationWorkerCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Consume queued notifications and deliver them",
	Long:  `Consume notifications published by the server over AMQP, render them and hand them to the mailer`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startNotificationWorker()
	},
}

var lifecycleWorkerCmd = &cobra.Command{
	Use:   "lifecycle",
	Short: "Advance budgets whose period started or ended",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startLifecycleWorker()
	},
}

var sweepInterval time.Duration

func startNotificationWorker() error {
	config, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if config.Notification.Driver != internal.NotificationDriverAMQP {
		return fmt.Errorf("notification worker needs the %q driver, got %q", internal.NotificationDriverAMQP, config.Notification.Driver)
	}

	lg := logger.LoggerWrapper()

	client, err := notification.NewAMQPClient(config.Notification.URL, config.Notification.Exchange, config.Notification.Queue, lg)
	if err != nil {
		return err
	}
	defer client.Close()

	deliverer, err := newDeliverer(lg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg.Info("notification worker is running. Press Ctrl+C to stop.", "queue", config.Notification.Queue)
	if err := client.Consume(ctx, deliverer.Deliver); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	lg.Info("notification worker stopped")
	return nil
}

func startLifecycleWorker() error {
	config, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, config)
	if err != nil {
		return err
	}
	defer app.Close()

	sweep := func() {
		changed, err := app.Budgets.SweepLifecycle(ctx)
		if err != nil {
			app.Logger.Error("lifecycle sweep failed", "error", err)
			return
		}
		app.Logger.Info("lifecycle sweep complete", "changed", changed)
	}

	app.Logger.Info("lifecycle worker is running. Press Ctrl+C to stop.", "interval", sweepInterval)
	sweep()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sweep()
		case <-ctx.Done():
			app.Logger.Info("lifecycle worker stopped")
			return nil
		}
	}
}

func init() {
	lifecycleWorkerCmd.Flags().DurationVar(&sweepInterval, "interval", time.Minute, "time between lifecycle sweeps")

	workerCmd.AddCommand(notificationWorkerCmd)
	workerCmd.AddCommand(lifecycleWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}

// exitOnError is used by commands that are not wired through RunE.
func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
