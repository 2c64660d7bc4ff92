package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/frahmantamala/budget-ledger/internal/budget"
	"github.com/frahmantamala/budget-ledger/internal/core/events"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish domain events by hand, for example to re-run alert evaluation after a rate change`,
}

var reevaluateCmd = &cobra.Command{
	Use:   "reevaluate [budget-id]",
	Short: "Publish budget.updated for a budget and run its alert evaluation",
	Long: `Publish a budget.updated event for the budget. Without flags the previous values equal the current
ones, so edge mode only alerts on a real change while level mode re-sends an alert for a budget at or above
its threshold.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(reevaluateBudget(args[0], cmd.Flags().Changed("previous-threshold")))
	},
}

var (
	previousAmount    string
	previousCurrency  string
	previousThreshold int
)

func reevaluateBudget(rawID string, thresholdSet bool) error {
	budgetID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || budgetID <= 0 {
		return fmt.Errorf("invalid budget id %q", rawID)
	}

	config, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	app, err := newApplication(ctx, config)
	if err != nil {
		return err
	}
	defer app.Close()

	b, err := app.Budgets.GetBudget(ctx, budgetID)
	if err != nil {
		return err
	}

	amount, currency, threshold := previousValues(b, thresholdSet)
	event := events.NewBudgetUpdated(b.ID, b.OwnerID, amount, currency, threshold)
	app.Logger.Info("publishing budget event", "event_type", event.EventType(), "event_id", event.EventID(), "budget_id", b.ID)

	if err := app.Bus.PublishSync(ctx, event); err != nil {
		return err
	}
	app.Logger.Info("budget re-evaluated", "budget_id", b.ID)
	return nil
}

// previousValues falls back to the budget's current values for every flag left unset.
// A threshold of 0 is a valid previous value, so it is only applied when the flag was given.
func previousValues(b *budget.Budget, thresholdSet bool) (amount, currency string, threshold int) {
	amount = b.Amount.String()
	if previousAmount != "" {
		amount = previousAmount
	}
	currency = b.Currency
	if previousCurrency != "" {
		currency = previousCurrency
	}
	threshold = b.AlertThreshold
	if thresholdSet {
		threshold = previousThreshold
	}
	return amount, currency, threshold
}

func init() {
	reevaluateCmd.Flags().StringVar(&previousAmount, "previous-amount", "", "amount to treat as the budget's previous amount")
	reevaluateCmd.Flags().StringVar(&previousCurrency, "previous-currency", "", "currency to treat as the budget's previous currency")
	reevaluateCmd.Flags().IntVar(&previousThreshold, "previous-threshold", 0, "alert threshold to treat as the previous one")

	eventCmd.AddCommand(reevaluateCmd)

	rootCmd.AddCommand(eventCmd)
}
