package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// adminCmd groups the recovery/override operations an operator would reach
// for outside the normal scheduled cadence.
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative overrides and recovery actions",
}

var adminTriggerPriceCmd = &cobra.Command{
	Use:   "trigger-price-update",
	Short: "Run one price-ingest cycle immediately",
	Long:  "Bypasses the once-per-trading-day gate and runs the full 5-wave update cycle now.",
	RunE:  runAdminTriggerPrice,
}

var adminTriggerAttributeCmd = &cobra.Command{
	Use:   "trigger-attribute-update [symbols...]",
	Short: "Run one attribute-poller cycle immediately",
	Long:  "Ensures any given symbols are enqueued, then runs one backlog cycle now.",
	RunE:  runAdminTriggerAttribute,
}

var adminResetAttributeRetriesCmd = &cobra.Command{
	Use:   "reset-attribute-retries",
	Short: "Reset the exhausted attribute backlog to retry_count 0",
	RunE:  runAdminResetAttributeRetries,
}

var adminResetPriceRetriesCmd = &cobra.Command{
	Use:   "reset-price-retries",
	Short: "Reset the exhausted price backlog to retry_count 0",
	RunE:  runAdminResetPriceRetries,
}

var adminClearFailedUpdatesCmd = &cobra.Command{
	Use:   "clear-failed-updates",
	Short: "Reset every failed Update Tracker row back to pending",
	RunE:  runAdminClearFailedUpdates,
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminTriggerPriceCmd)
	adminCmd.AddCommand(adminTriggerAttributeCmd)
	adminCmd.AddCommand(adminResetAttributeRetriesCmd)
	adminCmd.AddCommand(adminResetPriceRetriesCmd)
	adminCmd.AddCommand(adminClearFailedUpdatesCmd)
}

func runAdminTriggerPrice(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer d.db.Close()

	if err := d.eng.TriggerPriceUpdate(context.Background()); err != nil {
		return fmt.Errorf("trigger price update: %w", err)
	}
	fmt.Println("Price update cycle completed")
	return nil
}

func runAdminTriggerAttribute(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer d.db.Close()

	if err := d.eng.TriggerAttributeUpdate(context.Background(), args); err != nil {
		return fmt.Errorf("trigger attribute update: %w", err)
	}
	fmt.Println("Attribute update cycle completed")
	return nil
}

func runAdminResetAttributeRetries(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer d.db.Close()

	if err := d.eng.ResetAttributeRetries(context.Background()); err != nil {
		return fmt.Errorf("reset attribute retries: %w", err)
	}
	fmt.Println("Attribute retries reset")
	return nil
}

func runAdminResetPriceRetries(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer d.db.Close()

	if err := d.eng.ResetPriceRetries(context.Background()); err != nil {
		return fmt.Errorf("reset price retries: %w", err)
	}
	fmt.Println("Price retries reset")
	return nil
}

func runAdminClearFailedUpdates(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer d.db.Close()

	n, err := d.eng.ClearFailedUpdates(context.Background())
	if err != nil {
		return fmt.Errorf("clear failed updates: %w", err)
	}
	fmt.Printf("Reset %d failed update rows to pending\n", n)
	return nil
}
