package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// statusCmd groups read-only diagnostics an operator would check.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Inspect market and backlog state",
}

var statusMarketCmd = &cobra.Command{
	Use:   "market",
	Short: "Show the current market session classification",
	RunE:  runStatusMarket,
}

var statusAttributesCmd = &cobra.Command{
	Use:   "attributes",
	Short: "Show the attribute poller's backlog and cooldown state",
	RunE:  runStatusAttributes,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.AddCommand(statusMarketCmd)
	statusCmd.AddCommand(statusAttributesCmd)
}

func runStatusMarket(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer d.db.Close()

	status := d.eng.GetMarketStatus()
	fmt.Printf("market open:       %v\n", status.IsOpen)
	fmt.Printf("trading date:      %s\n", status.TradingDate.Format("2006-01-02"))
	fmt.Printf("prev trading date: %s\n", status.PrevTradingDate.Format("2006-01-02"))
	fmt.Printf("next open:         %s\n", status.NextOpen.Format("2006-01-02 15:04 MST"))
	return nil
}

func runStatusAttributes(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer d.db.Close()

	status, err := d.eng.AttributeStatus(context.Background())
	if err != nil {
		return fmt.Errorf("get attribute status: %w", err)
	}

	fmt.Printf("pending:         %d\n", status.Pending)
	fmt.Printf("exhausted:       %d\n", status.Exhausted)
	if !status.CooldownUntil.IsZero() {
		fmt.Printf("cooldown until:  %s\n", status.CooldownUntil.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}
