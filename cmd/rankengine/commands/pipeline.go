package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aegis/rankengine/internal/contracts"
)

var (
	pipelineStrategy string
	pipelineCap      int
	pipelineTopN     int
)

// pipelineCmd represents the pipeline command.
var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the ranking pipeline",
	Long: `Runs a single-stage ranking pipeline: draws the top N symbols by
market cap, scores them with one strategy, and reports the survivors.

Example:
  rankengine pipeline run --strategy momentum --cap 500 --top 50`,
}

var pipelineRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once and print the surviving symbols",
	RunE:  runPipelineRun,
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
	pipelineCmd.AddCommand(pipelineRunCmd)

	pipelineRunCmd.Flags().StringVar(&pipelineStrategy, "strategy", "momentum", "scoring strategy: momentum|week52|macross|lowvol|meanrev")
	pipelineRunCmd.Flags().IntVar(&pipelineCap, "cap", 500, "stage-1 universe size (top N by market cap)")
	pipelineRunCmd.Flags().IntVar(&pipelineTopN, "top", 50, "number of symbols to keep")
}

func runPipelineRun(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer d.db.Close()

	strategy := contracts.Strategy(pipelineStrategy)
	if !strategy.Valid() {
		return fmt.Errorf("unknown strategy %q", pipelineStrategy)
	}

	stages := []contracts.PipelineStage{
		{StrategyID: strategy, MarketCapLimit: pipelineCap, OutputCount: pipelineTopN},
	}

	result, err := d.eng.RunPipeline(context.Background(), stages)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	if result.Halted {
		fmt.Println("Pipeline halted: a stage produced zero survivors")
		return nil
	}

	fmt.Printf("Pipeline produced %d survivors:\n", len(result.FinalSymbols))
	for i, symbol := range result.FinalSymbols {
		fmt.Printf("%3d. %s\n", i+1, symbol)
	}
	return nil
}
