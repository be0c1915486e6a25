package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// schedulerCmd represents the scheduler command.
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the background poller schedule",
	Long: `Starts or inspects the cron-driven price and attribute pollers.

Subcommands:
  start   - start the scheduler daemon
  list    - list registered jobs
  run     - run one job immediately
  status  - show job execution history

Example:
  rankengine scheduler start
  rankengine scheduler run price_poller`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		Long: `Starts the scheduler and schedules every registered job.

Registered jobs:
- price_poller: once a minute, only acts after market close
- attribute_poller: every 5 minutes

Stop with Ctrl+C.`,
		RunE: runSchedulerStart,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  runSchedulerList,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerRun,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job execution statistics",
		RunE:  runSchedulerStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runSchedulerStart(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer d.db.Close()

	sched, err := buildScheduler(d)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	sched.Start()
	fmt.Println("Scheduler started. Registered jobs:")
	for _, name := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("Shutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")
	return nil
}

func runSchedulerList(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer d.db.Close()

	sched, err := buildScheduler(d)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	fmt.Println("Registered jobs:")
	for _, name := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}

func runSchedulerRun(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer d.db.Close()

	sched, err := buildScheduler(d)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	fmt.Printf("Job %q started\n", jobName)
	return nil
}

func runSchedulerStatus(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer d.db.Close()

	sched, err := buildScheduler(d)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	for name, stat := range sched.GetJobStats() {
		fmt.Printf("%s\n", name)
		fmt.Printf("  schedule: %s\n", stat.Schedule)
		fmt.Printf("  total runs: %d, success: %d (%.1f%%), failures: %d\n",
			stat.TotalRuns, stat.SuccessCount, stat.SuccessRate*100, stat.FailureCount)
	}
	return nil
}
