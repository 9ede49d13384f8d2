package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mindthegap/govdata/internal/scheduler"
	"github.com/mindthegap/govdata/internal/scheduler/jobs"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Start the job scheduler",
	Long: `Starts the cron scheduler with the standing pipeline jobs:

  full_refresh         - Sundays 03:00, re-enriches every region
  incremental_refresh  - daily 04:00, re-enriches stale regions`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.close()

	sched := scheduler.New(application.logger)

	if err := sched.AddJob(jobs.NewFullRefresh(application.orchestrator, application.logger)); err != nil {
		return err
	}
	staleAfter := 24 * time.Hour
	if err := sched.AddJob(jobs.NewIncrementalRefresh(application.orchestrator, application.profileStore, staleAfter, application.logger)); err != nil {
		return err
	}

	sched.Start()
	defer sched.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	return nil
}
