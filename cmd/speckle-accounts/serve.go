package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep stored accounts fresh in the background",
	Long:  `Refreshes every stored account once at startup and then on the configured schedule until interrupted.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var serveSchedule string

func init() {
	serveCmd.Flags().StringVar(&serveSchedule, "schedule", "", "Refresh schedule, cron expression or descriptor (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	schedule := config.Refresh.Schedule
	if serveSchedule != "" {
		schedule = serveSchedule
	}

	application.SchedulerService.RunNow(cmd.Context())

	if !config.Refresh.Enabled && serveSchedule == "" {
		logger.Info().Msg("Background refresh disabled, exiting after initial refresh")
		return nil
	}

	if err := application.SchedulerService.Start(schedule); err != nil {
		return err
	}

	fmt.Printf("Refreshing accounts %s\n", schedule)
	fmt.Println("Press Ctrl+C to stop")

	// Wait for interrupt signal
	<-cmd.Context().Done()

	logger.Info().Msg("Shutting down refresh scheduler...")
	return nil
}
