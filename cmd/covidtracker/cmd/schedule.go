package cmd

import (
	"log/slog"
	"rpicovid/internal/chrono"
	"rpicovid/internal/tracker"

	"github.com/spf13/cobra"
)

var (
	scheduleSpec string
	scheduleCI   bool
)

func init() {
	scheduleCmd.Flags().StringVar(&scheduleSpec, "cron", "*/30 * * * *", "cron expression in the dashboard's time zone")
	scheduleCmd.Flags().BoolVar(&scheduleCI, "ci", false, "skip archiving the dashboard page")
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Keep running and check the dashboard on a cron schedule.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			fatal("failed to start", err)
		}
		defer a.Close()
		flush := a.setupTelemetry(ctx)
		defer flush()

		t, err := a.tracker()
		if err != nil {
			fatal("failed to create tracker", err)
		}

		cron := chrono.NewStandardCron(a.time, a.tel)
		err = cron.Cron(scheduleSpec, func() {
			result, err := t.Run(ctx, tracker.Options{CI: scheduleCI})
			if err != nil {
				a.tel.ReportBroken(report_schedule_run, err)
				return
			}
			slog.Info("checked dashboard", "run", result.RunID, "posted", result.Posted)
		})
		if err != nil {
			fatal("invalid cron expression", err)
		}

		slog.Info("scheduled dashboard checks", "cron", scheduleSpec, "timezone", a.time.Location().String())
		cron.Run(ctx)
	},
}
