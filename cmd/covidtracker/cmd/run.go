package cmd

import (
	"log/slog"
	"rpicovid/internal/tracker"

	"github.com/spf13/cobra"
)

var runOptions tracker.Options

func init() {
	runCmd.Flags().BoolVar(&runOptions.CI, "ci", false, "skip archiving the dashboard page")
	runCmd.Flags().BoolVar(&runOptions.Force, "force", false, "post an update even when nothing significant changed")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch the dashboard once and post an update when its numbers changed.",
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

		result, err := t.Run(ctx, runOptions)
		if err != nil {
			flush()
			a.Close()
			fatal("run failed", err)
		}
		slog.Info(
			"done",
			"run", result.RunID,
			"old", result.Previous,
			"new", result.Current,
			"rolling_sum", result.RollingSum,
			"posted", result.Posted,
		)
	},
}
