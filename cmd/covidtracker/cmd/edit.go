package cmd

import (
	"fmt"
	"log/slog"
	"rpicovid/internal/chrono"
	"rpicovid/internal/history"
	"rpicovid/internal/store"

	"github.com/spf13/cobra"
)

var (
	editCounts []int
	editDate   string
)

func init() {
	editCmd.Flags().IntSliceVar(&editCounts, "counts", nil, "daily new positives, oldest first, ending on --date")
	editCmd.Flags().StringVar(&editDate, "date", "", "last day of the counts as YYYY-MM-DD, defaults to today")
	editCmd.MarkFlagRequired("counts")
	rootCmd.AddCommand(editCmd)
}

// editEnd resolves the last day being edited, a day after today would make
// every later run fail as out of order.
func editEnd(clock chrono.TimeAPI, date string) (history.Date, error) {
	today := history.DateOf(clock.Now())
	if date == "" {
		return today, nil
	}
	end, err := history.ParseDate(date)
	if err != nil {
		return history.Date{}, err
	}
	if end.After(today) {
		return history.Date{}, fmt.Errorf("%s is after today (%s)", end, today)
	}
	return end, nil
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Overwrite the stored daily counts of the last few days.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			fatal("failed to start", err)
		}
		defer a.Close()

		end, err := editEnd(a.time, editDate)
		if err != nil {
			fatal("invalid --date", err)
		}

		h := store.LoadOrNew(ctx, a.store, a.tel)
		if a.config.RetentionDays > 0 {
			h.SetRetention(a.config.RetentionDays)
		}
		err = h.Overwrite(end, editCounts)
		if err != nil {
			fatal("failed to edit history", err)
		}
		err = a.store.Save(ctx, h)
		if err != nil {
			fatal("failed to save history", err)
		}

		slog.Info(
			"history edited",
			"from", end.AddDays(-(len(editCounts) - 1)).String(),
			"to", end.String(),
			"rolling_sum", h.RollingSum(),
		)
		fmt.Printf("%d day total is now %d\n", history.WindowDays, h.RollingSum())
	},
}
