package cmd

import (
	"fmt"
	"rpicovid/internal/history"
	"rpicovid/internal/store"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyDays int

func init() {
	historyCmd.Flags().IntVarP(&historyDays, "days", "n", history.WindowDays, "number of days to show")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the stored daily counts.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			fatal("failed to start", err)
		}
		defer a.Close()

		h := store.LoadOrNew(ctx, a.store, a.tel)
		if h.LastUpdated.IsZero() {
			fmt.Println("No history has been recorded yet.")
			return
		}
		if historyDays <= 0 {
			historyDays = history.WindowDays
		}

		start := h.LastUpdated.AddDays(-(historyDays - 1))
		daily := make([]int, historyDays)
		for i := range daily {
			daily[i] = h.ByDate[start.AddDays(i)]
		}
		cumulative := history.CumulativeSeries(daily)

		t := newTable()
		t.SetTitle(fmt.Sprintf("%s (last updated %s)", h.Label, h.LastUpdated))
		t.AppendHeader(table.Row{
			"Date",
			"New positives",
			fmt.Sprintf("%d day total", history.WindowDays),
			"Cumulative",
		})
		for i, count := range daily {
			d := start.AddDays(i)
			t.AppendRow(table.Row{
				d.String(),
				humanize.Comma(int64(count)),
				humanize.Comma(int64(h.RollingSumAsOf(d))),
				humanize.Comma(int64(cumulative[i])),
			})
		}
		t.Render()

		current := newTable()
		current.AppendHeader(table.Row{"Counter", "Value"})
		for _, f := range history.Fields() {
			current.AppendRow(table.Row{f.Label(), humanize.Comma(int64(h.Current[f]))})
		}
		current.Render()
	},
}
