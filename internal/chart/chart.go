package chart

import (
	"bytes"
	"fmt"
	"rpicovid/internal/history"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Series is the data plotted on the trend chart, every slice is aligned
// with Dates.
type Series struct {
	Title string
	Dates []history.Date
	// Daily is plotted on the primary axis.
	Daily []int
	// Cumulative is the running total of Daily, plotted on the secondary axis.
	Cumulative []int
	// Rolling is optional, plotted on the secondary axis when present.
	Rolling []int
}

const (
	width  = 1024
	height = 512
)

var (
	dailyColor      = drawing.ColorFromHex("e74c3c")
	cumulativeColor = drawing.ColorFromHex("3498db")
	rollingColor    = drawing.ColorFromHex("95a5a6")
)

func toFloats(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

func (s Series) validate() error {
	if len(s.Dates) < 2 {
		return fmt.Errorf("chart needs at least 2 points, got %d", len(s.Dates))
	}
	if len(s.Daily) != len(s.Dates) || len(s.Cumulative) != len(s.Dates) {
		return fmt.Errorf(
			"series length mismatch: %d dates, %d daily, %d cumulative",
			len(s.Dates), len(s.Daily), len(s.Cumulative),
		)
	}
	if len(s.Rolling) > 0 && len(s.Rolling) != len(s.Dates) {
		return fmt.Errorf("series length mismatch: %d dates, %d rolling", len(s.Dates), len(s.Rolling))
	}
	return nil
}

// Render draws the series as a PNG image.
func Render(s Series) ([]byte, error) {
	err := s.validate()
	if err != nil {
		return nil, err
	}

	times := make([]time.Time, len(s.Dates))
	for i, d := range s.Dates {
		times[i] = d.Time(time.UTC)
	}

	series := []gochart.Series{
		gochart.TimeSeries{
			Name: "New positive tests",
			Style: gochart.Style{
				StrokeColor: dailyColor,
				FillColor:   dailyColor.WithAlpha(64),
				StrokeWidth: 2,
			},
			XValues: times,
			YValues: toFloats(s.Daily),
		},
		gochart.TimeSeries{
			Name:  "Cumulative",
			YAxis: gochart.YAxisSecondary,
			Style: gochart.Style{
				StrokeColor: cumulativeColor,
				StrokeWidth: 2,
			},
			XValues: times,
			YValues: toFloats(s.Cumulative),
		},
	}
	if len(s.Rolling) > 0 {
		series = append(series, gochart.TimeSeries{
			Name:  fmt.Sprintf("%d day total", history.WindowDays),
			YAxis: gochart.YAxisSecondary,
			Style: gochart.Style{
				StrokeColor:     rollingColor,
				StrokeWidth:     2,
				StrokeDashArray: []float64{5, 5},
			},
			XValues: times,
			YValues: toFloats(s.Rolling),
		})
	}

	graph := gochart.Chart{
		Title:  s.Title,
		Width:  width,
		Height: height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 48, Left: 24, Right: 24, Bottom: 24},
		},
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatterWithFormat("Jan 2"),
		},
		YAxis: gochart.YAxis{
			Name:           "Daily",
			ValueFormatter: gochart.IntValueFormatter,
			Range:          &gochart.ContinuousRange{Min: 0, Max: axisMax(s.Daily)},
		},
		YAxisSecondary: gochart.YAxis{
			Name:           "Total",
			ValueFormatter: gochart.IntValueFormatter,
			Range: &gochart.ContinuousRange{
				Min: 0,
				Max: max(axisMax(s.Cumulative), axisMax(s.Rolling)),
			},
		},
		Series: series,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	var buffer bytes.Buffer
	err = graph.Render(gochart.PNG, &buffer)
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buffer.Bytes(), nil
}

// axisMax keeps a flat zero series from collapsing the axis range.
func axisMax(values []int) float64 {
	highest := 0
	for _, v := range values {
		highest = max(highest, v)
	}
	if highest < 5 {
		return 5
	}
	return float64(highest) * 1.1
}

// FromHistory builds the trend series of the WindowDays days ending at end.
func FromHistory(h *history.History, end history.Date, title string) Series {
	daily := h.DailySeries(end)
	return Series{
		Title:      title,
		Dates:      history.WindowDates(end),
		Daily:      daily,
		Cumulative: history.CumulativeSeries(daily),
		Rolling:    h.RollingSeries(end),
	}
}
