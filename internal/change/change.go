package change

import (
	"errors"
	"fmt"
	"math"
	"rpicovid/internal/history"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

var (
	// ErrNoWeeklyPositives means there are no positives in the last 7 days,
	// a positivity rate is not reported in that case.
	ErrNoWeeklyPositives = errors.New("no weekly positives")
	// ErrDivisionUndefined means the 7 day test count is zero.
	ErrDivisionUndefined = errors.New("division undefined")
)

// cumulativeFields are the longer horizon counters, a change in any of them
// makes an update significant even without new daily cases.
var cumulativeFields = []history.Field{
	history.PositiveTotal,
	history.Tests7d,
	history.TestsTotal,
}

// HasSignificantChange reports whether current is worth a notification.
//
// The dashboard sometimes resets its daily and weekly counters to zero without
// publishing new data, so a difference alone is not enough: there must be new
// daily cases or movement in one of the cumulative counters.
func HasSignificantChange(previous, current history.Counts) bool {
	if previous == current {
		return false
	}
	if current[history.NewCases24h] != 0 {
		return true
	}
	for _, f := range cumulativeFields {
		if current[f] != previous[f] {
			return true
		}
	}
	return false
}

// FormatDelta formats value with thousands separators, followed by the
// signed difference from previous in parentheses when it is non-zero.
//
//	FormatDelta(1234, 1230) == "1,234 (+4)"
//	FormatDelta(1234, 1234) == "1,234"
func FormatDelta(value, previous int) string {
	formatted := humanize.Comma(int64(value))
	diff := int64(value - previous)
	if diff == 0 {
		return formatted
	}
	sign := ""
	if diff > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s (%s%s)", formatted, sign, humanize.Comma(diff))
}

// WeeklyPositivityRate returns pos7d / tests7d as a percentage rounded to 4
// decimal places.
func WeeklyPositivityRate(pos7d, tests7d int) (float64, error) {
	if pos7d == 0 {
		return 0, ErrNoWeeklyPositives
	}
	if tests7d == 0 {
		return 0, fmt.Errorf("%w: %d positives over 0 tests", ErrDivisionUndefined, pos7d)
	}
	rate := float64(pos7d) / float64(tests7d) * 100
	return math.Round(rate*10_000) / 10_000, nil
}

// FormatRate renders a rate from WeeklyPositivityRate, always keeping at
// least one decimal place ("5.0%", "1.2345%").
func FormatRate(rate float64) string {
	s := strconv.FormatFloat(rate, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s + "%"
}

type FieldDelta struct {
	Field history.Field
	Label string
	Value string
}

// Deltas formats every counter of current against previous.
func Deltas(previous, current history.Counts) []FieldDelta {
	fields := history.Fields()
	out := make([]FieldDelta, len(fields))
	for i, f := range fields {
		out[i] = FieldDelta{
			Field: f,
			Label: f.Label(),
			Value: FormatDelta(current[f], previous[f]),
		}
	}
	return out
}
