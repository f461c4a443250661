package history

import (
	"errors"
	"fmt"
)

// Field indexes one of the five dashboard counters.
type Field int

const (
	NewCases24h Field = iota
	Positive7d
	PositiveTotal
	Tests7d
	TestsTotal
)

const FieldCount = 5

var fieldLabels = [FieldCount]string{
	"Positive Tests (24 hours)",
	"Positive Tests (7 days)",
	"Total Positive Tests",
	"Total Tests (7 days)",
	"Total Tests",
}

// Label returns the dashboard's display name for the counter.
func (f Field) Label() string {
	if f < 0 || int(f) >= FieldCount {
		return fmt.Sprintf("field %d", int(f))
	}
	return fieldLabels[f]
}

// Fields lists every counter in dashboard order.
func Fields() []Field {
	return []Field{NewCases24h, Positive7d, PositiveTotal, Tests7d, TestsTotal}
}

// Counts is the ordered 5-tuple published by the dashboard:
// [new_24h, pos_7d, pos_cum, tests_7d, tests_cum].
type Counts [FieldCount]int

func (c Counts) Get(f Field) int {
	return c[f]
}

// Snapshot is one observation of the dashboard.
type Snapshot struct {
	Counts Counts
	// Date is the calendar day the snapshot was recorded on.
	Date Date
	// Label is the free-text date caption shown on the dashboard.
	Label string
}

const (
	// WindowDays is the length of the trailing rolling window.
	WindowDays = 14
	// DefaultRetentionDays is how many trailing days of daily counts are kept.
	DefaultRetentionDays = 30
	// a sum-of-sums series reaches back 2*WindowDays-1 days
	minRetentionDays = 2*WindowDays - 1
)

// ErrOutOfOrderUpdate is returned when an update is dated before the most
// recent entry in the history.
var ErrOutOfOrderUpdate = errors.New("out of order update")

// History tracks the latest counters and the per-day new case counts of the
// trailing retention window.
type History struct {
	Current     Counts       `json:"current"`
	Label       string       `json:"label"`
	LastUpdated Date         `json:"last_updated"`
	ByDate      map[Date]int `json:"by_date"`

	retention int
}

// New returns an empty history. A zero LastUpdated marks a history that has
// never been updated.
func New() *History {
	return &History{
		ByDate:    map[Date]int{},
		retention: DefaultRetentionDays,
	}
}

// SetRetention sets how many trailing days of daily counts survive pruning.
// Values below what RollingSeries needs are raised to that minimum.
func (h *History) SetRetention(days int) {
	if days < minRetentionDays {
		days = minRetentionDays
	}
	h.retention = days
}

func (h *History) retentionDays() int {
	if h.retention <= 0 {
		return DefaultRetentionDays
	}
	return h.retention
}

// Clone returns a deep copy of the history.
func (h *History) Clone() *History {
	out := *h
	out.ByDate = make(map[Date]int, len(h.ByDate))
	for d, v := range h.ByDate {
		out.ByDate[d] = v
	}
	return &out
}

// Update applies a snapshot dated snap.Date.
//
// A snapshot on the same day as LastUpdated only replaces Current. A later
// snapshot fills every unobserved day in between with zero, records the new
// case count for its own day and advances LastUpdated. A snapshot dated
// before LastUpdated fails with ErrOutOfOrderUpdate and leaves h untouched.
func (h *History) Update(snap Snapshot) error {
	today := snap.Date
	if today.IsZero() {
		return fmt.Errorf("update: snapshot has no date")
	}
	if !h.LastUpdated.IsZero() && today.Before(h.LastUpdated) {
		return fmt.Errorf(
			"%w: snapshot dated %s, history last updated %s",
			ErrOutOfOrderUpdate, today, h.LastUpdated,
		)
	}
	if h.ByDate == nil {
		h.ByDate = map[Date]int{}
	}

	if today == h.LastUpdated {
		h.Current = snap.Counts
		h.Label = snap.Label
		return nil
	}

	if !h.LastUpdated.IsZero() {
		for d := h.LastUpdated.AddDays(1); d.Before(today); d = d.AddDays(1) {
			if _, ok := h.ByDate[d]; !ok {
				h.ByDate[d] = 0
			}
		}
	}
	h.ByDate[today] = snap.Counts[NewCases24h]
	h.Current = snap.Counts
	h.Label = snap.Label
	h.LastUpdated = today
	h.prune()
	return nil
}

// Overwrite replaces the daily counts of the len(daily) days ending at today,
// oldest first. It is meant for manual repairs of the stored history.
func (h *History) Overwrite(today Date, daily []int) error {
	if len(daily) == 0 || len(daily) > h.retentionDays() {
		return fmt.Errorf(
			"overwrite: expected between 1 and %d daily counts, got %d",
			h.retentionDays(), len(daily),
		)
	}
	if !h.LastUpdated.IsZero() && today.Before(h.LastUpdated) {
		return fmt.Errorf(
			"%w: overwrite ending %s, history last updated %s",
			ErrOutOfOrderUpdate, today, h.LastUpdated,
		)
	}
	for i, v := range daily {
		if v < 0 {
			return fmt.Errorf("overwrite: negative count %d at position %d", v, i)
		}
	}
	if h.ByDate == nil {
		h.ByDate = map[Date]int{}
	}

	start := today.AddDays(-(len(daily) - 1))
	for i, v := range daily {
		h.ByDate[start.AddDays(i)] = v
	}
	h.LastUpdated = today
	h.prune()
	return nil
}

func (h *History) prune() {
	oldest := h.LastUpdated.AddDays(-(h.retentionDays() - 1))
	for d := range h.ByDate {
		if d.Before(oldest) {
			delete(h.ByDate, d)
		}
	}
}

// RollingSum returns the sum of the new case counts of the WindowDays days
// ending at LastUpdated.
func (h *History) RollingSum() int {
	if h.LastUpdated.IsZero() {
		return 0
	}
	return h.RollingSumAsOf(h.LastUpdated)
}

// RollingSumAsOf returns the sum of the new case counts of the WindowDays days
// ending at end. Days without an entry count as zero.
func (h *History) RollingSumAsOf(end Date) int {
	sum := 0
	for _, v := range h.DailySeries(end) {
		sum += v
	}
	return sum
}

// DailySeries returns the WindowDays new case counts ending at end, oldest
// first.
func (h *History) DailySeries(end Date) []int {
	series := make([]int, WindowDays)
	for i, d := range WindowDates(end) {
		series[i] = h.ByDate[d]
	}
	return series
}

// RollingSeries returns WindowDays points ending at end where every point is
// the rolling sum as of that day.
func (h *History) RollingSeries(end Date) []int {
	series := make([]int, WindowDays)
	for i, d := range WindowDates(end) {
		series[i] = h.RollingSumAsOf(d)
	}
	return series
}

// WindowDates returns the WindowDays dates ending at end, oldest first.
func WindowDates(end Date) []Date {
	dates := make([]Date, WindowDays)
	for i := range dates {
		dates[i] = end.AddDays(i - (WindowDays - 1))
	}
	return dates
}

// CumulativeSeries returns the running prefix sum of daily.
func CumulativeSeries(daily []int) []int {
	out := make([]int, len(daily))
	total := 0
	for i, v := range daily {
		total += v
		out[i] = total
	}
	return out
}
