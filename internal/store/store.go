package store

import (
	"context"
	"errors"
	"rpicovid/internal/history"
	"rpicovid/internal/telemetry"
)

const (
	report_store_load = "store.load"
)

// ErrNoState is returned by Load when nothing has been saved yet.
var ErrNoState = errors.New("no stored state")

// Store persists the history between runs.
//
// Save replaces the stored state as a whole. Two runs must never save to
// the same store at the same time, the caller is responsible for running
// them one after another.
type Store interface {
	Load(ctx context.Context) (*history.History, error)
	Save(ctx context.Context, h *history.History) error
}

// LoadOrNew loads the stored history, falling back to an empty one when the
// state is missing or unreadable.
func LoadOrNew(ctx context.Context, store Store, tel telemetry.API) *history.History {
	h, err := store.Load(ctx)
	if errors.Is(err, ErrNoState) {
		tel.ReportDebug("no stored history, starting fresh")
		return history.New()
	}
	if err != nil {
		tel.ReportWarning(report_store_load, "failed to load history, starting fresh", err)
		return history.New()
	}
	return h
}
